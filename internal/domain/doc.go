// Package domain contains the core domain entities and value objects for
// dehistory.
//
// This package represents the innermost layer of the application. It has no
// dependencies on infrastructure concerns (browser protocol, storage,
// logging) and contains only pure data and business rules.
//
// # Entities
//
//   - [Settings]: The full cleaner configuration (flags plus whitelist)
//   - [WhitelistEntry]: A domain exempted from cookie and/or cache removal
//   - [DataTypeSet]: The set of browsing-data categories a removal pass covers
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
