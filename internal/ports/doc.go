// Package ports defines the interfaces (ports) that connect the cleaning
// core to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// core needs from the host browser and from storage without specifying how
// those needs are fulfilled.
//
// # Port Interfaces
//
//   - [BrowsingDataRemover]: The host's opaque data-removal capability
//   - [KeyValueStore]: Persistent string-keyed JSON storage for settings
//   - [SessionStore]: Ephemeral storage scoped to one browser session
//   - [WindowEnumerator]: Queries the browser's open normal windows
//
// # Usage
//
// The core packages (settings, cleaner, orchestrator) depend only on these
// interfaces. Infrastructure adapters (internal/adapters) implement them
// with concrete backends (DevTools protocol, SQLite, JSON files, memory).
//
// This separation enables:
//   - Testing the cleaning logic with in-memory fakes
//   - Swapping storage backends without changing business logic
//   - Clear boundaries and dependency direction
package ports
