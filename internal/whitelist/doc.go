// Package whitelist validates domain names and parses the line-oriented
// whitelist text format used by the settings surface.
//
// The text format is one entry per line, either
//
//	example.com
//	example.com,1,0
//
// where the flags are the literal characters 0 or 1 for keepCookies and
// keepCache. A bare domain keeps both. Blank lines are ignored. All
// diagnostics cite the 1-based line number and the offending line text.
//
// The package is pure: no state, no I/O.
package whitelist
