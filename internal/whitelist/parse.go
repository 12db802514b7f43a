package whitelist

import (
	"errors"
	"fmt"
	"strings"

	"github.com/taka-sakai/dehistory/internal/domain"
)

// Line format errors.
var (
	// ErrBadFieldCount is returned when a line has a part count other than
	// one (bare domain) or three (domain plus two flags).
	ErrBadFieldCount = errors.New("expected \"domain\" or \"domain,keepCookies,keepCache\"")
	// ErrBadFlag is returned when a flag field is not the literal 0 or 1.
	ErrBadFlag = errors.New("flags must be 0 or 1")
)

// ParseError describes a failure on one line of whitelist text. It carries
// the 1-based line number and the original line for display in the editing
// surface.
type ParseError struct {
	Line int
	Text string
	Err  error
}

// Error formats the failure with its line number and line text.
func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d (%q): %v", e.Line, e.Text, e.Err)
}

// Unwrap returns the underlying reason.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseLine parses a single whitelist line. index is the 0-based position of
// the line in its document; diagnostics cite index+1.
//
// A bare domain defaults both flags to 1 (keep). A three-part line requires
// the second and third parts to be the literal 0 or 1. Domain validation
// failures short-circuit before flag parsing.
func ParseLine(line string, index int) (domain.WhitelistEntry, error) {
	fail := func(err error) (domain.WhitelistEntry, error) {
		return domain.WhitelistEntry{}, &ParseError{Line: index + 1, Text: line, Err: err}
	}

	parts := strings.Split(strings.TrimSpace(line), ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	switch len(parts) {
	case 1:
		if err := ValidateDomainName(parts[0]); err != nil {
			return fail(err)
		}
		return domain.WhitelistEntry{Domain: parts[0], KeepCookies: 1, KeepCache: 1}, nil
	case 3:
		if err := ValidateDomainName(parts[0]); err != nil {
			return fail(err)
		}
		keepCookies, err := parseFlag(parts[1])
		if err != nil {
			return fail(err)
		}
		keepCache, err := parseFlag(parts[2])
		if err != nil {
			return fail(err)
		}
		return domain.WhitelistEntry{Domain: parts[0], KeepCookies: keepCookies, KeepCache: keepCache}, nil
	default:
		return fail(ErrBadFieldCount)
	}
}

func parseFlag(s string) (int, error) {
	switch s {
	case "0":
		return 0, nil
	case "1":
		return 1, nil
	default:
		return 0, fmt.Errorf("%w (got %q)", ErrBadFlag, s)
	}
}

// Parse parses a full whitelist document. Blank lines are ignored but still
// count toward line numbers. The same domain appearing on two lines aborts
// the parse with a line-numbered duplicate error; nothing is returned in
// that case because the editing boundary must persist all-or-nothing.
func Parse(text string) ([]domain.WhitelistEntry, error) {
	var entries []domain.WhitelistEntry
	seen := make(map[string]struct{})

	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := ParseLine(line, i)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[entry.Domain]; dup {
			return nil, &ParseError{Line: i + 1, Text: line, Err: domain.ErrDuplicateDomain}
		}
		seen[entry.Domain] = struct{}{}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Format serializes entries back to the text format. An entry keeping both
// cookies and cache is emitted as a bare domain; re-parsing the output
// yields an equivalent entry set.
func Format(entries []domain.WhitelistEntry) string {
	var b strings.Builder
	for _, e := range entries {
		if e.KeepCookies == 1 && e.KeepCache == 1 {
			b.WriteString(e.Domain)
		} else {
			fmt.Fprintf(&b, "%s,%d,%d", e.Domain, e.KeepCookies, e.KeepCache)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
