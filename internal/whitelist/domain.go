package whitelist

import (
	"errors"
	"regexp"
	"strings"
)

// Domain validation errors. Checks run in a fixed order and the first
// failing check's error is returned; reasons are never aggregated.
var (
	// ErrEmptyDomain is returned for an empty domain string.
	ErrEmptyDomain = errors.New("domain is empty")
	// ErrDomainTooLong is returned when the domain exceeds 253 characters.
	ErrDomainTooLong = errors.New("domain exceeds 253 characters")
	// ErrForbiddenCharacter is returned for control or invisible characters.
	ErrForbiddenCharacter = errors.New("domain contains control or invisible characters")
	// ErrWildcard is returned when the domain contains an asterisk.
	ErrWildcard = errors.New("wildcard characters are not allowed")
	// ErrNonASCII is returned for any non-ASCII character.
	ErrNonASCII = errors.New("domain contains non-ASCII characters")
	// ErrEdgeDot is returned for a leading or trailing dot.
	ErrEdgeDot = errors.New("domain starts or ends with a dot")
	// ErrConsecutiveDots is returned for two or more dots in a row.
	ErrConsecutiveDots = errors.New("domain contains consecutive dots")
	// ErrLabelTooLong is returned when a dot-separated label exceeds 63 characters.
	ErrLabelTooLong = errors.New("domain label exceeds 63 characters")
	// ErrInvalidFormat is returned when the domain does not match the
	// hostname pattern (alphanumeric labels, hyphens only inside a label,
	// final label at least two letters).
	ErrInvalidFormat = errors.New("domain is not a valid hostname")
)

const (
	maxDomainLength = 253
	maxLabelLength  = 63
)

// domainPattern matches one or more dot-separated labels, each alphanumeric
// and possibly hyphenated but never starting or ending with a hyphen, with a
// final label of at least two letters. Case-insensitive.
var domainPattern = regexp.MustCompile(`^(?i)([a-z0-9]([a-z0-9-]*[a-z0-9])?\.)*[a-z]{2,}$`)

// ValidateDomainName reports whether domain is an acceptable whitelist
// domain. Returns nil when valid, or the first failing check's error.
//
// Structural checks (edge dots, consecutive dots, label length) run before
// the general pattern match so their specific reasons are reachable.
func ValidateDomainName(domain string) error {
	if domain == "" {
		return ErrEmptyDomain
	}
	if len(domain) > maxDomainLength {
		return ErrDomainTooLong
	}
	for _, r := range domain {
		if isForbiddenRune(r) {
			return ErrForbiddenCharacter
		}
	}
	if strings.Contains(domain, "*") {
		return ErrWildcard
	}
	for _, r := range domain {
		if r > 0x7F {
			return ErrNonASCII
		}
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return ErrEdgeDot
	}
	if strings.Contains(domain, "..") {
		return ErrConsecutiveDots
	}
	for _, label := range strings.Split(domain, ".") {
		if len(label) > maxLabelLength {
			return ErrLabelTooLong
		}
	}
	if !domainPattern.MatchString(domain) {
		return ErrInvalidFormat
	}
	return nil
}

// isForbiddenRune reports whether r is a control character or an invisible
// Unicode space/separator: 0x00-0x1F, 0x7F-0x9F, U+2000-U+200F,
// U+2028-U+202F, U+205F-U+206F.
func isForbiddenRune(r rune) bool {
	switch {
	case r <= 0x1F:
		return true
	case r >= 0x7F && r <= 0x9F:
		return true
	case r >= 0x2000 && r <= 0x200F:
		return true
	case r >= 0x2028 && r <= 0x202F:
		return true
	case r >= 0x205F && r <= 0x206F:
		return true
	}
	return false
}
