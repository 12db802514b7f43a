package domain

import "errors"

// Domain errors represent error conditions in the dehistory domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrUnauthorized is returned when a delete request arrives from a
	// sender other than the trusted control surface. No deletion is
	// attempted for unauthorized requests.
	ErrUnauthorized = errors.New("dehistory: unauthorized sender")

	// ErrDuplicateDomain is returned when a whitelist names the same domain
	// twice. Enforced at the editing boundary; nothing is persisted.
	ErrDuplicateDomain = errors.New("dehistory: duplicate whitelist domain")

	// ErrNotConnected is returned when a browser-facing operation is
	// attempted without a live browser connection.
	ErrNotConnected = errors.New("dehistory: browser not connected")

	// ErrStoreClosed is returned when a storage operation is attempted on a
	// closed store.
	ErrStoreClosed = errors.New("dehistory: store closed")
)
