package ports

import "context"

// WindowEnumerator queries the browser's currently open normal windows.
// The window-close trigger uses it after a close event; the closed window
// is already excluded from the host's answer at that point.
type WindowEnumerator interface {
	// CountNormalWindows returns the number of open normal browser windows
	// (app windows, devtools and popups excluded).
	CountNormalWindows(ctx context.Context) (int, error)
}
