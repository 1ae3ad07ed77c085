package session

import "errors"

var (
	// ErrInputNotFound means no prompt input matched any selector after
	// the configured attempts.
	ErrInputNotFound = errors.New("session: prompt input not found")

	// ErrNavigationTimeout means the surface did not load in time.
	ErrNavigationTimeout = errors.New("session: navigation timeout")

	// ErrClipboardUnavailable means neither the in-page clipboard API nor
	// the host clipboard yielded text.
	ErrClipboardUnavailable = errors.New("session: clipboard unavailable")

	// ErrCopyButtonNotFound means no copy control was found outside the
	// user's own message.
	ErrCopyButtonNotFound = errors.New("session: copy button not found")
)
