// Package session – sentinel errors.
package session

import "errors"

// Exported sentinel errors returned by the session store. Callers branch on
// them with errors.Is.
var (
	// ErrNotAuthenticated is returned by operations that require a signed-in
	// session when none is present.
	ErrNotAuthenticated = errors.New("session: not authenticated")
)
