// Package store keeps the scored check result between the check and the
// credential issuance, keyed by session ID.
package store

import "errors"

// ErrNotFound is returned when no live record exists for a session.
var ErrNotFound = errors.New("check record not found")

// ErrMissingSession is returned when a save or lookup has no session ID.
var ErrMissingSession = errors.New("session id is required")
