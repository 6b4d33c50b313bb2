package session

import (
	"errors"
	"fmt"
)

// ErrNoRefreshToken is returned by Refresh when the session holds no
// refresh token to exchange.
var ErrNoRefreshToken = errors.New("no refresh token held")

// Kind classifies why a login or refresh failed, so callers can tell a bad
// password apart from an unreachable platform.
type Kind string

const (
	KindNetwork   Kind = "network"
	KindRejected  Kind = "credential_rejected"
	KindMalformed Kind = "malformed_response"
)

// CredentialError is the typed failure returned by Login and Refresh.
type CredentialError struct {
	Op   string // "login" or "refresh"
	Kind Kind
	Err  error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

func credErr(op string, kind Kind, err error) *CredentialError {
	return &CredentialError{Op: op, Kind: kind, Err: err}
}
