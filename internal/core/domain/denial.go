package domain

import "errors"

var ErrForbidden = errors.New("access forbidden")

// Denial is the structured rejection produced by an authorization guard.
// It matches ErrForbidden under errors.Is.
type Denial struct {
	Guard  string
	Reason string
}

func (d *Denial) Error() string { return d.Reason }

func (d *Denial) Unwrap() error { return ErrForbidden }

// Deny builds a Denial for guard with the given reason.
func Deny(guard, reason string) *Denial {
	return &Denial{Guard: guard, Reason: reason}
}
