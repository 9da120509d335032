package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies command failures so the transport layer can
// report them uniformly. Every kind except KindInternal leaves state
// untouched.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	// KindValidation: malformed payload, rejected before any state is read.
	KindValidation
	// KindIllegalTransition: wrong phase, wrong turn, or card not owned.
	KindIllegalTransition
	// KindNotFound: room, session, or player absent.
	KindNotFound
	// KindResourceExhausted: deck and discard pile both empty.
	KindResourceExhausted
	// KindCapacity: room full or the id space collided past the retry limit.
	KindCapacity
	// KindConflict: connection already bound elsewhere, or a concurrent
	// update won the race.
	KindConflict
)

// GameError is an error with a taxonomy kind attached.
type GameError struct {
	Kind ErrorKind
	Msg  string
}

func (e *GameError) Error() string { return e.Msg }

// E constructs a GameError.
func E(kind ErrorKind, format string, args ...any) error {
	return &GameError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the taxonomy kind from err, defaulting to KindInternal.
func KindOf(err error) ErrorKind {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInternal
}
