package app

import "errors"

var (
	ErrAlreadyWaiting   = errors.New("participant already waiting for a peer")
	ErrAlreadyInSession = errors.New("participant already in a session")
	ErrNotInSession     = errors.New("participant not in a session")
	ErrNoSuchRoom       = errors.New("no such room")
	ErrNotParticipant   = errors.New("participant not in room")
	ErrEmptySignal      = errors.New("empty signal")
)
