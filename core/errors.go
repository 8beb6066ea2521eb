package core

import "errors"

var (
	// ErrInvalidSchedule is returned when an action is enqueued for a round
	// that has already passed or with a duration below one.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrInvalidTransition is returned when an action status update does not
	// follow the monotonic graph pending→executing→completed / pending→cancelled.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAlreadyExecuting is returned when cancelling an action that has
	// already started executing or completed.
	ErrAlreadyExecuting = errors.New("action already executing")

	// ErrDuplicateActiveAction is returned when an actor with an open
	// multi-round action starts another one.
	ErrDuplicateActiveAction = errors.New("actor already has an active action")

	// ErrNotFound is returned when a simulation, action, active action, or
	// actor state does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidDelivery is returned when a message's delivery round precedes
	// the round it was sent.
	ErrInvalidDelivery = errors.New("invalid delivery round")

	// ErrUnparseableResponse is returned when an oracle response cannot be
	// turned into valid structured output after all repair stages.
	ErrUnparseableResponse = errors.New("unparseable oracle response")

	// ErrOracleTimeout is returned when an oracle call exceeds its deadline.
	ErrOracleTimeout = errors.New("oracle call timed out")

	// ErrConcurrentRound is returned when a round is already being resolved
	// for the same simulation. Callers must not retry internally.
	ErrConcurrentRound = errors.New("round already in progress")
)
