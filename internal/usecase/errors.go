package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrStateConflict         = errors.New("state conflict")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// Engine conflicts wrap ErrStateConflict so callers can match either the
// specific condition or the generic kind with errors.Is.
var (
	ErrAlreadyLocked     = fmt.Errorf("%w: gameweek already locked", ErrStateConflict)
	ErrLockNotDue        = fmt.Errorf("%w: lock time not reached", ErrStateConflict)
	ErrPicksLocked       = fmt.Errorf("%w: picks are locked for this gameweek", ErrStateConflict)
	ErrTeamAlreadyUsed   = fmt.Errorf("%w: team already used in this room", ErrStateConflict)
	ErrFixturesNotFinal  = fmt.Errorf("%w: counted fixtures are not final", ErrStateConflict)
	ErrOutcomeAlreadySet = fmt.Errorf("%w: fixture outcome already set", ErrStateConflict)
	ErrNotAMember        = fmt.Errorf("%w: not a member of this room", ErrStateConflict)
	ErrAlreadyEliminated = fmt.Errorf("%w: member already eliminated", ErrStateConflict)
	ErrRoomNotJoinable   = fmt.Errorf("%w: room is not accepting members", ErrStateConflict)
	ErrRoomNotInProgress = fmt.Errorf("%w: room is not in progress", ErrStateConflict)
	ErrProposalClosed    = fmt.Errorf("%w: proposal already closed", ErrStateConflict)
	ErrProposalPending   = fmt.Errorf("%w: another proposal is still open", ErrStateConflict)
	ErrAlreadyVoted      = fmt.Errorf("%w: vote already recorded", ErrStateConflict)
)
