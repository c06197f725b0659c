package ledger

import "errors"

// All ledger failures are immediate, local validation errors; there is no
// transient class. A failed operation leaves the ledger unchanged.
var (
	ErrUnauthorized          = errors.New("caller is not the election admin")
	ErrInvalidPhase          = errors.New("operation not allowed in current phase")
	ErrInvalidWeight         = errors.New("voter weight must be greater than zero")
	ErrAlreadyRegistered     = errors.New("voter has already been registered")
	ErrAlreadyVoted          = errors.New("voter has already voted")
	ErrDelegateNotRegistered = errors.New("delegate is not a registered voter")
	ErrInvalidCandidate      = errors.New("candidate id is out of range")
	ErrNoCandidates          = errors.New("no candidates to tally")
	ErrNoVotesCast           = errors.New("no votes have been cast")
)
