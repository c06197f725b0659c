package models

// VoterRecord is the per-voter state, keyed externally by fingerprint so the
// raw identity never appears in the record itself.
//
// Weight starts at the registered value and only ever grows (delegations add
// to it). HasVoted is a one-way latch set by either a direct vote or a
// delegation. After a delegation the caller's own Weight field is left as-is;
// the latch makes it unusable.
type VoterRecord struct {
	HasVoted         bool   `json:"has_voted"`
	Weight           uint64 `json:"weight"`
	VotedCandidateID int    `json:"voted_candidate_id,omitempty"`
	DelegateTarget   string `json:"delegate_target,omitempty"`
}

// Registered reports whether this record counts as registered. A zero-weight
// record is indistinguishable from an absent one.
func (v VoterRecord) Registered() bool {
	return v.Weight > 0
}

// Phase is the ledger lifecycle position. Transitions are strictly forward:
// Setup -> Open -> Closed.
type Phase int

const (
	PhaseSetup Phase = iota
	PhaseOpen
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseOpen:
		return "open"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}
