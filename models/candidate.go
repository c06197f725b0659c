package models

// Candidate is a tally target. IDs are dense integers assigned sequentially
// starting at 1; id 0 is never a valid candidate.
type Candidate struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	VoteCount uint64 `json:"vote_count"`
}
