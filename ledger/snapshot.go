package ledger

import (
	"fmt"

	"voting-ledger/fingerprint"
	"voting-ledger/models"
)

// Snapshot is a serializable copy of the full ledger state, the contract a
// persistence adapter works against. Map keys and the admin key are hex
// fingerprints so the snapshot round-trips through JSON.
type Snapshot struct {
	AdminKey         string                        `json:"admin_key"`
	Candidates       []models.Candidate            `json:"candidates"`
	Voters           map[string]models.VoterRecord `json:"voters"`
	RegisteredWeight uint64                        `json:"registered_weight"`
	VotingStarted    bool                          `json:"voting_started"`
	VotingEnded      bool                          `json:"voting_ended"`
	Events           []models.Event                `json:"events"`
}

// Snapshot returns a consistent copy of the current state.
func (l *Ledger) Snapshot() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	candidates := make([]models.Candidate, len(l.candidates))
	copy(candidates, l.candidates)

	voters := make(map[string]models.VoterRecord, len(l.voters))
	for key, record := range l.voters {
		voters[key.Hex()] = *record
	}

	events := make([]models.Event, len(l.events))
	copy(events, l.events)

	return &Snapshot{
		AdminKey:         l.adminKey.Hex(),
		Candidates:       candidates,
		Voters:           voters,
		RegisteredWeight: l.registeredWeight,
		VotingStarted:    l.votingStarted,
		VotingEnded:      l.votingEnded,
		Events:           events,
	}
}

// FromSnapshot rebuilds a ledger from a snapshot. The fingerprinter must be
// the same scheme the snapshot was taken with, or stored keys will no longer
// line up with live identities.
func FromSnapshot(snapshot *Snapshot, fingerprinter fingerprint.Fingerprinter) (*Ledger, error) {
	adminKey, err := fingerprint.KeyFromHex(snapshot.AdminKey)
	if err != nil {
		return nil, fmt.Errorf("failed to restore admin key: %w", err)
	}

	voters := make(map[fingerprint.Key]*models.VoterRecord, len(snapshot.Voters))
	for hexKey, record := range snapshot.Voters {
		key, err := fingerprint.KeyFromHex(hexKey)
		if err != nil {
			return nil, fmt.Errorf("failed to restore voter key %s: %w", hexKey, err)
		}
		restored := record
		voters[key] = &restored
	}

	candidates := make([]models.Candidate, len(snapshot.Candidates))
	copy(candidates, snapshot.Candidates)

	events := make([]models.Event, len(snapshot.Events))
	copy(events, snapshot.Events)

	return &Ledger{
		fingerprinter:    fingerprinter,
		adminKey:         adminKey,
		candidates:       candidates,
		voters:           voters,
		registeredWeight: snapshot.RegisteredWeight,
		votingStarted:    snapshot.VotingStarted,
		votingEnded:      snapshot.VotingEnded,
		events:           events,
	}, nil
}
