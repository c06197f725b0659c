// Package ledger implements a single-authority weighted voting ledger with
// vote delegation. One admin registers candidates and voters, voters either
// cast a direct vote or delegate their weight to another registered voter,
// and after voting closes the candidate with the highest accumulated weight
// wins. The ledger is a deterministic in-memory state machine; persistence,
// authentication and transport live outside it.
package ledger

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"voting-ledger/fingerprint"
	"voting-ledger/models"
)

// Ledger is the voting state machine. All operations are atomic behind a
// single mutex: mutations take the write lock, queries the read lock, so no
// caller ever observes a partially-applied operation.
type Ledger struct {
	mu sync.RWMutex

	fingerprinter fingerprint.Fingerprinter
	adminKey      fingerprint.Key

	candidates []models.Candidate
	voters     map[fingerprint.Key]*models.VoterRecord

	// registeredWeight is the sum of all weights handed out at registration.
	// It is an auditing total and is deliberately not touched by delegation:
	// delegation moves weight between records, it does not register any.
	registeredWeight uint64

	votingStarted bool
	votingEnded   bool

	events []models.Event
}

// New creates an empty ledger in the Setup phase. The admin identity is
// fingerprinted once at construction; every admin-only operation checks the
// caller against it by key equality.
func New(adminIdentity string, fingerprinter fingerprint.Fingerprinter) *Ledger {
	return &Ledger{
		fingerprinter: fingerprinter,
		adminKey:      fingerprinter.Fingerprint(adminIdentity),
		candidates:    make([]models.Candidate, 0),
		voters:        make(map[fingerprint.Key]*models.VoterRecord),
		events:        make([]models.Event, 0),
	}
}

// AddCandidate registers a new candidate and returns its id. Admin only.
// No duplicate-name check. Allowed until voting has closed.
func (l *Ledger) AddCandidate(caller, name string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return 0, err
	}
	if l.votingEnded {
		return 0, fmt.Errorf("cannot add candidates after voting closed: %w", ErrInvalidPhase)
	}

	id := len(l.candidates) + 1
	l.candidates = append(l.candidates, models.Candidate{
		ID:   id,
		Name: name,
	})

	l.appendEvent(models.EventCandidateAdded, models.CandidateAddedPayload{
		CandidateID: id,
		Name:        name,
	})

	return id, nil
}

// RegisterVoter creates a voter record for the given identity with the given
// weight. Admin only. Zero weight is rejected outright: a zero-weight record
// would be indistinguishable from an absent one.
func (l *Ledger) RegisterVoter(caller, identity string, weight uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if weight == 0 {
		return ErrInvalidWeight
	}

	key := l.fingerprinter.Fingerprint(identity)
	if existing, ok := l.voters[key]; ok && existing.Registered() {
		return ErrAlreadyRegistered
	}

	l.voters[key] = &models.VoterRecord{Weight: weight}
	l.registeredWeight += weight

	l.appendEvent(models.EventVoterRegistered, models.VoterRegisteredPayload{
		Fingerprint: key.Hex(),
		Weight:      weight,
	})

	return nil
}

// StartVoting transitions Setup -> Open. Admin only.
func (l *Ledger) StartVoting(caller string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if l.phase() != models.PhaseSetup {
		return fmt.Errorf("cannot start voting in %s phase: %w", l.phase(), ErrInvalidPhase)
	}

	l.votingStarted = true
	l.appendEvent(models.EventVotingStarted, struct{}{})
	return nil
}

// EndVoting transitions Open -> Closed. Admin only.
func (l *Ledger) EndVoting(caller string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if l.phase() != models.PhaseOpen {
		return fmt.Errorf("cannot end voting in %s phase: %w", l.phase(), ErrInvalidPhase)
	}

	l.votingEnded = true
	l.appendEvent(models.EventVotingEnded, struct{}{})
	return nil
}

// Delegate transfers the caller's weight to another registered voter and
// latches the caller as voted. The transfer is single-hop, applied at call
// time: the ledger never resolves chains on its own. Two source quirks are
// preserved deliberately:
//
//   - the caller's own weight field is left as-is after the transfer (the
//     HasVoted latch is what makes it unusable), and
//   - a delegate who has already voted or delegated still absorbs the weight
//     even though it can never cast with it.
func (l *Ledger) Delegate(callerIdentity, delegateIdentity string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.phase() != models.PhaseOpen {
		return fmt.Errorf("voting is not open: %w", ErrInvalidPhase)
	}

	callerKey := l.fingerprinter.Fingerprint(callerIdentity)
	if existing, ok := l.voters[callerKey]; ok && existing.HasVoted {
		return ErrAlreadyVoted
	}

	delegateKey := l.fingerprinter.Fingerprint(delegateIdentity)
	delegate, ok := l.voters[delegateKey]
	if !ok || !delegate.Registered() {
		return ErrDelegateNotRegistered
	}

	caller := l.resolveVoter(callerKey)
	caller.HasVoted = true
	caller.DelegateTarget = delegateKey.Hex()
	delegate.Weight += caller.Weight

	l.appendEvent(models.EventDelegateAssigned, models.DelegateAssignedPayload{
		Fingerprint: callerKey.Hex(),
		Delegate:    delegateKey.Hex(),
	})

	return nil
}

// Vote casts a direct vote, adding the caller's current weight to the chosen
// candidate's count and latching the caller as voted.
func (l *Ledger) Vote(callerIdentity string, candidateID int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.phase() != models.PhaseOpen {
		return fmt.Errorf("voting is not open: %w", ErrInvalidPhase)
	}

	callerKey := l.fingerprinter.Fingerprint(callerIdentity)
	if existing, ok := l.voters[callerKey]; ok && existing.HasVoted {
		return ErrAlreadyVoted
	}

	if candidateID < 1 || candidateID > len(l.candidates) {
		return ErrInvalidCandidate
	}

	caller := l.resolveVoter(callerKey)
	caller.HasVoted = true
	caller.VotedCandidateID = candidateID
	l.candidates[candidateID-1].VoteCount += caller.Weight

	l.appendEvent(models.EventVoteCast, models.VoteCastPayload{
		Fingerprint: callerKey.Hex(),
		CandidateID: candidateID,
		Weight:      caller.Weight,
	})

	return nil
}

// Winner returns the name of the candidate with the highest vote count.
// Candidates are scanned in ascending id order with a strict > comparison, so
// the lowest id wins ties. Only valid once voting has closed.
func (l *Ledger) Winner() (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.phase() != models.PhaseClosed {
		return "", fmt.Errorf("voting has not closed: %w", ErrInvalidPhase)
	}
	if len(l.candidates) == 0 {
		return "", ErrNoCandidates
	}

	winningID := 0
	var winningCount uint64
	for _, candidate := range l.candidates {
		if candidate.VoteCount > winningCount {
			winningCount = candidate.VoteCount
			winningID = candidate.ID
		}
	}
	if winningID == 0 {
		return "", ErrNoVotesCast
	}

	return l.candidates[winningID-1].Name, nil
}

// Phase returns the current lifecycle phase.
func (l *Ledger) Phase() models.Phase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.phase()
}

// Candidates returns a copy of all candidates in id order.
func (l *Ledger) Candidates() []models.Candidate {
	l.mu.RLock()
	defer l.mu.RUnlock()

	candidates := make([]models.Candidate, len(l.candidates))
	copy(candidates, l.candidates)
	return candidates
}

// CandidateCount returns the number of registered candidates.
func (l *Ledger) CandidateCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.candidates)
}

// Voter looks up the record for an external identity.
func (l *Ledger) Voter(identity string) (models.VoterRecord, bool) {
	return l.VoterByKey(l.fingerprinter.Fingerprint(identity))
}

// VoterByKey looks up the record for a fingerprint key.
func (l *Ledger) VoterByKey(key fingerprint.Key) (models.VoterRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	record, ok := l.voters[key]
	if !ok {
		return models.VoterRecord{}, false
	}
	return *record, true
}

// Voters returns a copy of all voter records keyed by hex fingerprint.
func (l *Ledger) Voters() map[string]models.VoterRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	voters := make(map[string]models.VoterRecord, len(l.voters))
	for key, record := range l.voters {
		voters[key.Hex()] = *record
	}
	return voters
}

// RegisteredWeight returns the monotonic total of all registered weights.
func (l *Ledger) RegisteredWeight() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registeredWeight
}

// Events returns a copy of the journal in emission order.
func (l *Ledger) Events() []models.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	events := make([]models.Event, len(l.events))
	copy(events, l.events)
	return events
}

// VerifyJournal checks the hash links and sequence of the event journal.
func (l *Ledger) VerifyJournal() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return models.ValidateJournal(l.events)
}

// IsAdmin reports whether the given identity fingerprints to the admin key.
func (l *Ledger) IsAdmin(identity string) bool {
	return l.fingerprinter.Fingerprint(identity) == l.adminKey
}

func (l *Ledger) requireAdmin(caller string) error {
	if l.fingerprinter.Fingerprint(caller) != l.adminKey {
		return ErrUnauthorized
	}
	return nil
}

func (l *Ledger) phase() models.Phase {
	switch {
	case l.votingEnded:
		return models.PhaseClosed
	case l.votingStarted:
		return models.PhaseOpen
	default:
		return models.PhaseSetup
	}
}

// resolveVoter returns the record for a key, lazily creating a zero-weight
// one. Mirrors the source's map semantics: an unregistered identity can still
// vote or delegate, contributing zero weight and burning its latch.
func (l *Ledger) resolveVoter(key fingerprint.Key) *models.VoterRecord {
	if record, ok := l.voters[key]; ok {
		return record
	}
	record := &models.VoterRecord{}
	l.voters[key] = record
	return record
}

func (l *Ledger) appendEvent(eventType models.EventType, payload interface{}) {
	data, _ := json.Marshal(payload)
	event := models.NewEvent(
		uuid.New().String(),
		uint64(len(l.events)),
		eventType,
		data,
		l.lastEventHash(),
	)
	l.events = append(l.events, event)
}

func (l *Ledger) lastEventHash() []byte {
	if len(l.events) == 0 {
		return make([]byte, 32)
	}
	return l.events[len(l.events)-1].Hash
}
