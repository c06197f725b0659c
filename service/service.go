package service

import (
	"log"
	"time"

	"voting-ledger/fingerprint"
	"voting-ledger/ledger"
	"voting-ledger/models"
	"voting-ledger/storage"
)

// LedgerService composes the core ledger with persistence and metrics. Every
// successful mutation is followed by a snapshot and journal save, so the
// on-disk state always reflects the last completed operation.
type LedgerService struct {
	ledger  *ledger.Ledger
	store   *storage.SnapshotStore
	metrics *MetricsCollector
}

// VoterStatistics summarizes voter participation for status queries.
type VoterStatistics struct {
	RegisteredCount  int                           `json:"registered_count"`
	VotedCount       int                           `json:"voted_count"`
	RegisteredWeight uint64                        `json:"registered_weight"`
	Voters           map[string]models.VoterRecord `json:"voters"`
}

// NewLedgerService wraps a ledger. store may be nil for purely in-memory use.
func NewLedgerService(l *ledger.Ledger, store *storage.SnapshotStore) *LedgerService {
	return &LedgerService{
		ledger:  l,
		store:   store,
		metrics: NewMetricsCollector(),
	}
}

// LoadOrCreate restores a ledger from the latest snapshot in the store, or
// creates a fresh one for the given admin identity if no snapshot exists.
func LoadOrCreate(store *storage.SnapshotStore, adminIdentity string, fingerprinter fingerprint.Fingerprinter) (*ledger.Ledger, error) {
	snapshot, err := store.LoadLatestSnapshot()
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return ledger.New(adminIdentity, fingerprinter), nil
	}
	return ledger.FromSnapshot(snapshot, fingerprinter)
}

func (s *LedgerService) AddCandidate(caller, name string) (int, error) {
	id, err := s.ledger.AddCandidate(caller, name)
	if err != nil {
		return 0, err
	}
	s.persist()
	return id, nil
}

func (s *LedgerService) RegisterVoter(caller, identity string, weight uint64) error {
	s.metrics.RecordRegistrationStart()
	startTime := time.Now()

	err := s.ledger.RegisterVoter(caller, identity, weight)

	s.metrics.RecordRegistrationEnd(time.Since(startTime))
	if err != nil {
		return err
	}
	s.persist()
	return nil
}

func (s *LedgerService) StartVoting(caller string) error {
	if err := s.ledger.StartVoting(caller); err != nil {
		return err
	}
	s.metrics.StartVotingPhase()
	s.persist()
	return nil
}

func (s *LedgerService) EndVoting(caller string) error {
	if err := s.ledger.EndVoting(caller); err != nil {
		return err
	}
	s.metrics.EndVotingPhase()
	s.persist()
	return nil
}

func (s *LedgerService) CastVote(voter string, candidateID int) error {
	s.metrics.RecordVotingStart()
	startTime := time.Now()

	err := s.ledger.Vote(voter, candidateID)

	s.metrics.RecordVotingEnd(time.Since(startTime))
	if err != nil {
		return err
	}
	s.persist()
	return nil
}

func (s *LedgerService) Delegate(voter, delegate string) error {
	s.metrics.RecordDelegationStart()
	startTime := time.Now()

	err := s.ledger.Delegate(voter, delegate)

	s.metrics.RecordDelegationEnd(time.Since(startTime))
	if err != nil {
		return err
	}
	s.persist()
	return nil
}

func (s *LedgerService) Winner() (string, error) {
	s.metrics.RecordCountingStart()
	defer s.metrics.RecordCountingEnd()

	return s.ledger.Winner()
}

func (s *LedgerService) Phase() models.Phase {
	return s.ledger.Phase()
}

func (s *LedgerService) Candidates() []models.Candidate {
	return s.ledger.Candidates()
}

func (s *LedgerService) Voter(identity string) (models.VoterRecord, bool) {
	return s.ledger.Voter(identity)
}

func (s *LedgerService) Events() []models.Event {
	return s.ledger.Events()
}

func (s *LedgerService) VerifyJournal() bool {
	return s.ledger.VerifyJournal()
}

func (s *LedgerService) GetVoterStatistics() *VoterStatistics {
	voters := s.ledger.Voters()

	stats := &VoterStatistics{
		RegisteredWeight: s.ledger.RegisteredWeight(),
		Voters:           voters,
	}

	for _, record := range voters {
		if record.Registered() {
			stats.RegisteredCount++
		}
		if record.HasVoted {
			stats.VotedCount++
		}
	}

	return stats
}

func (s *LedgerService) GetMetrics() MetricsResponse {
	return s.metrics.GetMetrics()
}

func (s *LedgerService) persist() {
	if s.store == nil {
		return
	}
	if err := s.store.SaveSnapshot(s.ledger.Snapshot()); err != nil {
		log.Printf("Warning: Failed to save ledger snapshot: %v", err)
	}
	if err := s.store.SaveJournal(s.ledger.Events()); err != nil {
		log.Printf("Warning: Failed to save event journal: %v", err)
	}
}
