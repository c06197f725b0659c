package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"voting-ledger/fingerprint"
	"voting-ledger/models"
)

const admin = "admin"

// identityFingerprinter copies the identity bytes into the key, so tests can
// reason about keys directly. Production uses the keccak fingerprinter.
type identityFingerprinter struct{}

func (identityFingerprinter) Fingerprint(identity string) fingerprint.Key {
	var key fingerprint.Key
	copy(key[:], identity)
	return key
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return New(admin, identityFingerprinter{})
}

// openLedger returns a ledger with two candidates and three weighted voters,
// voting open.
func openLedger(t *testing.T) *Ledger {
	t.Helper()
	l := newTestLedger(t)

	_, err := l.AddCandidate(admin, "Alice")
	require.NoError(t, err)
	_, err = l.AddCandidate(admin, "Bob")
	require.NoError(t, err)

	require.NoError(t, l.RegisterVoter(admin, "voterA", 5))
	require.NoError(t, l.RegisterVoter(admin, "voterB", 3))
	require.NoError(t, l.RegisterVoter(admin, "voterC", 2))
	require.NoError(t, l.StartVoting(admin))
	return l
}

func TestAddCandidate(t *testing.T) {
	l := newTestLedger(t)

	id, err := l.AddCandidate(admin, "Alice")
	require.NoError(t, err)
	require.Equal(t, 1, id)

	// Duplicate names are allowed; ids stay dense.
	id, err = l.AddCandidate(admin, "Alice")
	require.NoError(t, err)
	require.Equal(t, 2, id)

	_, err = l.AddCandidate("stranger", "Mallory")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, 2, l.CandidateCount())
}

func TestAddCandidateAfterClose(t *testing.T) {
	l := openLedger(t)
	require.NoError(t, l.EndVoting(admin))

	_, err := l.AddCandidate(admin, "Latecomer")
	require.ErrorIs(t, err, ErrInvalidPhase)
}

func TestAddCandidateWhileOpen(t *testing.T) {
	// The source never hard-enforced a setup-only window for candidates;
	// adding while voting is open stays legal.
	l := openLedger(t)

	id, err := l.AddCandidate(admin, "Latecomer")
	require.NoError(t, err)
	require.Equal(t, 3, id)
}

func TestRegisterVoter(t *testing.T) {
	l := newTestLedger(t)

	require.NoError(t, l.RegisterVoter(admin, "voterA", 5))
	record, ok := l.Voter("voterA")
	require.True(t, ok)
	require.Equal(t, uint64(5), record.Weight)
	require.False(t, record.HasVoted)
	require.Equal(t, uint64(5), l.RegisteredWeight())

	tests := []struct {
		name     string
		caller   string
		identity string
		weight   uint64
		wantErr  error
	}{
		{
			name:     "duplicate registration",
			caller:   admin,
			identity: "voterA",
			weight:   7,
			wantErr:  ErrAlreadyRegistered,
		},
		{
			name:     "duplicate with different weight",
			caller:   admin,
			identity: "voterA",
			weight:   1,
			wantErr:  ErrAlreadyRegistered,
		},
		{
			name:     "zero weight rejected",
			caller:   admin,
			identity: "voterB",
			weight:   0,
			wantErr:  ErrInvalidWeight,
		},
		{
			name:     "non-admin caller",
			caller:   "voterA",
			identity: "voterB",
			weight:   3,
			wantErr:  ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.RegisterVoter(tt.caller, tt.identity, tt.weight)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	// None of the failures registered anything or touched the total.
	_, ok = l.Voter("voterB")
	require.False(t, ok)
	require.Equal(t, uint64(5), l.RegisteredWeight())
}

func TestPhaseTransitions(t *testing.T) {
	l := newTestLedger(t)
	require.Equal(t, models.PhaseSetup, l.Phase())

	// Ending before starting is out of order.
	require.ErrorIs(t, l.EndVoting(admin), ErrInvalidPhase)

	require.ErrorIs(t, l.StartVoting("stranger"), ErrUnauthorized)
	require.NoError(t, l.StartVoting(admin))
	require.Equal(t, models.PhaseOpen, l.Phase())

	// Starting twice fails; phases are strictly forward.
	require.ErrorIs(t, l.StartVoting(admin), ErrInvalidPhase)

	require.NoError(t, l.EndVoting(admin))
	require.Equal(t, models.PhaseClosed, l.Phase())
	require.ErrorIs(t, l.EndVoting(admin), ErrInvalidPhase)
	require.ErrorIs(t, l.StartVoting(admin), ErrInvalidPhase)
}

func TestVote(t *testing.T) {
	l := openLedger(t)

	require.NoError(t, l.Vote("voterA", 1))

	candidates := l.Candidates()
	require.Equal(t, uint64(5), candidates[0].VoteCount)

	record, ok := l.Voter("voterA")
	require.True(t, ok)
	require.True(t, record.HasVoted)
	require.Equal(t, 1, record.VotedCandidateID)

	// The latch covers both voting and delegating.
	require.ErrorIs(t, l.Vote("voterA", 2), ErrAlreadyVoted)
	require.ErrorIs(t, l.Delegate("voterA", "voterB"), ErrAlreadyVoted)
}

func TestVoteInvalidCandidate(t *testing.T) {
	l := openLedger(t)

	for _, id := range []int{0, -1, 3, 100} {
		require.ErrorIs(t, l.Vote("voterA", id), ErrInvalidCandidate)
	}

	// The failed attempts did not burn the voter's latch.
	record, _ := l.Voter("voterA")
	require.False(t, record.HasVoted)
}

func TestVoteRequiresOpenPhase(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.AddCandidate(admin, "Alice")
	require.NoError(t, err)
	require.NoError(t, l.RegisterVoter(admin, "voterA", 5))

	require.ErrorIs(t, l.Vote("voterA", 1), ErrInvalidPhase)
	require.ErrorIs(t, l.Delegate("voterA", "voterA"), ErrInvalidPhase)

	require.NoError(t, l.StartVoting(admin))
	require.NoError(t, l.EndVoting(admin))

	require.ErrorIs(t, l.Vote("voterA", 1), ErrInvalidPhase)
}

func TestDelegate(t *testing.T) {
	l := openLedger(t)

	require.NoError(t, l.Delegate("voterB", "voterC"))

	delegate, _ := l.Voter("voterC")
	require.Equal(t, uint64(5), delegate.Weight)
	require.False(t, delegate.HasVoted)

	// Quirk preserved: the caller keeps its stale weight field, only the
	// latch makes it unusable.
	caller, _ := l.Voter("voterB")
	require.True(t, caller.HasVoted)
	require.Equal(t, uint64(3), caller.Weight)
	require.NotEmpty(t, caller.DelegateTarget)

	require.ErrorIs(t, l.Delegate("voterB", "voterA"), ErrAlreadyVoted)
	require.ErrorIs(t, l.Vote("voterB", 1), ErrAlreadyVoted)
}

func TestDelegateToUnregistered(t *testing.T) {
	l := openLedger(t)

	require.ErrorIs(t, l.Delegate("voterA", "nobody"), ErrDelegateNotRegistered)

	// Nothing mutated: caller can still vote with full weight.
	record, _ := l.Voter("voterA")
	require.False(t, record.HasVoted)
	require.Equal(t, uint64(5), record.Weight)
}

func TestDelegateAbsorbedWeight(t *testing.T) {
	// A delegate who already voted (or delegated away) still absorbs incoming
	// weight; the accumulation is inert because the latch blocks any use.
	l := openLedger(t)

	require.NoError(t, l.Vote("voterC", 2))
	require.NoError(t, l.Delegate("voterB", "voterC"))

	delegate, _ := l.Voter("voterC")
	require.True(t, delegate.HasVoted)
	require.Equal(t, uint64(5), delegate.Weight)

	// The candidate count was fixed at vote time and does not grow.
	require.Equal(t, uint64(2), l.Candidates()[1].VoteCount)
}

func TestDelegationIsSingleHop(t *testing.T) {
	l := openLedger(t)

	// B -> C, then C -> A: only C's weight at call time (2+3) moves to A.
	// The ledger never re-resolves chains.
	require.NoError(t, l.Delegate("voterB", "voterC"))
	require.NoError(t, l.Delegate("voterC", "voterA"))

	receiver, _ := l.Voter("voterA")
	require.Equal(t, uint64(10), receiver.Weight)
}

func TestDelegationDoesNotTouchRegisteredWeight(t *testing.T) {
	l := openLedger(t)
	require.Equal(t, uint64(10), l.RegisteredWeight())

	require.NoError(t, l.Delegate("voterB", "voterC"))
	require.Equal(t, uint64(10), l.RegisteredWeight())
}

func TestWinnerScenario(t *testing.T) {
	// Delegation before the delegate votes: the combined weight counts.
	l := openLedger(t)
	require.NoError(t, l.Vote("voterA", 1))
	require.NoError(t, l.Delegate("voterB", "voterC"))
	require.NoError(t, l.Vote("voterC", 2))
	require.NoError(t, l.EndVoting(admin))

	candidates := l.Candidates()
	require.Equal(t, uint64(5), candidates[0].VoteCount)
	require.Equal(t, uint64(5), candidates[1].VoteCount)

	// Tie at 5: strict > keeps the first maximum, so the lower id wins.
	winner, err := l.Winner()
	require.NoError(t, err)
	require.Equal(t, "Alice", winner)
}

func TestWinnerScenarioDelegationAfterVote(t *testing.T) {
	// Same sequence, but C votes before B delegates: only C's own weight
	// lands on candidate 2.
	l := openLedger(t)
	require.NoError(t, l.Vote("voterA", 1))
	require.NoError(t, l.Vote("voterC", 2))
	require.NoError(t, l.Delegate("voterB", "voterC"))
	require.NoError(t, l.EndVoting(admin))

	candidates := l.Candidates()
	require.Equal(t, uint64(5), candidates[0].VoteCount)
	require.Equal(t, uint64(2), candidates[1].VoteCount)

	winner, err := l.Winner()
	require.NoError(t, err)
	require.Equal(t, "Alice", winner)
}

func TestWinnerPhaseAndRepeatability(t *testing.T) {
	l := openLedger(t)
	require.NoError(t, l.Vote("voterA", 1))

	_, err := l.Winner()
	require.ErrorIs(t, err, ErrInvalidPhase)

	require.NoError(t, l.EndVoting(admin))

	first, err := l.Winner()
	require.NoError(t, err)
	second, err := l.Winner()
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestWinnerNoCandidates(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.StartVoting(admin))
	require.NoError(t, l.EndVoting(admin))

	_, err := l.Winner()
	require.ErrorIs(t, err, ErrNoCandidates)
}

func TestWinnerNoVotesCast(t *testing.T) {
	l := openLedger(t)
	require.NoError(t, l.EndVoting(admin))

	_, err := l.Winner()
	require.ErrorIs(t, err, ErrNoVotesCast)
}

func TestWeightConservation(t *testing.T) {
	// After closing, the candidate counts sum to the weights held by direct
	// voters at the moment they voted; delegation alone adds nothing.
	l := openLedger(t)
	require.NoError(t, l.Delegate("voterB", "voterC"))
	require.NoError(t, l.Vote("voterA", 1))
	require.NoError(t, l.Vote("voterC", 2))
	require.NoError(t, l.EndVoting(admin))

	var tallied uint64
	for _, candidate := range l.Candidates() {
		tallied += candidate.VoteCount
	}

	var directWeights uint64
	for _, record := range l.Voters() {
		if record.VotedCandidateID != 0 {
			directWeights += record.Weight
		}
	}

	require.Equal(t, directWeights, tallied)
}

func TestUnregisteredVoterContributesNothing(t *testing.T) {
	// Source map semantics: an unregistered identity can vote or delegate,
	// contributing zero weight and burning its one latch.
	l := openLedger(t)

	require.NoError(t, l.Vote("ghost", 1))
	require.Equal(t, uint64(0), l.Candidates()[0].VoteCount)
	require.ErrorIs(t, l.Vote("ghost", 1), ErrAlreadyVoted)

	require.NoError(t, l.Delegate("phantom", "voterC"))
	delegate, _ := l.Voter("voterC")
	require.Equal(t, uint64(2), delegate.Weight)
}

func TestDeterministicReplay(t *testing.T) {
	run := func() *Ledger {
		l := openLedger(t)
		require.NoError(t, l.Vote("voterA", 1))
		require.NoError(t, l.Delegate("voterB", "voterC"))
		require.NoError(t, l.Vote("voterC", 2))
		require.NoError(t, l.EndVoting(admin))
		return l
	}

	first := run()
	second := run()

	require.Equal(t, first.Candidates(), second.Candidates())
	require.Equal(t, first.Voters(), second.Voters())

	firstWinner, err := first.Winner()
	require.NoError(t, err)
	secondWinner, err := second.Winner()
	require.NoError(t, err)
	require.Equal(t, firstWinner, secondWinner)
}

func TestEventJournal(t *testing.T) {
	l := openLedger(t)
	require.NoError(t, l.Vote("voterA", 1))
	require.NoError(t, l.Delegate("voterB", "voterC"))
	require.NoError(t, l.EndVoting(admin))

	events := l.Events()
	wantTypes := []models.EventType{
		models.EventCandidateAdded,
		models.EventCandidateAdded,
		models.EventVoterRegistered,
		models.EventVoterRegistered,
		models.EventVoterRegistered,
		models.EventVotingStarted,
		models.EventVoteCast,
		models.EventDelegateAssigned,
		models.EventVotingEnded,
	}
	require.Len(t, events, len(wantTypes))
	for i, event := range events {
		require.Equal(t, wantTypes[i], event.Type)
		require.Equal(t, uint64(i), event.Sequence)
		require.NotEmpty(t, event.ID)
	}

	require.True(t, l.VerifyJournal())
}

func TestFailedOperationsEmitNoEvents(t *testing.T) {
	l := openLedger(t)
	before := len(l.Events())

	require.Error(t, l.Vote("voterA", 99))
	require.Error(t, l.Delegate("voterA", "nobody"))
	require.Error(t, l.RegisterVoter("stranger", "voterD", 1))

	require.Len(t, l.Events(), before)
}

func TestSnapshotRestore(t *testing.T) {
	l := openLedger(t)
	require.NoError(t, l.Vote("voterA", 1))
	require.NoError(t, l.Delegate("voterB", "voterC"))

	restored, err := FromSnapshot(l.Snapshot(), identityFingerprinter{})
	require.NoError(t, err)

	require.Equal(t, l.Phase(), restored.Phase())
	require.Equal(t, l.Candidates(), restored.Candidates())
	require.Equal(t, l.Voters(), restored.Voters())
	require.Equal(t, l.RegisteredWeight(), restored.RegisteredWeight())
	require.Equal(t, l.Events(), restored.Events())
	require.True(t, restored.VerifyJournal())

	// The restored ledger keeps working: same admin, same latches.
	require.ErrorIs(t, restored.Vote("voterA", 2), ErrAlreadyVoted)
	require.NoError(t, restored.Vote("voterC", 2))
	require.NoError(t, restored.EndVoting(admin))

	winner, err := restored.Winner()
	require.NoError(t, err)
	require.Equal(t, "Alice", winner)
}

func TestIsAdmin(t *testing.T) {
	l := newTestLedger(t)
	require.True(t, l.IsAdmin(admin))
	require.False(t, l.IsAdmin("voterA"))
}
