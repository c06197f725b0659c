package service

import (
	"log"
	"sync"
	"time"
)

// QueueProcessor serializes mutating requests against a ledger service
// through channel-fed workers: a single worker per channel gives the
// actor-style total ordering the ledger requires without callers contending
// on the lock directly.
type QueueProcessor struct {
	ledgerService  *LedgerService
	registrationCh chan *RegistrationRequest
	ballotCh       chan *BallotRequest
	processingWg   sync.WaitGroup
	shutdownCh     chan struct{}
}

// RegistrationRequest represents a queued voter registration request
type RegistrationRequest struct {
	Caller   string
	Identity string
	Weight   uint64
	ResultCh chan<- *ProcessingResult
}

// BallotKind distinguishes direct votes from delegations on the ballot queue.
type BallotKind int

const (
	BallotVote BallotKind = iota
	BallotDelegate
)

// BallotRequest represents a queued vote or delegation request
type BallotRequest struct {
	Kind        BallotKind
	Voter       string
	CandidateID int
	Delegate    string
	ResultCh    chan<- *ProcessingResult
}

// ProcessingResult contains the result of an asynchronous operation
type ProcessingResult struct {
	Success      bool
	Identity     string
	ErrorMessage string
	Timestamp    int64
}

// NewQueueProcessor creates a new queue processor
func NewQueueProcessor(ledgerService *LedgerService, queueSize int) *QueueProcessor {
	return &QueueProcessor{
		ledgerService:  ledgerService,
		registrationCh: make(chan *RegistrationRequest, queueSize),
		ballotCh:       make(chan *BallotRequest, queueSize),
		shutdownCh:     make(chan struct{}),
	}
}

// Start begins processing queued registrations and ballots
func (qp *QueueProcessor) Start() {
	qp.processingWg.Add(1)
	go qp.registrationWorker()

	qp.processingWg.Add(1)
	go qp.ballotWorker()
}

// Stop gracefully shuts down the queue processor
func (qp *QueueProcessor) Stop() {
	close(qp.shutdownCh)
	qp.processingWg.Wait()
}

// QueueRegistration adds a voter registration request to the processing queue
func (qp *QueueProcessor) QueueRegistration(caller, identity string, weight uint64) <-chan *ProcessingResult {
	resultCh := make(chan *ProcessingResult, 1)
	select {
	case qp.registrationCh <- &RegistrationRequest{
		Caller:   caller,
		Identity: identity,
		Weight:   weight,
		ResultCh: resultCh,
	}:
		return resultCh
	default:
		resultCh <- &ProcessingResult{
			Success:      false,
			ErrorMessage: "registration queue is full",
		}
		close(resultCh)
		return resultCh
	}
}

// QueueVote adds a vote casting request to the processing queue
func (qp *QueueProcessor) QueueVote(voter string, candidateID int) <-chan *ProcessingResult {
	return qp.queueBallot(&BallotRequest{
		Kind:        BallotVote,
		Voter:       voter,
		CandidateID: candidateID,
	})
}

// QueueDelegation adds a delegation request to the processing queue
func (qp *QueueProcessor) QueueDelegation(voter, delegate string) <-chan *ProcessingResult {
	return qp.queueBallot(&BallotRequest{
		Kind:     BallotDelegate,
		Voter:    voter,
		Delegate: delegate,
	})
}

func (qp *QueueProcessor) queueBallot(req *BallotRequest) <-chan *ProcessingResult {
	resultCh := make(chan *ProcessingResult, 1)
	req.ResultCh = resultCh
	select {
	case qp.ballotCh <- req:
		return resultCh
	default:
		resultCh <- &ProcessingResult{
			Success:      false,
			ErrorMessage: "ballot queue is full",
		}
		close(resultCh)
		return resultCh
	}
}

// registrationWorker processes queued voter registrations
func (qp *QueueProcessor) registrationWorker() {
	defer qp.processingWg.Done()

	for {
		select {
		case <-qp.shutdownCh:
			return
		case req := <-qp.registrationCh:
			err := qp.ledgerService.RegisterVoter(req.Caller, req.Identity, req.Weight)

			if err != nil {
				req.ResultCh <- &ProcessingResult{
					Success:      false,
					Identity:     req.Identity,
					ErrorMessage: err.Error(),
				}
			} else {
				req.ResultCh <- &ProcessingResult{
					Success:   true,
					Identity:  req.Identity,
					Timestamp: time.Now().Unix(),
				}
			}
			close(req.ResultCh)
		}
	}
}

// ballotWorker processes queued votes and delegations
func (qp *QueueProcessor) ballotWorker() {
	defer qp.processingWg.Done()

	for {
		select {
		case <-qp.shutdownCh:
			return
		case req := <-qp.ballotCh:
			var err error
			switch req.Kind {
			case BallotVote:
				err = qp.ledgerService.CastVote(req.Voter, req.CandidateID)
			case BallotDelegate:
				err = qp.ledgerService.Delegate(req.Voter, req.Delegate)
			default:
				log.Printf("Warning: unknown ballot kind %d for voter %s", req.Kind, req.Voter)
				continue
			}

			if err != nil {
				req.ResultCh <- &ProcessingResult{
					Success:      false,
					Identity:     req.Voter,
					ErrorMessage: err.Error(),
				}
			} else {
				req.ResultCh <- &ProcessingResult{
					Success:   true,
					Identity:  req.Voter,
					Timestamp: time.Now().Unix(),
				}
			}
			close(req.ResultCh)
		}
	}
}
