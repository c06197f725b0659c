package models

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

type EventType string

const (
	EventCandidateAdded   EventType = "candidate_added"
	EventVoterRegistered  EventType = "voter_registered"
	EventDelegateAssigned EventType = "delegate_assigned"
	EventVoteCast         EventType = "vote_cast"
	EventVotingStarted    EventType = "voting_started"
	EventVotingEnded      EventType = "voting_ended"
)

// Event is one entry in the ledger's ordered journal. Every successful
// mutation appends exactly one event, in call-completion order. Entries are
// hash-linked so an auditor can verify that the journal was not reordered or
// rewritten after the fact.
type Event struct {
	ID        string          `json:"id"`
	Sequence  uint64          `json:"sequence"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	PrevHash  []byte          `json:"prev_hash"`
	Hash      []byte          `json:"hash"`
}

// Event payloads, one per mutating operation.
type CandidateAddedPayload struct {
	CandidateID int    `json:"candidate_id"`
	Name        string `json:"name"`
}

type VoterRegisteredPayload struct {
	Fingerprint string `json:"fingerprint"`
	Weight      uint64 `json:"weight"`
}

type DelegateAssignedPayload struct {
	Fingerprint string `json:"fingerprint"`
	Delegate    string `json:"delegate"`
}

type VoteCastPayload struct {
	Fingerprint string `json:"fingerprint"`
	CandidateID int    `json:"candidate_id"`
	Weight      uint64 `json:"weight"`
}

func NewEvent(id string, sequence uint64, eventType EventType, payload json.RawMessage, prevHash []byte) Event {
	event := Event{
		ID:        id,
		Sequence:  sequence,
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Payload:   payload,
		PrevHash:  prevHash,
	}
	event.Hash = event.calculateHash()
	return event
}

func (e *Event) calculateHash() []byte {
	buffer := new(bytes.Buffer)
	binary.Write(buffer, binary.BigEndian, e.Sequence)
	binary.Write(buffer, binary.BigEndian, e.Timestamp)
	buffer.WriteString(string(e.Type))
	buffer.Write(compactPayload(e.Payload))
	buffer.Write(e.PrevHash)

	return crypto.Keccak256(buffer.Bytes())
}

// compactPayload strips insignificant whitespace so a journal re-indented by
// a persistence round trip still hashes to the same value.
func compactPayload(payload json.RawMessage) []byte {
	compacted := new(bytes.Buffer)
	if err := json.Compact(compacted, payload); err != nil {
		return payload
	}
	return compacted.Bytes()
}

// Validate verifies the stored hash against a recalculation.
func (e *Event) Validate() bool {
	return bytes.Equal(e.Hash, e.calculateHash())
}

// ValidateJournal validates the entire event journal: per-entry hashes,
// hash links, and dense ascending sequence numbers.
func ValidateJournal(events []Event) bool {
	if len(events) == 0 {
		return true
	}

	if !events[0].Validate() {
		fmt.Printf("Journal validation: genesis event invalid\nHash: %x\nCalculated Hash: %x\n",
			events[0].Hash, events[0].calculateHash())
		return false
	}

	for i := 1; i < len(events); i++ {
		current := events[i]
		previous := events[i-1]

		if !current.Validate() {
			fmt.Printf("Journal validation: event %d has invalid hash\n", i)
			return false
		}

		if !bytes.Equal(current.PrevHash, previous.Hash) {
			fmt.Printf("Journal validation: event %d has invalid previous hash link\n", i)
			return false
		}

		if current.Sequence != previous.Sequence+1 {
			fmt.Printf("Journal validation: event %d has invalid sequence\n", i)
			return false
		}
	}

	return true
}
