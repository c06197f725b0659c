package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"voting-ledger/ledger"
	"voting-ledger/service"
)

// Server exposes the ledger service over HTTP. Caller identities arrive in
// request bodies and are trusted as-is; authentication is the identity
// provider's job, the ledger only checks fingerprint equality.
type Server struct {
	ledgerService *service.LedgerService
}

type AddCandidateRequest struct {
	Caller string `json:"caller"`
	Name   string `json:"name"`
}

type AddCandidateResponse struct {
	CandidateID int `json:"candidate_id"`
}

type RegisterVoterRequest struct {
	Caller string `json:"caller"`
	Voter  string `json:"voter"`
	Weight uint64 `json:"weight"`
}

type PhaseRequest struct {
	Caller string `json:"caller"`
}

type CastVoteRequest struct {
	Voter       string `json:"voter"`
	CandidateID int    `json:"candidate_id"`
}

type DelegateRequest struct {
	Voter    string `json:"voter"`
	Delegate string `json:"delegate"`
}

type WinnerResponse struct {
	Winner string `json:"winner"`
}

func NewServer(ledgerService *service.LedgerService) *Server {
	return &Server{ledgerService: ledgerService}
}

// RegisterRoutes attaches all handlers to the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/admin/candidates", s.handleAddCandidate)
	mux.HandleFunc("/api/admin/register", s.handleRegisterVoter)
	mux.HandleFunc("/api/admin/start", s.handleStartVoting)
	mux.HandleFunc("/api/admin/end", s.handleEndVoting)
	mux.HandleFunc("/api/vote", s.handleCastVote)
	mux.HandleFunc("/api/delegate", s.handleDelegate)
	mux.HandleFunc("/api/winner", s.handleGetWinner)
	mux.HandleFunc("/api/candidates", s.handleGetCandidates)
	mux.HandleFunc("/api/status", s.handleGetStatus)
	mux.HandleFunc("/api/events", s.handleGetEvents)
	mux.HandleFunc("/api/events/verify", s.handleVerifyJournal)
	mux.HandleFunc("/api/metrics", s.handleGetMetrics)
}

// Start serves on the given port until the listener fails.
func (s *Server) Start(port int) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	log.Printf("Starting voting ledger API on :%d...", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}

func (s *Server) handleAddCandidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AddCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, err := s.ledgerService.AddCandidate(req.Caller, req.Name)
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AddCandidateResponse{CandidateID: id})
}

func (s *Server) handleRegisterVoter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RegisterVoterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.ledgerService.RegisterVoter(req.Caller, req.Voter, req.Weight); err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *Server) handleStartVoting(w http.ResponseWriter, r *http.Request) {
	s.handlePhaseChange(w, r, s.ledgerService.StartVoting)
}

func (s *Server) handleEndVoting(w http.ResponseWriter, r *http.Request) {
	s.handlePhaseChange(w, r, s.ledgerService.EndVoting)
}

func (s *Server) handlePhaseChange(w http.ResponseWriter, r *http.Request, transition func(string) error) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := transition(req.Caller); err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.ledgerService.CastVote(req.Voter, req.CandidateID); err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *Server) handleDelegate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DelegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.ledgerService.Delegate(req.Voter, req.Delegate); err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *Server) handleGetWinner(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	winner, err := s.ledgerService.Winner()
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(WinnerResponse{Winner: winner})
}

func (s *Server) handleGetCandidates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	candidates := s.ledgerService.Candidates()

	response := struct {
		Candidates interface{} `json:"candidates"`
		Count      int         `json:"total_candidates"`
	}{
		Candidates: candidates,
		Count:      len(candidates),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := s.ledgerService.GetVoterStatistics()

	response := struct {
		Phase            string      `json:"phase"`
		RegisteredVoters int         `json:"registered_voters"`
		VotedVoters      int         `json:"voted_voters"`
		RegisteredWeight uint64      `json:"registered_weight"`
		Voters           interface{} `json:"voters"`
	}{
		Phase:            s.ledgerService.Phase().String(),
		RegisteredVoters: stats.RegisteredCount,
		VotedVoters:      stats.VotedCount,
		RegisteredWeight: stats.RegisteredWeight,
		Voters:           stats.Voters,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	events := s.ledgerService.Events()

	response := struct {
		Events interface{} `json:"events"`
		Count  int         `json:"total_events"`
	}{
		Events: events,
		Count:  len(events),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleVerifyJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := struct {
		IsValid bool `json:"is_valid"`
	}{
		IsValid: s.ledgerService.VerifyJournal(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.ledgerService.GetMetrics())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrAlreadyRegistered), errors.Is(err, ledger.ErrAlreadyVoted):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrNoCandidates), errors.Is(err, ledger.ErrNoVotesCast):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
