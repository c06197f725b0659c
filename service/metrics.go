package service

import (
	"sync"
	"time"
)

// MetricsCollector tracks performance metrics for different operations
type MetricsCollector struct {
	mu sync.RWMutex

	registrationCount     int
	registrationTotalTime time.Duration

	votingCount     int
	votingTotalTime time.Duration

	delegationCount     int
	delegationTotalTime time.Duration

	votingPhaseStarted   bool
	votingPhaseStartTime time.Time
	votingPhaseEndTime   time.Time
	votingPhaseDuration  time.Duration

	countingStartTime      time.Time
	countingEndTime        time.Time
	countingProcessingTime time.Duration
}

// OperationMetrics contains timing information for an operation
type OperationMetrics struct {
	Count          int   `json:"count"`
	ProcessingTime int64 `json:"processing_time_ms"`
}

// MetricsResponse provides the metrics for all operations
type MetricsResponse struct {
	Registration OperationMetrics `json:"registration"`
	Voting       OperationMetrics `json:"voting"`
	Delegation   OperationMetrics `json:"delegation"`
	Counting     OperationMetrics `json:"counting"`
	PhaseMetrics PhaseMetrics     `json:"voting_phase"`
}

// PhaseMetrics covers the open-voting window.
type PhaseMetrics struct {
	StartTime  time.Time `json:"start_time,omitempty"`
	EndTime    time.Time `json:"end_time,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

func (mc *MetricsCollector) StartVotingPhase() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.votingPhaseStarted = true
	mc.votingPhaseStartTime = time.Now()
}

func (mc *MetricsCollector) EndVotingPhase() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.votingPhaseStarted {
		mc.votingPhaseEndTime = time.Now()
		mc.votingPhaseDuration = mc.votingPhaseEndTime.Sub(mc.votingPhaseStartTime)
	}
}

func (mc *MetricsCollector) RecordRegistrationStart() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.registrationCount++
}

func (mc *MetricsCollector) RecordRegistrationEnd(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.registrationTotalTime += duration
}

func (mc *MetricsCollector) RecordVotingStart() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.votingCount++
}

func (mc *MetricsCollector) RecordVotingEnd(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.votingTotalTime += duration
}

func (mc *MetricsCollector) RecordDelegationStart() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.delegationCount++
}

func (mc *MetricsCollector) RecordDelegationEnd(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.delegationTotalTime += duration
}

func (mc *MetricsCollector) RecordCountingStart() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.countingStartTime = time.Now()
}

func (mc *MetricsCollector) RecordCountingEnd() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.countingEndTime = time.Now()
	mc.countingProcessingTime = mc.countingEndTime.Sub(mc.countingStartTime)
}

// GetMetrics returns current metrics for all operations
func (mc *MetricsCollector) GetMetrics() MetricsResponse {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return MetricsResponse{
		Registration: OperationMetrics{
			Count:          mc.registrationCount,
			ProcessingTime: mc.registrationTotalTime.Milliseconds(),
		},
		Voting: OperationMetrics{
			Count:          mc.votingCount,
			ProcessingTime: mc.votingTotalTime.Milliseconds(),
		},
		Delegation: OperationMetrics{
			Count:          mc.delegationCount,
			ProcessingTime: mc.delegationTotalTime.Milliseconds(),
		},
		Counting: OperationMetrics{
			Count:          1,
			ProcessingTime: mc.countingProcessingTime.Milliseconds(),
		},
		PhaseMetrics: PhaseMetrics{
			StartTime:  mc.votingPhaseStartTime,
			EndTime:    mc.votingPhaseEndTime,
			DurationMs: mc.votingPhaseDuration.Milliseconds(),
		},
	}
}

// Reset clears all metrics
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.registrationCount = 0
	mc.registrationTotalTime = 0
	mc.votingCount = 0
	mc.votingTotalTime = 0
	mc.delegationCount = 0
	mc.delegationTotalTime = 0
	mc.votingPhaseStarted = false
	mc.votingPhaseStartTime = time.Time{}
	mc.votingPhaseEndTime = time.Time{}
	mc.votingPhaseDuration = 0
	mc.countingStartTime = time.Time{}
	mc.countingEndTime = time.Time{}
	mc.countingProcessingTime = 0
}
