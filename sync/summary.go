package sync

import (
	gosync "sync"
	"time"

	"github.com/harborview/crmsync/metrics"
)

// Drain run statuses
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Summary is the outcome accounting for one drain run
type Summary struct {
	RunID          string    `json:"run_id"`
	Status         string    `json:"status"`
	JobsProcessed  int       `json:"jobs_processed"`
	JobsSucceeded  int       `json:"jobs_succeeded"`
	JobsConflicts  int       `json:"jobs_conflicts"`
	JobsRequeued   int       `json:"jobs_requeued"`
	JobsFailed     int       `json:"jobs_failed"`
	JobsMaxRetries int       `json:"jobs_max_retries"`
	JobsRecovered  int       `json:"jobs_recovered"`
	Errors         []string  `json:"errors"`
	Timestamp      time.Time `json:"timestamp"`

	mu gosync.Mutex
}

// record tallies one processed entry. Safe for concurrent worker use.
func (s *Summary) record(outcome, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if outcome != metrics.OutcomeSkipped {
		s.JobsProcessed++
	}

	switch outcome {
	case metrics.OutcomeSucceeded:
		s.JobsSucceeded++
	case metrics.OutcomeConflict:
		s.JobsConflicts++
	case metrics.OutcomeRequeued:
		s.JobsRequeued++
	case metrics.OutcomeFailed:
		s.JobsFailed++
	case metrics.OutcomeMaxRetries:
		s.JobsMaxRetries++
	}

	if errMsg != "" {
		s.Errors = append(s.Errors, errMsg)
	}
}

// finalize derives the run status from the tallies
func (s *Summary) finalize() {
	settled := s.JobsSucceeded + s.JobsConflicts + s.JobsRequeued
	failed := s.JobsFailed + s.JobsMaxRetries

	switch {
	case failed == 0:
		s.Status = StatusSuccess
	case settled > 0:
		s.Status = StatusPartial
	default:
		s.Status = StatusFailed
	}
}
