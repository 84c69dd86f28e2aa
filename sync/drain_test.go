package sync

import (
	gosync "sync"
	"testing"
	"time"

	conflictsql "github.com/harborview/crmsync/conflict/sqlmodel"
	"github.com/harborview/crmsync/external"
	"github.com/harborview/crmsync/metrics"
	gosql "github.com/harborview/crmsync/sql"
	"github.com/harborview/crmsync/syncqueue/model"
	"github.com/harborview/crmsync/syncqueue/sqlmodel"
)

// resetDrainSeams restores the queue store indirections after a test stubs
// them
func resetDrainSeams(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		entryRecoverStale = sqlmodel.EntryRecoverStale
		entryGetDue = sqlmodel.EntryGetDue
		entryClaim = sqlmodel.EntryClaim
		entryComplete = sqlmodel.EntryComplete
		entryRequeue = sqlmodel.EntryRequeue
		entryFail = sqlmodel.EntryFail
		queueStatsGet = sqlmodel.StatsGet
		conflictCountOpen = conflictsql.ConflictCountOpen
	})
}

func TestDrainCountsRecoveredEntries(t *testing.T) {
	resetDrainSeams(t)

	entryRecoverStale = func(db *gosql.Connection,
		olderThan time.Duration) (int64, error) {
		return 7, nil
	}
	entryGetDue = func(db *gosql.Connection,
		limit uint64) ([]*model.Entry, error) {
		return nil, nil
	}

	s, err := NewService(ServiceConfig{Client: stubClient{}})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	sum, err := s.Drain(nil)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if sum.JobsRecovered != 7 {
		t.Errorf("JobsRecovered = %d, want 7", sum.JobsRecovered)
	}
	if sum.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", sum.Status, StatusSuccess)
	}
}

func TestDrainProcessesDueEntries(t *testing.T) {
	resetDrainSeams(t)

	entryRecoverStale = func(db *gosql.Connection,
		olderThan time.Duration) (int64, error) {
		return 0, nil
	}
	entryGetDue = func(db *gosql.Connection,
		limit uint64) ([]*model.Entry, error) {
		return []*model.Entry{
			{ID: 1, EntityType: "contact", MaxAttempts: 5},
			{ID: 2, EntityType: "contact", MaxAttempts: 5},
			{ID: 3, EntityType: "organization", MaxAttempts: 5},
		}, nil
	}
	entryClaim = func(db *gosql.Connection, id int) (bool, error) {
		return true, nil
	}

	var mu gosync.Mutex
	completed := 0
	entryComplete = func(db *gosql.Connection, id int) error {
		mu.Lock()
		completed++
		mu.Unlock()
		return nil
	}

	s, err := NewService(ServiceConfig{Client: stubClient{}})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	s.process = func(db *gosql.Connection, entry *model.Entry) (string, error) {
		return metrics.OutcomeSucceeded, nil
	}

	sum, err := s.Drain(nil)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if sum.JobsProcessed != 3 || sum.JobsSucceeded != 3 {
		t.Errorf("summary = %+v, want 3 processed, 3 succeeded", sum)
	}
	if completed != 3 {
		t.Errorf("completed = %d, want 3", completed)
	}
}

func TestDrainEntrySkipsLostClaim(t *testing.T) {
	resetDrainSeams(t)

	entryClaim = func(db *gosql.Connection, id int) (bool, error) {
		return false, nil
	}

	s, err := NewService(ServiceConfig{Client: stubClient{}})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	s.process = func(db *gosql.Connection, entry *model.Entry) (string, error) {
		t.Error("processed an entry another worker claimed")
		return "", nil
	}

	outcome, errMsg := s.drainEntry(nil, &model.Entry{ID: 1, MaxAttempts: 5})
	if outcome != metrics.OutcomeSkipped || errMsg != "" {
		t.Errorf("outcome = %q errMsg = %q, want skipped with no error",
			outcome, errMsg)
	}
}

func TestDrainEntryClassifiesFailures(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		attempts    int
		wantOutcome string
		wantRequeue bool
		wantFail    bool
	}{
		{
			name: "retryable under the attempt cap requeues",
			err: external.NewServiceError(503, "",
				"service unavailable", true),
			attempts:    1,
			wantOutcome: metrics.OutcomeRequeued,
			wantRequeue: true,
		},
		{
			name: "retryable at the attempt cap exhausts",
			err: external.NewServiceError(503, "",
				"service unavailable", true),
			attempts:    4,
			wantOutcome: metrics.OutcomeMaxRetries,
			wantFail:    true,
		},
		{
			name: "permanent rejection fails immediately",
			err: external.NewServiceError(422, external.ErrCodeValidation,
				"email is malformed", false),
			attempts:    0,
			wantOutcome: metrics.OutcomeFailed,
			wantFail:    true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resetDrainSeams(t)

			entryClaim = func(db *gosql.Connection, id int) (bool, error) {
				return true, nil
			}
			requeued, failed := false, false
			entryRequeue = func(db *gosql.Connection, id, attempts int,
				nextRetry time.Time, errMsg string) error {
				requeued = true
				return nil
			}
			entryFail = func(db *gosql.Connection, id, attempts int,
				errMsg string) error {
				failed = true
				return nil
			}

			s, err := NewService(ServiceConfig{Client: stubClient{}})
			if err != nil {
				t.Fatalf("NewService: %v", err)
			}
			s.process = func(db *gosql.Connection,
				entry *model.Entry) (string, error) {
				return "", tc.err
			}

			outcome, errMsg := s.drainEntry(nil, &model.Entry{
				ID:          1,
				Attempts:    tc.attempts,
				MaxAttempts: 5,
			})
			if outcome != tc.wantOutcome {
				t.Errorf("outcome = %q, want %q", outcome, tc.wantOutcome)
			}
			if errMsg == "" {
				t.Error("expected a persisted error message")
			}
			if requeued != tc.wantRequeue || failed != tc.wantFail {
				t.Errorf("requeued = %v failed = %v, want %v/%v",
					requeued, failed, tc.wantRequeue, tc.wantFail)
			}
		})
	}
}
