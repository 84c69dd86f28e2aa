package sync

import (
	"testing"

	"github.com/harborview/crmsync/e"
	"github.com/harborview/crmsync/external"
	"github.com/harborview/crmsync/metrics"
)

func TestSummaryRecordTallies(t *testing.T) {
	sum := &Summary{}

	sum.record(metrics.OutcomeSucceeded, "")
	sum.record(metrics.OutcomeSucceeded, "")
	sum.record(metrics.OutcomeConflict, "")
	sum.record(metrics.OutcomeRequeued, "timeout")
	sum.record(metrics.OutcomeFailed, "validation failed")
	sum.record(metrics.OutcomeMaxRetries, "timeout")
	sum.record(metrics.OutcomeSkipped, "")

	if sum.JobsProcessed != 6 {
		t.Errorf("JobsProcessed = %d, want 6 (skipped not counted)",
			sum.JobsProcessed)
	}
	if sum.JobsSucceeded != 2 || sum.JobsConflicts != 1 ||
		sum.JobsRequeued != 1 || sum.JobsFailed != 1 ||
		sum.JobsMaxRetries != 1 {
		t.Errorf("tallies = %+v", sum)
	}
	if len(sum.Errors) != 3 {
		t.Errorf("Errors = %v, want 3 entries", sum.Errors)
	}
}

func TestSummaryFinalizeStatus(t *testing.T) {
	tests := []struct {
		name string
		sum  *Summary
		want string
	}{
		{"all good", &Summary{JobsSucceeded: 3}, StatusSuccess},
		{"empty run", &Summary{}, StatusSuccess},
		{"mixed", &Summary{JobsSucceeded: 1, JobsFailed: 1}, StatusPartial},
		{"requeues count as settled",
			&Summary{JobsRequeued: 1, JobsMaxRetries: 1}, StatusPartial},
		{"nothing settled", &Summary{JobsFailed: 2}, StatusFailed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.sum.finalize()
			if tc.sum.Status != tc.want {
				t.Errorf("Status = %q, want %q", tc.sum.Status, tc.want)
			}
		})
	}
}

func TestErrTextPrefersServiceError(t *testing.T) {
	se := &external.ServiceError{
		ErrorCode: external.ErrCodeValidation,
		Message:   "email is malformed",
	}

	got := errText(e.W(se, ECodeSY0307))
	want := se.Error()
	if got != want {
		t.Errorf("errText = %q, want %q", got, want)
	}
}

func TestNewServiceDefaultsAndValidation(t *testing.T) {
	if _, err := NewService(ServiceConfig{}); err == nil {
		t.Error("expected error for missing client")
	}

	if _, err := NewService(ServiceConfig{
		Client:  stubClient{},
		Workers: MaxWorkersAllowed + 1,
	}); err == nil {
		t.Error("expected error for excess workers")
	}

	s, err := NewService(ServiceConfig{Client: stubClient{}})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if s.workers != DefaultWorkers || s.batchSize != DefaultBatchSize ||
		s.staleAfter != DefaultStaleAfter {
		t.Errorf("defaults not applied: %+v", s)
	}
}

type stubClient struct{}

func (stubClient) FetchItem(entityType, externalID string) (*external.Item, error) {
	return &external.Item{ID: externalID}, nil
}

func (stubClient) CreateItem(entityType string,
	fields map[string]interface{}) (string, error) {
	return "ext-1", nil
}

func (stubClient) UpdateItem(entityType, externalID string,
	fields map[string]interface{}) error {
	return nil
}

func (stubClient) DeleteItem(entityType, externalID string) error {
	return nil
}
