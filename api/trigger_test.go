package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	gosql "github.com/harborview/crmsync/sql"
	"github.com/harborview/crmsync/sync"
)

type stubDrainer struct {
	sum *sync.Summary
	err error
}

func (d *stubDrainer) Drain(db *gosql.Connection) (*sync.Summary, error) {
	return d.sum, d.err
}

func newTestServer(t *testing.T, d Drainer) *Server {
	t.Helper()

	s, err := NewServer(ServerConfig{
		DB:           &gosql.Connection{},
		Drainer:      d,
		TriggerToken: "sekrit",
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func TestTriggerRequiresBearerToken(t *testing.T) {
	s := newTestServer(t, &stubDrainer{sum: &sync.Summary{}})

	tests := []struct {
		name string
		auth string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic sekrit"},
		{"wrong token", "Bearer wrong"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/sync/run", nil)
			if tc.auth != "" {
				r.Header.Set("Authorization", tc.auth)
			}
			w := httptest.NewRecorder()

			s.Handler().ServeHTTP(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestTriggerReturnsDrainSummary(t *testing.T) {
	s := newTestServer(t, &stubDrainer{sum: &sync.Summary{
		RunID:         "run-1",
		Status:        sync.StatusSuccess,
		JobsProcessed: 3,
		JobsSucceeded: 3,
	}})

	r := httptest.NewRequest(http.MethodPost, "/sync/run", nil)
	r.Header.Set("Authorization", "Bearer sekrit")
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body)
	}

	sum := &sync.Summary{}
	if err := json.Unmarshal(w.Body.Bytes(), sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.RunID != "run-1" || sum.Status != sync.StatusSuccess ||
		sum.JobsProcessed != 3 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestTriggerReportsDrainFailure(t *testing.T) {
	s := newTestServer(t, &stubDrainer{err: errors.New("db down")})

	r := httptest.NewRequest(http.MethodPost, "/sync/run", nil)
	r.Header.Set("Authorization", "Bearer sekrit")
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestNewServerValidation(t *testing.T) {
	if _, err := NewServer(ServerConfig{
		Drainer:      &stubDrainer{},
		TriggerToken: "t",
	}); err == nil {
		t.Error("expected error for missing db")
	}

	if _, err := NewServer(ServerConfig{
		DB:      &gosql.Connection{},
		Drainer: &stubDrainer{},
	}); err == nil {
		t.Error("expected error for missing trigger token")
	}
}
