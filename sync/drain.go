package sync

import (
	"errors"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	conflictsql "github.com/harborview/crmsync/conflict/sqlmodel"
	"github.com/harborview/crmsync/e"
	"github.com/harborview/crmsync/external"
	"github.com/harborview/crmsync/metrics"
	gosql "github.com/harborview/crmsync/sql"
	"github.com/harborview/crmsync/syncqueue"
	"github.com/harborview/crmsync/syncqueue/model"
	"github.com/harborview/crmsync/syncqueue/sqlmodel"
	"github.com/rs/zerolog/log"
)

const (
	ECodeSY0201 = e.CodeSY02 + "01"
	ECodeSY0202 = e.CodeSY02 + "02"
)

// Queue store indirections, swapped for in-memory fakes in tests
var (
	entryRecoverStale = sqlmodel.EntryRecoverStale
	entryGetDue       = sqlmodel.EntryGetDue
	entryClaim        = sqlmodel.EntryClaim
	entryComplete     = sqlmodel.EntryComplete
	entryRequeue      = sqlmodel.EntryRequeue
	entryFail         = sqlmodel.EntryFail
	queueStatsGet     = sqlmodel.StatsGet
	conflictCountOpen = conflictsql.ConflictCountOpen
)

// Drain runs one pass over the queue: recover stale claims, claim and
// process all due entries with the configured number of workers, then
// refresh the gauges. Per entry failures are tallied in the summary and
// never abort the run; only an error reading the queue itself does.
func (s *Service) Drain(db *gosql.Connection) (sum *Summary, err error) {
	start := time.Now()
	sum = &Summary{
		RunID:     uuid.New().String(),
		Timestamp: start.UTC(),
	}

	recovered, err := entryRecoverStale(db, s.staleAfter)
	if err != nil {
		return nil, e.W(err, ECodeSY0201)
	}
	if recovered > 0 {
		log.Warn().Msgf("drain %s: recovered %d stale entries", sum.RunID, recovered)
	}
	sum.JobsRecovered = int(recovered)
	if s.metrics != nil {
		s.metrics.EntriesRecovered.Add(float64(recovered))
	}

	entryList, err := entryGetDue(db, s.batchSize)
	if err != nil {
		return nil, e.W(err, ECodeSY0202)
	}

	// Used to stop the feeder if the run is abandoned
	done := make(chan struct{})
	defer close(done)

	itemCh := make(chan *model.Entry)
	go func() {
		defer close(itemCh)
		for _, entry := range entryList {
			select {
			case itemCh <- entry:
			case <-done:
				return
			}
		}
	}()

	var wg gosync.WaitGroup
	wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go func() {
			defer wg.Done()
			for entry := range itemCh {
				outcome, errMsg := s.drainEntry(db, entry)
				sum.record(outcome, errMsg)
				if s.metrics != nil {
					s.metrics.EntriesProcessed.
						WithLabelValues(outcome, string(entry.EntityType)).Inc()
				}
			}
		}()
	}
	wg.Wait()

	s.refreshGauges(db)
	sum.finalize()
	if s.metrics != nil {
		s.metrics.DrainDuration.Observe(time.Since(start).Seconds())
	}

	log.Info().Msgf("drain %s: %s, processed=%d succeeded=%d conflicts=%d "+
		"requeued=%d failed=%d max_retries=%d recovered=%d",
		sum.RunID, sum.Status, sum.JobsProcessed, sum.JobsSucceeded,
		sum.JobsConflicts, sum.JobsRequeued, sum.JobsFailed,
		sum.JobsMaxRetries, sum.JobsRecovered)

	return sum, nil
}

// drainEntry claims and processes a single queue entry, settling its status
// according to the outcome. A lost claim race is skipped silently. The
// returned error message is empty unless the entry failed.
func (s *Service) drainEntry(db *gosql.Connection,
	entry *model.Entry) (outcome, errMsg string) {

	claimed, err := entryClaim(db, entry.ID)
	if err != nil {
		log.Error().Err(err).Msgf("claim entry %d", entry.ID)
		return metrics.OutcomeSkipped, errText(err)
	}
	if !claimed {
		return metrics.OutcomeSkipped, ""
	}

	outcome, err = s.process(db, entry)
	if err == nil {
		if cErr := entryComplete(db, entry.ID); cErr != nil {
			log.Error().Err(cErr).Msgf("complete entry %d", entry.ID)
		}
		s.publishOutcome(entry, outcome, "")
		return outcome, ""
	}

	errMsg = errText(err)
	attempts := entry.Attempts + 1

	switch {
	case !external.IsRetryable(err):
		outcome = metrics.OutcomeFailed
	case attempts >= entry.MaxAttempts:
		outcome = metrics.OutcomeMaxRetries
	default:
		outcome = metrics.OutcomeRequeued
	}

	if outcome == metrics.OutcomeRequeued {
		nextRetry := syncqueue.NextRetry(time.Now(), attempts)
		if rErr := entryRequeue(db, entry.ID, attempts, nextRetry,
			errMsg); rErr != nil {
			log.Error().Err(rErr).Msgf("requeue entry %d", entry.ID)
		}
		log.Warn().Msgf("entry %d attempt %d/%d failed, retry at %s: %s",
			entry.ID, attempts, entry.MaxAttempts,
			nextRetry.Format(time.RFC3339), errMsg)
	} else {
		if fErr := entryFail(db, entry.ID, attempts, errMsg); fErr != nil {
			log.Error().Err(fErr).Msgf("fail entry %d", entry.ID)
		}
		log.Error().Err(err).Msgf("entry %d failed permanently (%s)",
			entry.ID, outcome)
	}

	s.publishOutcome(entry, outcome, errMsg)

	return outcome, errMsg
}

// refreshGauges recomputes the backlog and open conflict gauges after a run
func (s *Service) refreshGauges(db *gosql.Connection) {
	if s.metrics == nil {
		return
	}

	stats, err := queueStatsGet(db)
	if err != nil {
		log.Error().Err(err).Msg("refresh backlog gauge")
	} else {
		backlog := stats.ByStatus[string(model.StatusPending)] +
			stats.ByStatus[string(model.StatusProcessing)]
		s.metrics.QueueBacklog.Set(float64(backlog))
	}

	open, err := conflictCountOpen(db)
	if err != nil {
		log.Error().Err(err).Msg("refresh open conflict gauge")
	} else {
		s.metrics.OpenConflicts.Set(float64(open))
	}
}

// publishOutcome emits a lifecycle event for a settled entry. Publishing is
// fire and forget.
func (s *Service) publishOutcome(entry *model.Entry, outcome, errMsg string) {
	if s.publisher == nil || outcome == metrics.OutcomeSkipped {
		return
	}

	if err := s.publisher.PublishOutcome(entry.EntityType, entry.EntityID,
		string(entry.Operation), outcome, errMsg); err != nil {
		log.Error().Err(err).Msgf("publish outcome for entry %d", entry.ID)
	}
}

// errText returns the message to persist on a failed entry. Service errors
// carry the remote failure; coded errors expose their user facing message
// rather than the full stack.
func errText(err error) string {
	se := &external.ServiceError{}
	if errors.As(err, &se) {
		return se.Error()
	}

	if ee := e.AsExtendedError(err); ee != nil {
		return ee.Message
	}

	return err.Error()
}
