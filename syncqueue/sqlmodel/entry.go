package sqlmodel

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harborview/crmsync/e"
	recordmodel "github.com/harborview/crmsync/record/model"
	gosql "github.com/harborview/crmsync/sql"
	"github.com/harborview/crmsync/syncqueue/model"
	"github.com/lib/pq"
)

const (
	EntryTableName     = "sync_queue"
	EntryDefaultSortBy = "sync_queue_id"

	ECodeQU0201 = e.CodeQU02 + "01"
	ECodeQU0202 = e.CodeQU02 + "02"
	ECodeQU0203 = e.CodeQU02 + "03"
	ECodeQU0204 = e.CodeQU02 + "04"
	ECodeQU0205 = e.CodeQU02 + "05"
	ECodeQU0206 = e.CodeQU02 + "06"
	ECodeQU0207 = e.CodeQU02 + "07"
	ECodeQU0208 = e.CodeQU02 + "08"
	ECodeQU0209 = e.CodeQU02 + "09"
	ECodeQU020A = e.CodeQU02 + "0A"
	ECodeQU020B = e.CodeQU02 + "0B"
	ECodeQU020C = e.CodeQU02 + "0C"
	ECodeQU020D = e.CodeQU02 + "0D"
	ECodeQU020E = e.CodeQU02 + "0E"
	ECodeQU020F = e.CodeQU02 + "0F"
)

// EntryGetParam model
type EntryGetParam struct {
	Limit            *uint64
	Offset           *uint64
	ID               *int
	EntityType       *string
	EntityID         *int
	Status           *[]string
	DueBefore        *time.Time
	FlagCount        bool
	OrderByNextRetry string
	DataHandler      func(*model.Entry) error
}

// EntryInsert performs the DB operation to insert a new queue entry. Status
// defaults to pending, attempts to 0 and next_retry to now so the entry is
// immediately eligible for the next drain pass.
func EntryInsert(db *gosql.Connection, input *model.Entry) (id int, err error) {
	var payload interface{}
	if input.Payload != nil {
		b, err := json.Marshal(input.Payload)
		if err != nil {
			return 0, e.W(err, ECodeQU0201)
		}
		payload = b
	}

	maxAttempts := input.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	ib := db.Insert(EntryTableName).
		Columns(`sync_queue_entity_type, sync_queue_entity_id,
			sync_queue_direction, sync_queue_operation, sync_queue_payload,
			sync_queue_status, sync_queue_attempts, sync_queue_max_attempts,
			sync_queue_next_retry, created_on, updated_on`).
		Values(string(input.EntityType), input.EntityID,
			string(input.Direction), string(input.Operation), payload,
			string(model.StatusPending), 0, maxAttempts,
			time.Now(), time.Now(), time.Now()).
		Suffix(`RETURNING sync_queue_id`)

	id, err = db.ExecInsertReturningID(ib)
	if err != nil {
		return 0, e.W(err, ECodeQU0202)
	}

	return id, nil
}

// EntryGet performs the select based on the param filters
func EntryGet(db *gosql.Connection, p *EntryGetParam) (
	entryList []*model.Entry, count int, err error) {
	fields := `sync_queue_id, sync_queue_entity_type, sync_queue_entity_id,
		sync_queue_direction, sync_queue_operation, sync_queue_payload,
		sync_queue_status, sync_queue_attempts, sync_queue_max_attempts,
		sync_queue_last_attempt, sync_queue_next_retry, sync_queue_error,
		created_on, updated_on`

	sb := db.Select("{fields}").
		From(EntryTableName)

	if p.ID != nil && *p.ID >= 0 {
		sb = sb.Where("sync_queue_id=?", *p.ID)
	}

	if p.EntityType != nil && len(*p.EntityType) > 0 {
		sb = sb.Where("sync_queue_entity_type=?", *p.EntityType)
	}

	if p.EntityID != nil && *p.EntityID >= 0 {
		sb = sb.Where("sync_queue_entity_id=?", *p.EntityID)
	}

	if p.Status != nil && len(*p.Status) > 0 {
		sb = sb.Where("sync_queue_status = ANY(?)", pq.Array(*p.Status))
	}

	if p.DueBefore != nil {
		sb = sb.Where("sync_queue_next_retry IS NOT NULL").
			Where("sync_queue_next_retry <= ?", *p.DueBefore)
	}

	if p.FlagCount {
		stmt, bindList, err := sb.ToSql()
		if err != nil {
			return nil, 0, e.W(err, ECodeQU0203)
		}
		row := db.QueryRow(strings.Replace(stmt, "{fields}", "count(*)", 1),
			bindList...)
		if err := row.Scan(&count); err != nil {
			return nil, 0, e.W(err, ECodeQU0204,
				fmt.Sprintf("stmt: %s, bindList: %+v", stmt, bindList))
		}
	}

	if p.Limit != nil && *p.Limit > 0 {
		sb = sb.Limit(*p.Limit)
	}

	if p.Offset != nil {
		sb = sb.Offset(*p.Offset)
	}

	if p.OrderByNextRetry != "" {
		sb = sb.OrderBy(fmt.Sprintf("sync_queue_next_retry %s", p.OrderByNextRetry))
	} else {
		sb = sb.OrderBy(fmt.Sprintf("%s %s", EntryDefaultSortBy, "asc"))
	}

	stmt, bindList, err := sb.ToSql()
	if err != nil {
		return nil, 0, e.W(err, ECodeQU0205)
	}
	stmt = strings.Replace(stmt, "{fields}", fields, 1)

	rows, err := db.Query(stmt, bindList...)
	if err != nil {
		return nil, 0, e.W(err, ECodeQU0206)
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := entryScan(rows)
		if err != nil {
			return nil, 0, e.W(err, ECodeQU0207)
		}

		if p.DataHandler != nil {
			if err := p.DataHandler(entry); err != nil {
				return nil, 0, e.W(err, ECodeQU0208)
			}
		} else {
			entryList = append(entryList, entry)
		}
	}

	return entryList, count, nil
}

// entryScan scans a queue entry row
func entryScan(rows *gosql.Rows) (entry *model.Entry, err error) {
	entry = &model.Entry{}

	var entityType, direction, operation, status string
	var payload []byte
	var lastAttempt, nextRetry sql.NullTime
	var errorMessage sql.NullString

	if err := rows.Scan(&entry.ID, &entityType, &entry.EntityID,
		&direction, &operation, &payload,
		&status, &entry.Attempts, &entry.MaxAttempts,
		&lastAttempt, &nextRetry, &errorMessage,
		&entry.CreatedOn, &entry.UpdatedOn); err != nil {
		return nil, e.W(err, ECodeQU0209)
	}

	entry.EntityType = recordmodel.EntityType(entityType)
	entry.Direction = model.Direction(direction)
	entry.Operation = model.Operation(operation)
	entry.Status = model.Status(status)

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &entry.Payload); err != nil {
			return nil, e.W(err, ECodeQU0209)
		}
	}
	if lastAttempt.Valid {
		entry.LastAttempt = &lastAttempt.Time
	}
	if nextRetry.Valid {
		entry.NextRetry = &nextRetry.Time
	}
	if errorMessage.Valid {
		entry.ErrorMessage = errorMessage.String
	}

	return entry, nil
}

// EntryGetByID returns the entry with the specified id
func EntryGetByID(db *gosql.Connection, id int) (entry *model.Entry, err error) {
	limit := uint64(1)
	p := &EntryGetParam{
		Limit: &limit,
		ID:    &id,
	}

	entryList, _, err := EntryGet(db, p)
	if err != nil {
		return nil, e.W(err, ECodeQU020A)
	}

	if len(entryList) == 0 {
		return nil, e.N(ECodeQU020B, e.MsgQueueEntryDoesNotExist)
	}

	return entryList[0], nil
}

// EntryGetDue returns up to limit pending entries whose next_retry has
// passed, oldest due first. Ordering is by due time, not creation time, so
// retried entries for one entity can drain after newer ones.
func EntryGetDue(db *gosql.Connection, limit uint64) (
	entryList []*model.Entry, err error) {
	now := time.Now()
	status := []string{string(model.StatusPending)}
	p := &EntryGetParam{
		Limit:            &limit,
		Status:           &status,
		DueBefore:        &now,
		OrderByNextRetry: "asc",
	}

	entryList, _, err = EntryGet(db, p)
	if err != nil {
		return nil, e.W(err, ECodeQU020C)
	}

	return entryList, nil
}

// EntryClaim atomically transitions an entry from pending to processing.
// Returns false without error when another worker won the claim, which the
// caller treats as a skip, not a failure.
func EntryClaim(db *gosql.Connection, id int) (claimed bool, err error) {
	ub := db.Update(EntryTableName).
		Where("sync_queue_id=?", id).
		Where("sync_queue_status=?", string(model.StatusPending)).
		Set("sync_queue_status", string(model.StatusProcessing)).
		Set("sync_queue_next_retry", nil).
		Set("updated_on", time.Now())

	count, err := db.ExecUpdateReturningCount(ub)
	if err != nil {
		return false, e.W(err, ECodeQU020D)
	}

	return count == 1, nil
}

// EntryComplete marks a processing entry as completed
func EntryComplete(db *gosql.Connection, id int) (err error) {
	ub := db.Update(EntryTableName).
		Where("sync_queue_id=?", id).
		Set("sync_queue_status", string(model.StatusCompleted)).
		Set("sync_queue_last_attempt", time.Now()).
		Set("sync_queue_next_retry", nil).
		Set("sync_queue_error", "").
		Set("updated_on", time.Now())

	if err := db.ExecUpdate(ub); err != nil {
		return e.W(err, ECodeQU020E)
	}

	return nil
}

// EntryRequeue returns a processing entry to pending after a recoverable
// failure, recording the attempt count, the error and when to try again
func EntryRequeue(db *gosql.Connection, id, attempts int, nextRetry time.Time,
	errMsg string) (err error) {
	ub := db.Update(EntryTableName).
		Where("sync_queue_id=?", id).
		Set("sync_queue_status", string(model.StatusPending)).
		Set("sync_queue_attempts", attempts).
		Set("sync_queue_last_attempt", time.Now()).
		Set("sync_queue_next_retry", nextRetry).
		Set("sync_queue_error", errMsg).
		Set("updated_on", time.Now())

	if err := db.ExecUpdate(ub); err != nil {
		return e.W(err, ECodeQU020E)
	}

	return nil
}

// EntryFail marks an entry as terminally failed. No next_retry is scheduled.
func EntryFail(db *gosql.Connection, id, attempts int, errMsg string) (err error) {
	ub := db.Update(EntryTableName).
		Where("sync_queue_id=?", id).
		Set("sync_queue_status", string(model.StatusFailed)).
		Set("sync_queue_attempts", attempts).
		Set("sync_queue_last_attempt", time.Now()).
		Set("sync_queue_next_retry", nil).
		Set("sync_queue_error", errMsg).
		Set("updated_on", time.Now())

	if err := db.ExecUpdate(ub); err != nil {
		return e.W(err, ECodeQU020E)
	}

	return nil
}

// EntryRecoverStale resets entries stuck in processing longer than the
// threshold back to pending, attempts unchanged. A crash between claim and
// completion therefore delays the entry instead of losing it (at least once
// delivery).
func EntryRecoverStale(db *gosql.Connection, olderThan time.Duration) (
	recovered int64, err error) {
	cutoff := time.Now().Add(-olderThan)

	ub := db.Update(EntryTableName).
		Where("sync_queue_status=?", string(model.StatusProcessing)).
		Where("updated_on < ?", cutoff).
		Set("sync_queue_status", string(model.StatusPending)).
		Set("sync_queue_next_retry", time.Now()).
		Set("updated_on", time.Now())

	recovered, err = db.ExecUpdateReturningCount(ub)
	if err != nil {
		return 0, e.W(err, ECodeQU020F)
	}

	return recovered, nil
}

// EntryRetry is the operator triggered manual retry of a failed entry. It
// resets the entry to pending (optionally zeroing attempts) so the next
// drain picks it up.
func EntryRetry(db *gosql.Connection, id int, resetAttempts bool) (err error) {
	ub := db.Update(EntryTableName).
		Where("sync_queue_id=?", id).
		Where("sync_queue_status=?", string(model.StatusFailed)).
		Set("sync_queue_status", string(model.StatusPending)).
		Set("sync_queue_next_retry", time.Now()).
		Set("sync_queue_error", "").
		Set("updated_on", time.Now())

	if resetAttempts {
		ub = ub.Set("sync_queue_attempts", 0)
	}

	count, err := db.ExecUpdateReturningCount(ub)
	if err != nil {
		return e.W(err, ECodeQU020F)
	}
	if count == 0 {
		return e.N(ECodeQU020F, e.MsgQueueEntryDoesNotExist)
	}

	return nil
}

// EntryArchiveBefore purges completed and terminally failed entries older
// than the cutoff. Intended to be run by an operator after the audit
// retention window, never by the drain loop.
func EntryArchiveBefore(db *gosql.Connection, cutoff time.Time) (
	purged int64, err error) {
	delB := db.Delete(EntryTableName).
		Where("sync_queue_status = ANY(?)", pq.Array([]string{
			string(model.StatusCompleted), string(model.StatusFailed)})).
		Where("updated_on < ?", cutoff)

	stmt, bindList, err := delB.ToSql()
	if err != nil {
		return 0, e.W(err, ECodeQU020F)
	}

	res, err := db.Exec(stmt, bindList...)
	if err != nil {
		return 0, e.W(err, ECodeQU020F)
	}

	purged, err = res.RowsAffected()
	if err != nil {
		return 0, e.W(err, ECodeQU020F)
	}

	return purged, nil
}
