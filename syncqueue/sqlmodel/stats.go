package sqlmodel

import (
	"github.com/harborview/crmsync/e"
	gosql "github.com/harborview/crmsync/sql"
	"github.com/harborview/crmsync/syncqueue/model"
)

const (
	ECodeQU0301 = e.CodeQU03 + "01"
	ECodeQU0302 = e.CodeQU03 + "02"
)

// StatsGet returns queue entry counts by status and by entity type/status
func StatsGet(db *gosql.Connection) (stats *model.Stats, err error) {
	sb := db.Select("sync_queue_entity_type, sync_queue_status, count(*)").
		From(EntryTableName).
		GroupBy("sync_queue_entity_type, sync_queue_status")

	stmt, bindList, err := sb.ToSql()
	if err != nil {
		return nil, e.W(err, ECodeQU0301)
	}

	rows, err := db.Query(stmt, bindList...)
	if err != nil {
		return nil, e.W(err, ECodeQU0301)
	}
	defer rows.Close()

	stats = &model.Stats{
		ByStatus:     map[string]int{},
		ByEntityType: map[string]map[string]int{},
	}

	for rows.Next() {
		var entityType, status string
		var count int
		if err := rows.Scan(&entityType, &status, &count); err != nil {
			return nil, e.W(err, ECodeQU0302)
		}

		stats.Total += count
		stats.ByStatus[status] += count
		if stats.ByEntityType[entityType] == nil {
			stats.ByEntityType[entityType] = map[string]int{}
		}
		stats.ByEntityType[entityType][status] += count
	}

	return stats, nil
}
