package e

// Constants in here define error codes that are unique to a package/file.
// The first two characters identify the package and the second two identify
// the file within that package. Call sites append their own two character
// id, giving a six character code that locates exactly one wrap/new call.
//
// Valid values for the characters are: 0-9 and A-Z. Codes beginning with a
// letter are reserved for application repositories (numeric prefixes belong
// to shared libraries), so everything in here starts with a letter.

const (
	// package: sql
	CodeSQ01 = "SQ01" // package:sql | sql/sql.go
	CodeSQ02 = "SQ02" // package:sql | sql/row.go
	CodeSQ03 = "SQ03" // package:sql | sql/rows.go
	CodeSQ04 = "SQ04" // package:sql | sql/count.go

	// package: record
	CodeRC01 = "RC01" // package:record | record/fields.go
	CodeRC02 = "RC02" // package:record/sqlmodel | record/sqlmodel/record.go
	CodeRC03 = "RC03" // package:record/sqlmodel | record/sqlmodel/install.go

	// package: syncqueue
	CodeQU01 = "QU01" // package:syncqueue | syncqueue/queue.go
	CodeQU02 = "QU02" // package:syncqueue/sqlmodel | syncqueue/sqlmodel/entry.go
	CodeQU03 = "QU03" // package:syncqueue/sqlmodel | syncqueue/sqlmodel/stats.go
	CodeQU04 = "QU04" // package:syncqueue/sqlmodel | syncqueue/sqlmodel/install.go

	// package: rules
	CodeRL01 = "RL01" // package:rules | rules/engine.go
	CodeRL02 = "RL02" // package:rules/sqlmodel | rules/sqlmodel/rule.go
	CodeRL03 = "RL03" // package:rules/sqlmodel | rules/sqlmodel/install.go

	// package: conflict
	CodeCF01 = "CF01" // package:conflict | conflict/detector.go
	CodeCF02 = "CF02" // package:conflict | conflict/store.go
	CodeCF03 = "CF03" // package:conflict | conflict/resolver.go
	CodeCF04 = "CF04" // package:conflict/sqlmodel | conflict/sqlmodel/conflict.go
	CodeCF05 = "CF05" // package:conflict/sqlmodel | conflict/sqlmodel/install.go

	// package: sync
	CodeSY01 = "SY01" // package:sync | sync/service.go
	CodeSY02 = "SY02" // package:sync | sync/drain.go
	CodeSY03 = "SY03" // package:sync | sync/dispatch.go

	// package: external
	CodeEX01 = "EX01" // package:external | external/client.go
	CodeEX02 = "EX02" // package:external | external/response.go
	CodeEX03 = "EX03" // package:external | external/mapping.go

	// package: kafka
	CodeKF01 = "KF01" // package:kafka | kafka/connection.go
	CodeKF02 = "KF02" // package:kafka | kafka/publisher.go
	CodeKF03 = "KF03" // package:kafka/awsmsk | kafka/awsmsk/sasl.go

	// package: search
	CodeSR01 = "SR01" // package:search | search/search.go

	// package: api
	CodeAP01 = "AP01" // package:api | api/server.go
	CodeAP02 = "AP02" // package:api | api/conflicts.go
	CodeAP03 = "AP03" // package:api | api/rules.go
	CodeAP04 = "AP04" // package:api | api/trigger.go

	// package: config
	CodeCG01 = "CG01" // package:config | config/config.go
)
