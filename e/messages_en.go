package e

// This defines reusable error messages

const (
	MsgUnknownInternalServerError = "Unknown Internal Server Error"
	MsgUnauthorized               = "Unauthorized"
	MsgForbidden                  = "Forbidden"

	// syncqueue
	MsgQueueEntryDoesNotExist = "Queue entry does not exist"

	// conflict
	MsgConflictDoesNotExist      = "Conflict does not exist"
	MsgConflictAlreadyOpen       = "An unresolved conflict already exists for this entity"
	MsgMergeSelectionsRequired   = "Merge resolution requires merge selections"
	MsgUnknownResolutionType     = "Unknown resolution type"
	MsgUnknownField              = "Field is not syncable for this entity type"
	MsgRecordDoesNotExist        = "Record does not exist"
	MsgExternalItemDoesNotExist  = "External item does not exist"
	MsgRuleDoesNotExist          = "Auto resolution rule does not exist"
	MsgExternalServiceFailure    = "External service failure"
	MsgExternalServicePermanent  = "External service rejected the request"
)
