// Package task defines the task record stored in the metadata store and the
// status state machine every writer goes through.
//
// Status only moves forward:
//
//	PENDING_UPLOADED | PENDING_DOWNLOADED
//	    -> PENDING_CELERY_DISPATCH -> PROCESSING
//	    -> COMPLETED | COMPLETED_WITH_S3_UPLOAD_FAILURES | FAILED
//
// Record.Transition enforces the table and returns ErrIllegalTransition for
// anything else.
package task
