// Package gateway guards read and release access to tasks.
//
// Every per-task operation first loads the record (absent: NotFound) and
// then compares the caller's owner tag with the record's client_id
// (mismatch: Forbidden). Callers without an owner tag are internal and pass.
// With HideForeignTasks set, a mismatch reports NotFound instead so task
// existence is not revealed.
package gateway
