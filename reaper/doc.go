// Package reaper enforces the cache retention window.
//
// A sweep visits every tracked task, picks the timestamp that best reflects
// its last activity and, once that is older than the retention window,
// removes the task's local files and then its record. The record is only
// deleted when every file removal succeeded; otherwise it stays so a later
// sweep can try again. Re-running a sweep is always safe.
//
// Cleanup is shared with the manual release operation.
package reaper
