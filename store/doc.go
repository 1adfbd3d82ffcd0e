// Package store is the metadata store: one JSON document per task under
// the key "task:<id>", shared by the API and worker processes.
//
// Store is the raw versioned document map with a Redis and a SQL backend.
// Tasks layers task.Record on top and provides the read-modify-write loop
// every status change goes through.
package store
