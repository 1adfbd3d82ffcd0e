// Package database wraps GORM with connection retry, pooling, query logging
// and component lifecycle. It backs the SQL variant of the metadata store.
//
//	comp := database.NewComponent(cfg.Database, log).WithAutoMigrate(&store.Document{})
//	// after Start:
//	st := store.NewSQLStore(comp.DB())
//
// New retries the first connection with resilience.Retry while the error
// looks like a refused connection or a locked SQLite file. SQLite DSNs get
// a _busy_timeout so every pooled connection waits on a writer lock
// instead of failing at once; WAL switches the journal so readers do not
// block behind it. IsDuplicateError, IsConnectionError and IsBusyError
// classify driver errors for callers.
package database
