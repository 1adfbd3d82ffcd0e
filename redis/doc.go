// Package redis wraps go-redis with the transcriber's logging, config and
// component conventions. It backs the metadata store and shares its
// connection settings with the asynq queue.
//
// # Usage
//
//	comp := redis.NewComponent(cfg.Redis, log)
//	// after Start:
//	st := store.NewRedisStore(comp.Client(), log)
//
// Watch and ScanKeys are the two primitives the metadata store builds on:
// WATCH/MULTI for optimistic versioned writes and SCAN for key listing.
package redis
