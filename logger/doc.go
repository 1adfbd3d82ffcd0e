// Package logger provides structured logging on top of zerolog.
//
// Loggers are derived rather than configured: a process builds one from
// its logging config and hands out copies tagged with a component, a task
// id or the request id that the HTTP middleware put on the context.
//
//	logging:
//	  level: info
//	  format: json
//
//	log := logger.NewDefault("transcriber").WithComponent("reaper")
//	log.Info("sweep finished", logger.Fields("cleaned", 3))
package logger
