// Package service assembles the transcriber processes from their parts.
//
// Every process shares the same Config and infrastructure: the metadata
// store, the cache, object storage and telemetry. On top of that:
//
//   - ConfigureAPI adds the queue producer, the HTTP server and, when
//     enabled, the scheduled cache reaper.
//   - ConfigureWorker adds the transcription backend and the queue server
//     running the executor.
//   - ConfigureReaper returns a single retention sweep for App.RunTask.
package service
