// Package errors defines AppError, the single error type that crosses
// package boundaries in the transcriber. Lower layers return sentinel
// errors; the dispatcher, gateway and ingress translate them into
// AppErrors which the HTTP layer renders with ToResponse.
package errors
