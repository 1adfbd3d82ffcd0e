// Package validation validates API input: request bodies through
// go-playground/validator struct tags, headers and parameters through a
// small fluent Validator. Both report an INVALID_INPUT AppError listing
// every failing field.
package validation
