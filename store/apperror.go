package store

import (
	"errors"

	apperrors "github.com/kbukum/transcriber/errors"
	"github.com/kbukum/transcriber/task"
)

// AppError translates a store or transition error for task id into the
// error returned to API callers.
func AppError(err error, id string) *apperrors.AppError {
	switch {
	case err == nil:
		return nil
	case apperrors.IsAppError(err):
		return apperrors.Wrap(err)
	case errors.Is(err, ErrNotFound):
		return apperrors.NotFound("task", id)
	case errors.Is(err, ErrUnavailable):
		return apperrors.ServiceUnavailable("metadata store").WithCause(err)
	case errors.Is(err, ErrVersionConflict), errors.Is(err, task.ErrIllegalTransition):
		return apperrors.Conflict("The task changed concurrently. Please retry.").WithCause(err).WithDetail("task_id", id)
	}
	return apperrors.Internal(err).WithDetail("task_id", id)
}
