package api

import (
	"github.com/kbukum/transcriber/gateway"
	"github.com/kbukum/transcriber/task"
)

// ClientIDHeader carries the owner tag.
const ClientIDHeader = "Client-Id"

// TranscribeURLRequest is the body of POST /transcribe_url.
type TranscribeURLRequest struct {
	URL    string `json:"url" validate:"required,http_url"`
	S3Path string `json:"s3_path,omitempty" validate:"omitempty,max=512"`
}

// TranscribeS3Request is the body of POST /transcribe_s3.
type TranscribeS3Request struct {
	S3InputPath string `json:"s3_input_path" validate:"required,max=1024"`
	S3Path      string `json:"s3_path,omitempty" validate:"omitempty,max=512"`
}

// TaskAccepted answers the ingress routes.
type TaskAccepted struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// StatusResponse answers GET /status/:task_id.
type StatusResponse struct {
	TaskID  string       `json:"task_id"`
	Status  task.Status  `json:"status"`
	Details *task.Record `json:"details"`
}

// ReleaseResponse answers DELETE /release/:task_id.
type ReleaseResponse struct {
	TaskID string `json:"task_id"`
	*gateway.ReleaseReport
}
