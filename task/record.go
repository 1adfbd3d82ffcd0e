package task

import (
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/kbukum/transcriber/util"
)

// KeyPrefix namespaces task records in the metadata store.
const KeyPrefix = "task:"

// Key returns the store key for a task id.
func Key(id string) string { return KeyPrefix + id }

// Type identifies the ingress path that created a task.
type Type string

const (
	TypeFileUpload  Type = "file_upload"
	TypeURLDownload Type = "url_download"
	TypeS3Download  Type = "s3_download"
)

// InitialStatus is the status a freshly created task of this type starts in.
func (t Type) InitialStatus() Status {
	if t == TypeFileUpload {
		return StatusPendingUploaded
	}
	return StatusPendingDownloaded
}

// Record is the JSON document stored per task.
type Record struct {
	TaskID        string  `json:"task_id"`
	ClientID      string  `json:"client_id"`
	Status        Status  `json:"status"`
	TaskType      Type    `json:"task_type"`
	S3ResultsPath *string `json:"s3_results_path"`

	OriginalFilename    string `json:"original_filename,omitempty"`
	OriginalURL         string `json:"original_url,omitempty"`
	OriginalS3InputPath string `json:"original_s3_input_path,omitempty"`
	SavedFilename       string `json:"saved_filename,omitempty"`

	TranscribedJSONFile *string `json:"transcribed_json_file"`
	TranscribedMDFile   *string `json:"transcribed_md_file"`
	S3JSONURL           *string `json:"s3_json_url,omitempty"`
	S3MDURL             *string `json:"s3_md_url,omitempty"`

	UploadTime          *time.Time `json:"upload_time,omitempty"`
	DownloadTime        *time.Time `json:"download_time,omitempty"`
	DispatchTime        *time.Time `json:"celery_dispatch_time,omitempty"`
	ProcessingStartTime *time.Time `json:"processing_start_time,omitempty"`
	ProcessingEndTime   *time.Time `json:"processing_end_time,omitempty"`
	LastDownloadTime    *time.Time `json:"last_download_time,omitempty"`
	LastUpdatedTime     *time.Time `json:"last_updated_time,omitempty"`

	ErrorMessage          *string `json:"error_message,omitempty"`
	WorkerNode            string  `json:"worker_node,omitempty"`
	DispatchCorrelationID string  `json:"dispatch_correlation_id,omitempty"`
	QueueTaskID           string  `json:"queue_task_id,omitempty"`

	// Version is the optimistic concurrency token. Zero means not yet stored.
	Version int64 `json:"version"`
}

// Transition moves the record to status to, stamping last_updated_time.
func (r *Record) Transition(to Status, now time.Time) error {
	if err := checkTransition(r.Status, to); err != nil {
		return err
	}
	r.Status = to
	r.Touch(now)
	return nil
}

// Touch stamps last_updated_time.
func (r *Record) Touch(now time.Time) {
	r.LastUpdatedTime = util.Ptr(now.UTC())
}

// Fail moves the record to FAILED with msg, stamping the end time.
func (r *Record) Fail(msg string, now time.Time) error {
	if err := r.Transition(StatusFailed, now); err != nil {
		return err
	}
	r.ErrorMessage = util.Ptr(msg)
	r.ProcessingEndTime = util.Ptr(now.UTC())
	return nil
}

// HasResultsSink reports whether artifacts are delivered to object storage.
func (r *Record) HasResultsSink() bool {
	return r.S3ResultsPath != nil && *r.S3ResultsPath != ""
}

// ActivityTime returns the timestamp that best represents the task's last
// meaningful activity for its status, or nil when none is recorded.
func (r *Record) ActivityTime() *time.Time {
	var candidates []*time.Time
	switch {
	case r.Status == StatusFailed:
		candidates = []*time.Time{r.ProcessingEndTime, r.LastUpdatedTime}
	case r.Status.IsCompleted():
		candidates = []*time.Time{r.LastDownloadTime, r.ProcessingEndTime, r.LastUpdatedTime}
	default:
		candidates = []*time.Time{r.UploadTime, r.DownloadTime, r.DispatchTime, r.LastUpdatedTime}
	}
	for _, t := range candidates {
		if t != nil && !t.IsZero() {
			return t
		}
	}
	return nil
}

// LocalFiles lists the cache-relative files owned by the task. Every ingress
// path saves the source audio into the cache, so it is listed whenever it
// was recorded, sink or not.
func (r *Record) LocalFiles() []string {
	var files []string
	if r.SavedFilename != "" {
		files = append(files, r.SavedFilename)
	}
	if f := util.Deref(r.TranscribedJSONFile); f != "" {
		files = append(files, f)
	}
	if f := util.Deref(r.TranscribedMDFile); f != "" {
		files = append(files, f)
	}
	return files
}

// ArtifactDir is the cache-relative task-scoped subdirectory.
func (r *Record) ArtifactDir() string { return r.TaskID }

// CheckPaths verifies that every file path field stays inside the cache root.
func (r *Record) CheckPaths() error {
	fields := map[string]string{
		"saved_filename":        r.SavedFilename,
		"transcribed_json_file": util.Deref(r.TranscribedJSONFile),
		"transcribed_md_file":   util.Deref(r.TranscribedMDFile),
	}
	for name, p := range fields {
		if p != "" && !util.IsSafeRelativePath(p) {
			return fmt.Errorf("%s escapes the cache root: %q", name, p)
		}
	}
	return nil
}

// Marshal encodes the record as stored.
func (r *Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Unmarshal decodes a stored record.
func Unmarshal(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode task record: %w", err)
	}
	return &r, nil
}

// SourcePath is the cache-relative location of a task's source audio.
func SourcePath(taskID, safeName string) string {
	return taskID + "_" + safeName
}

// ArtifactPaths returns the cache-relative JSON and Markdown artifact paths.
func ArtifactPaths(taskID, originalName string) (jsonPath, mdPath string) {
	base := taskID + "_" + util.SanitizeArtifactName(originalName)
	return path.Join(taskID, base+".json"), path.Join(taskID, base+".md")
}
