package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

// TypeTranscribe is the asynq task type of a transcription work unit.
const TypeTranscribe = "transcribe:audio"

// Payload is the work unit handed from the dispatcher to the executor.
type Payload struct {
	TaskID           string `json:"task_id"`
	AudioPath        string `json:"audio_path"`
	ClientID         string `json:"client_id"`
	S3ResultsPath    string `json:"s3_results_path,omitempty"`
	OriginalFilename string `json:"original_filename,omitempty"`
}

// Validate checks the fields every work unit must carry.
func (p Payload) Validate() error {
	if p.TaskID == "" || p.AudioPath == "" || p.ClientID == "" {
		return errors.New("queue: payload requires task_id, audio_path and client_id")
	}
	return nil
}

func newTask(p Payload, opts ...asynq.Option) (*asynq.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTranscribe, data, opts...), nil
}

func parsePayload(t *asynq.Task) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("queue: decode payload: %w", err)
	}
	return p, p.Validate()
}
