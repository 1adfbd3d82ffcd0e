package logger

// Field names shared by every process so log queries line up.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldTaskID    = "task_id"
	FieldClientID  = "client_id"
	FieldStatus    = "status"
	FieldWorker    = "worker"
	FieldPath      = "path"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
)

// Fields pairs up alternating keys and values:
//
//	log.Info("sweep finished", logger.Fields("cleaned", 3, logger.FieldDuration, ms))
//
// Pairs whose key is not a string are dropped, as is a trailing key.
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for len(kvs) >= 2 {
		if key, ok := kvs[0].(string); ok {
			m[key] = kvs[1]
		}
		kvs = kvs[2:]
	}
	return m
}
