package gateway

// Config holds access gateway settings.
type Config struct {
	// HideForeignTasks answers owner mismatches with NotFound instead of Forbidden.
	HideForeignTasks bool `mapstructure:"hide_foreign_tasks" json:"hide_foreign_tasks"`
}
