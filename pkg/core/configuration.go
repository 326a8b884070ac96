package core

import "time"

// Configuration is one uploaded job step, keyed by the uploaded filename.
type Configuration struct {
	Filename      string    `json:"filename"`
	StepName      string    `json:"step_name"`
	ServiceName   string    `json:"service_name"`
	ServiceConfig string    `json:"service_config"` // YAML text of the service_config subtree
	Generation    int64     `json:"generation"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// ConfigurationSummary is a listing entry for a stored configuration.
type ConfigurationSummary struct {
	Filename    string    `json:"filename"`
	StepName    string    `json:"step_name"`
	ServiceName string    `json:"service_name"`
	TableCount  int       `json:"table_count"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// UploadResult reports what an upload replaced the catalog with.
type UploadResult struct {
	Filename    string     `json:"filename"`
	StepName    string     `json:"step_name"`
	ServiceName string     `json:"service_name"`
	Generation  int64      `json:"generation"`
	Tables      []TableRef `json:"tables"`
}
