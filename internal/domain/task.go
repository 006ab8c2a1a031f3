package domain

import "time"

// ConversionTask asks a worker to convert one source object.
type ConversionTask struct {
	ID          string    `json:"id"`
	SourceKey   string    `json:"source_key"`
	RequestedAt time.Time `json:"requested_at"`
}

// ConvertedEvent announces a PDF landed in the destination prefix.
type ConvertedEvent struct {
	RunID          string    `json:"run_id"`
	SourceKey      string    `json:"source_key"`
	DestinationKey string    `json:"destination_key"`
	Bucket         string    `json:"bucket"`
	ConvertedAt    time.Time `json:"converted_at"`
}

// RunSummary counts what happened during one pipeline run.
type RunSummary struct {
	RunID       string
	Discovered  int
	Dispatched  int
	Converted   int
	Uploaded    int
	Failed      int
	Skipped     int
	Unsupported int
	Dropped     int
	StartedAt   time.Time
	FinishedAt  time.Time
}

const (
	KafkaTopicTasks  = "document-conversion"
	KafkaTopicEvents = "document-converted"
	KafkaGroupID     = "document-converter-group"
)

const (
	DefaultSignedURLExpiry = 240 * time.Minute
	DefaultMaxUploadSize   = 64 << 20
	DefaultImageDPI        = 100
	DefaultToolName        = "libreoffice"
)
