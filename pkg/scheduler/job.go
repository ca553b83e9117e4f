package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// Priority orders jobs in the queue. Higher priorities always start first.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// ParsePriority normalizes and validates a priority value.
func ParsePriority(value string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(value))); p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	default:
		return "", &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", value)}
	}
}

// Rank returns the admission ordering weight; higher runs first.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// JobType selects the registered handler and the throughput model used to
// estimate a job's duration.
type JobType string

const (
	JobExtraction JobType = "extraction"
	JobAnalysis   JobType = "analysis"
)

// ParseJobType normalizes and validates a job type value.
func ParseJobType(value string) (JobType, error) {
	switch t := JobType(strings.ToLower(strings.TrimSpace(value))); t {
	case JobExtraction, JobAnalysis:
		return t, nil
	default:
		return "", &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown job type %q", value)}
	}
}

// Status is a job's lifecycle state.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Job is a point-in-time snapshot of a scheduled unit of work.
type Job struct {
	ID                string        `json:"id"`
	DocumentID        string        `json:"document_id"`
	Type              JobType       `json:"type"`
	Priority          Priority      `json:"priority"`
	EstimateBytes     int64         `json:"estimate_bytes"`
	Status            Status        `json:"status"`
	SubmittedAt       time.Time     `json:"submitted_at"`
	StartedAt         time.Time     `json:"started_at,omitempty"`
	FinishedAt        time.Time     `json:"finished_at,omitempty"`
	EstimatedDuration time.Duration `json:"estimated_duration_ms"`
	Error             string        `json:"error,omitempty"`
	Hint              string        `json:"hint,omitempty"`
}

// Per-byte throughput used for duration estimates. Analysis re-reads its
// material several times, so it runs materially slower per byte.
const (
	extractionBytesPerSecond = 4 << 20
	analysisBytesPerSecond   = 512 << 10

	// fixed startup overhead per job, independent of payload size
	baseJobOverhead = 250 * time.Millisecond
)

func estimateDuration(jobType JobType, payloadBytes int64) time.Duration {
	throughput := int64(extractionBytesPerSecond)
	if jobType == JobAnalysis {
		throughput = analysisBytesPerSecond
	}
	work := time.Duration(float64(payloadBytes) / float64(throughput) * float64(time.Second))
	return baseJobOverhead + work
}
