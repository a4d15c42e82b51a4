package imagegen

import (
	"context"

	"eduvision/internal/providers/krea"
)

const (
	DefaultWidth  = 1024
	DefaultHeight = 1024
	DefaultSteps  = 28
)

// GenerationRequest is a validated inbound request. Prompt is already trimmed
// and the dimensions carry their defaults.
type GenerationRequest struct {
	Prompt     string
	Width      int
	Height     int
	Steps      int
	Subject    string
	OutputType string
}

// GenerationResult is returned on a resolved job.
type GenerationResult struct {
	ImageURL    string `json:"imageUrl"`
	Explanation string `json:"explanation"`
}

// Job is the single upstream job owned by one request together with the key
// that created it.
type Job struct {
	ID         string
	Credential string
}

// JobClient is the upstream surface the pipeline needs. *krea.Client
// satisfies it.
type JobClient interface {
	CreateJob(ctx context.Context, apiKey string, req krea.CreateJobRequest) (*krea.CreateJobResponse, error)
	GetJob(ctx context.Context, apiKey, id string) (*krea.JobStatus, error)
}

// Generator runs one request end to end.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}

var _ JobClient = (*krea.Client)(nil)
