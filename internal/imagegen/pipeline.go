package imagegen

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"eduvision/internal/infra"
	"eduvision/internal/infra/credentials"
	"eduvision/internal/providers/krea"
)

const (
	DefaultPollInterval    = 3 * time.Second
	DefaultMaxPollAttempts = 40
)

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Options configures a Pipeline. A zero PollInterval polls back to back; a
// negative one selects the default.
type Options struct {
	Client          JobClient
	Keys            []string
	PollInterval    time.Duration
	MaxPollAttempts int
	Logger          *infra.Logger
	Wait            WaitFunc
}

// Pipeline creates one upstream job per request, failing over across keys in
// order, then polls that job with the key that created it. It holds no
// mutable state and is safe for concurrent use.
type Pipeline struct {
	client      JobClient
	keys        []string
	interval    time.Duration
	maxAttempts int
	logger      *infra.Logger
	wait        WaitFunc
}

// NewPipeline applies defaults. An empty key list is a configuration error.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Client == nil {
		return nil, errors.New("imagegen: job client is required")
	}
	if len(opts.Keys) == 0 {
		return nil, credentials.ErrEmptyPool
	}
	interval := opts.PollInterval
	if interval < 0 {
		interval = DefaultPollInterval
	}
	maxAttempts := opts.MaxPollAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxPollAttempts
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	wait := opts.Wait
	if wait == nil {
		wait = sleepContext
	}
	keys := make([]string, len(opts.Keys))
	copy(keys, opts.Keys)
	return &Pipeline{
		client:      opts.Client,
		keys:        keys,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logger,
		wait:        wait,
	}, nil
}

// Generate runs creation, polling and response assembly for one request.
func (p *Pipeline) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, invalidRequest(msgPromptRequired, nil)
	}
	req.Prompt = prompt

	job, err := p.createJob(ctx, req)
	if err != nil {
		return nil, err
	}
	imageURL, err := p.pollJob(ctx, job)
	if err != nil {
		return nil, err
	}
	return &GenerationResult{
		ImageURL:    imageURL,
		Explanation: Explain(prompt),
	}, nil
}

// createJob tries each key in order until one is accepted. Exhausted or
// invalid keys and transport failures advance to the next key; any other
// upstream rejection ends the request.
func (p *Pipeline) createJob(ctx context.Context, req GenerationRequest) (Job, error) {
	payload := krea.CreateJobRequest{
		Prompt: BuildPrompt(req),
		Width:  req.Width,
		Height: req.Height,
		Steps:  req.Steps,
	}
	for i, key := range p.keys {
		attempt := i + 1
		log := p.logger.With().
			Int("attempt", attempt).
			Int("keys", len(p.keys)).
			Str("key", credentials.Mask(key)).
			Logger()

		resp, err := p.client.CreateJob(ctx, key, payload)
		if err != nil {
			var apiErr *krea.APIError
			if !errors.As(err, &apiErr) {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return Job{}, ctxErr
				}
				log.Warn().Err(err).Msg("imagegen: job creation transport failure, trying next key")
				continue
			}
			class := classifyKeyFailure(apiErr.Message)
			if !class.advance() {
				log.Error().
					Int("status", apiErr.StatusCode).
					Str("reason", apiErr.Message).
					Msg("imagegen: job creation rejected")
				return Job{}, upstreamRejected(apiErr.StatusCode, apiErr.Details(), apiErr)
			}
			log.Warn().
				Int("status", apiErr.StatusCode).
				Str("class", class.String()).
				Str("reason", apiErr.Message).
				Msg("imagegen: key rejected, trying next key")
			continue
		}

		if resp.JobID == "" {
			log.Error().Msg("imagegen: job creation returned no job id")
			return Job{}, jobCreationIncomplete(resp.Details())
		}
		log.Info().Str("job_id", resp.JobID).Msg("imagegen: job created")
		return Job{ID: resp.JobID, Credential: key}, nil
	}

	p.logger.Error().Int("keys", len(p.keys)).Msg("imagegen: all keys exhausted or invalid")
	return Job{}, credentialsExhausted(len(p.keys))
}

// pollJob waits, fetches and inspects the job status up to maxAttempts times.
func (p *Pipeline) pollJob(ctx context.Context, job Job) (string, error) {
	log := p.logger.With().Str("job_id", job.ID).Logger()
	lastStatus := ""
	resolvedWithoutURL := false

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := p.wait(ctx, p.interval); err != nil {
			return "", err
		}

		status, err := p.client.GetJob(ctx, job.Credential, job.ID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			var apiErr *krea.APIError
			if errors.As(err, &apiErr) {
				log.Error().Int("attempt", attempt).Int("status", apiErr.StatusCode).Msg("imagegen: polling rejected")
				return "", pollingError(apiErr.StatusCode, apiErr.Details(), err)
			}
			log.Error().Err(err).Int("attempt", attempt).Msg("imagegen: polling failed")
			return "", pollingError(http.StatusInternalServerError, nil, err)
		}

		lastStatus = strings.ToLower(strings.TrimSpace(status.Status))
		switch {
		case isSuccessStatus(lastStatus):
			if status.ImageURL != "" {
				log.Info().Int("attempt", attempt).Msg("imagegen: job resolved")
				return status.ImageURL, nil
			}
			// Treated as a field that has not been populated yet.
			resolvedWithoutURL = true
			log.Warn().Int("attempt", attempt).Str("status", lastStatus).Msg("imagegen: job finished without image url, polling again")
		case isFailureStatus(lastStatus):
			log.Error().Int("attempt", attempt).Str("status", lastStatus).Msg("imagegen: job failed upstream")
			return "", generationFailed(status.Details())
		default:
			log.Debug().Int("attempt", attempt).Str("status", lastStatus).Msg("imagegen: job pending")
		}
	}

	log.Error().Int("attempts", p.maxAttempts).Str("last_status", lastStatus).Msg("imagegen: job timed out")
	if resolvedWithoutURL {
		return "", generationTimedOut(map[string]string{
			"last_status": lastStatus,
			"reason":      "job reported completion without an image url",
		})
	}
	return "", generationTimedOut(nil)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ Generator = (*Pipeline)(nil)
