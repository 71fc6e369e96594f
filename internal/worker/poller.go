package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/antigravity-dev/home-inventory/internal/core"
)

// Config configures the poller loop, sourced from config.Worker.
type Config struct {
	PollInterval      time.Duration
	BackoffBase       time.Duration
	MaxSubmitAttempts int
}

// Poller repeatedly claims jobs from the API server, extracts items from
// their OCR text, and reports the outcome, retrying submission with
// backoff on transport failure rather than dropping the result.
type Poller struct {
	client    *Client
	extractor Extractor
	cfg       Config
	logger    *slog.Logger
}

// NewPoller builds a Poller.
func NewPoller(client *Client, extractor Extractor, cfg Config, logger *slog.Logger) *Poller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 250 * time.Millisecond
	}
	if cfg.MaxSubmitAttempts <= 0 {
		cfg.MaxSubmitAttempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{client: client, extractor: extractor, cfg: cfg, logger: logger}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	job, ok, err := p.client.ClaimJob(ctx)
	if err != nil {
		p.logger.Error("claim job failed", "error", err)
		return
	}
	if !ok {
		return
	}
	p.logger.Info("claimed job", "jobId", job.JobID, "householdId", job.HouseholdID)
	p.process(ctx, job)
}

func (p *Poller) process(ctx context.Context, job *core.ReceiptProcessJob) {
	upload, err := p.client.GetReceipt(ctx, job.ReceiptUploadID)
	if err != nil {
		p.reportFailure(ctx, job.JobID, "fetch receipt: "+err.Error())
		return
	}

	result, err := p.extractor.Extract(ctx, upload)
	if err != nil {
		p.reportFailure(ctx, job.JobID, "extraction failed: "+err.Error())
		return
	}

	req := core.JobResultRequest{
		Items:        result.Items,
		OCRText:      upload.OCRText,
		MerchantName: result.MerchantName,
		PurchasedAt:  result.PurchasedAt,
		Notes:        "",
	}
	p.submitWithRetry(ctx, job.JobID, req)
}

// submitWithRetry retries a transport failure while reporting the result,
// up to MaxSubmitAttempts, backing off between attempts. A failure after
// the last attempt is reported to the server as a job failure so it
// re-enters the queue (or dead-letters past the server's own attempt cap).
func (p *Poller) submitWithRetry(ctx context.Context, jobID string, req core.JobResultRequest) {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxSubmitAttempts; attempt++ {
		if err := p.client.SubmitResult(ctx, jobID, req); err != nil {
			lastErr = err
			p.logger.Warn("submit result failed, retrying", "jobId", jobID, "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoffDelay(attempt, p.cfg.BackoffBase, 10*time.Second)):
			}
			continue
		}
		return
	}
	p.reportFailure(ctx, jobID, "submit result: "+lastErr.Error())
}

func (p *Poller) reportFailure(ctx context.Context, jobID, reason string) {
	p.logger.Error("job failed", "jobId", jobID, "reason", reason)
	if err := p.client.Fail(ctx, jobID, reason); err != nil {
		p.logger.Error("report failure to server failed", "jobId", jobID, "error", err)
	}
}
