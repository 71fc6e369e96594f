package core

import (
	"fmt"
	"regexp"
	"time"

	"github.com/antigravity-dev/home-inventory/internal/coreerr"
	"github.com/antigravity-dev/home-inventory/internal/ids"
)

// queue.go implements the spec §4.1 job queue and worker protocol: a
// single-process, in-memory FIFO queue of receipt-processing jobs plus a
// dictionary of all jobs by id, serialized by queueMu.

// uploadURLTTL is how long a generated upload URL remains valid.
const uploadURLTTL = 15 * time.Minute

// maxBatchSize is the cap on receipts per EnqueueBatch call.
const maxBatchSize = 10

var filenameSanitizer = regexp.MustCompile(`[^A-Za-z0-9._-]`)

func sanitizeFilename(name string) string {
	if name == "" {
		return "upload"
	}
	return filenameSanitizer.ReplaceAllString(name, "_")
}

// CreateUploadInput describes a single receipt upload request.
type CreateUploadInput struct {
	HouseholdID string
	Filename    string
	ContentType string
}

// CreateUploadResult is the receipt record plus the short-lived URL a
// client uploads its image bytes to.
type CreateUploadResult struct {
	Upload    *ReceiptUpload
	UploadURL string
	ExpiresAt time.Time
}

// CreateUpload registers a new receipt upload and mints its upload URL.
// Idempotency: unconditionally mints a new id per call.
func (c *Core) CreateUpload(in CreateUploadInput) (*CreateUploadResult, error) {
	if in.HouseholdID == "" {
		return nil, coreerr.Invalid(coreerr.Issue{Path: "householdId", Message: "required"})
	}
	if in.Filename == "" {
		return nil, coreerr.Invalid(coreerr.Issue{Path: "filename", Message: "required"})
	}

	lock := c.householdLock(in.HouseholdID)
	lock.Lock()
	defer lock.Unlock()

	c.queueMu.Lock()
	defer c.queueMu.Unlock()

	now := c.clock.Now()
	receiptID := c.idgen.New(ids.KindReceiptUpload)
	sanitized := sanitizeFilename(in.Filename)
	upload := &ReceiptUpload{
		ReceiptUploadID: receiptID,
		HouseholdID:     in.HouseholdID,
		Filename:        sanitized,
		ContentType:     in.ContentType,
		StoragePath:     storagePathFor(in.HouseholdID, receiptID, sanitized),
		Status:          ReceiptUploaded,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	c.uploads[receiptID] = upload

	return &CreateUploadResult{
		Upload:    upload,
		UploadURL: uploadURLFor(c.uploadOrigin, receiptID),
		ExpiresAt: now.Add(uploadURLTTL),
	}, nil
}

func storagePathFor(householdID, receiptID, sanitizedFilename string) string {
	return fmt.Sprintf("receipts/%s/%s/%s", householdID, receiptID, sanitizedFilename)
}

func uploadURLFor(origin, receiptID string) string {
	return fmt.Sprintf("%s/upload/%s", origin, receiptID)
}

// EnqueueJobInput is a request to enqueue processing for an existing
// upload, optionally carrying pre-attached OCR/merchant/purchase data.
type EnqueueJobInput struct {
	HouseholdID         string
	ReceiptUploadID     string
	OCRText             string
	MerchantName        string
	PurchasedAt         *time.Time
	ReceiptImageDataURL string
}

// EnqueueJob creates a ReceiptProcessJob for an existing upload and places
// it at the back of the worker queue, transitioning the upload to
// processing.
func (c *Core) EnqueueJob(in EnqueueJobInput) (*ReceiptProcessJob, error) {
	lock := c.householdLock(in.HouseholdID)
	lock.Lock()
	defer lock.Unlock()

	c.queueMu.Lock()
	defer c.queueMu.Unlock()

	upload, ok := c.uploads[in.ReceiptUploadID]
	if !ok {
		return nil, coreerr.NotFoundf("receipt upload %q not found", in.ReceiptUploadID)
	}
	if upload.HouseholdID != in.HouseholdID {
		return nil, coreerr.HouseholdMismatchf("receipt upload %q belongs to another household", in.ReceiptUploadID)
	}

	if in.OCRText != "" {
		upload.OCRText = in.OCRText
	}
	if in.MerchantName != "" {
		upload.MerchantName = in.MerchantName
	}
	if in.PurchasedAt != nil {
		upload.PurchasedAt = in.PurchasedAt
	}
	if in.ReceiptImageDataURL != "" {
		upload.ReceiptImageDataURL = in.ReceiptImageDataURL
	}
	upload.Status = ReceiptProcessing
	upload.UpdatedAt = c.clock.Now()

	return c.enqueueJobLocked(upload), nil
}

// enqueueJobLocked assumes queueMu (and the relevant household lock) is
// already held.
func (c *Core) enqueueJobLocked(upload *ReceiptUpload) *ReceiptProcessJob {
	now := c.clock.Now()
	job := &ReceiptProcessJob{
		JobID:           c.idgen.New(ids.KindJob),
		ReceiptUploadID: upload.ReceiptUploadID,
		HouseholdID:     upload.HouseholdID,
		Status:          JobQueued,
		Attempts:        0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	c.jobs[job.JobID] = job
	c.queue = append(c.queue, job.JobID)
	return job
}

// BatchReceiptInput is one entry within an EnqueueBatch call.
type BatchReceiptInput struct {
	Filename            string
	ContentType         string
	OCRText             string
	ReceiptImageDataURL string
	MerchantName        string
	PurchasedAt         *time.Time
	IdempotencyKey      string
}

// BatchReceiptResult is the per-entry outcome of an EnqueueBatch call.
type BatchReceiptResult struct {
	Accepted     bool
	RejectReason string
	Upload       *ReceiptUpload
	Job          *ReceiptProcessJob
	UploadURL    string
}

// EnqueueBatchInput is a request to create and enqueue 1-10 receipt uploads
// in a single call.
type EnqueueBatchInput struct {
	HouseholdID string
	Receipts    []BatchReceiptInput
}

// EnqueueBatchResult pairs each entry's outcome with aggregate counts.
type EnqueueBatchResult struct {
	Results  []*BatchReceiptResult
	Accepted int
	Rejected int
}

// EnqueueBatch validates and enqueues between 1 and 10 receipts. Partial
// failure is allowed: accepted + rejected = len(Receipts). Each entry may
// carry its own idempotencyKey scoped to batch_enqueue.
func (c *Core) EnqueueBatch(in EnqueueBatchInput) (*EnqueueBatchResult, error) {
	if in.HouseholdID == "" {
		return nil, coreerr.Invalid(coreerr.Issue{Path: "householdId", Message: "required"})
	}
	if len(in.Receipts) < 1 || len(in.Receipts) > maxBatchSize {
		return nil, coreerr.Invalid(coreerr.Issue{Path: "receipts", Message: "must contain between 1 and 10 entries"})
	}

	lock := c.householdLock(in.HouseholdID)
	lock.Lock()
	defer lock.Unlock()

	result := &EnqueueBatchResult{}
	for _, r := range in.Receipts {
		br := c.enqueueBatchEntryLocked(in.HouseholdID, r)
		result.Results = append(result.Results, br)
		if br.Accepted {
			result.Accepted++
		} else {
			result.Rejected++
		}
	}
	return result, nil
}

func (c *Core) enqueueBatchEntryLocked(householdID string, r BatchReceiptInput) *BatchReceiptResult {
	if cached, ok := c.idempotentLookup(ScopeBatchEnqueue, r.IdempotencyKey); ok {
		return cached.(*BatchReceiptResult)
	}

	if r.OCRText == "" && r.ReceiptImageDataURL == "" {
		br := &BatchReceiptResult{Accepted: false, RejectReason: "ocrText or receiptImageDataUrl required"}
		c.idempotentStore(ScopeBatchEnqueue, r.IdempotencyKey, br)
		return br
	}

	c.queueMu.Lock()
	now := c.clock.Now()
	receiptID := c.idgen.New(ids.KindReceiptUpload)
	sanitized := sanitizeFilename(r.Filename)
	upload := &ReceiptUpload{
		ReceiptUploadID:     receiptID,
		HouseholdID:         householdID,
		Filename:            sanitized,
		ContentType:         r.ContentType,
		StoragePath:         storagePathFor(householdID, receiptID, sanitized),
		Status:              ReceiptProcessing,
		CreatedAt:           now,
		UpdatedAt:           now,
		OCRText:             r.OCRText,
		ReceiptImageDataURL: r.ReceiptImageDataURL,
		MerchantName:        r.MerchantName,
		PurchasedAt:         r.PurchasedAt,
	}
	c.uploads[receiptID] = upload
	job := c.enqueueJobLocked(upload)
	c.queueMu.Unlock()

	br := &BatchReceiptResult{
		Accepted:  true,
		Upload:    upload,
		Job:       job,
		UploadURL: uploadURLFor(c.uploadOrigin, receiptID),
	}
	c.idempotentStore(ScopeBatchEnqueue, r.IdempotencyKey, br)
	return br
}

// ClaimNextJob pops the oldest queued job for processing, skipping any head
// entry whose job is no longer queued or whose upload has gone missing. ok
// is false when no claimable job remains.
func (c *Core) ClaimNextJob() (job *ReceiptProcessJob, ok bool) {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()

	for len(c.queue) > 0 {
		jobID := c.queue[0]
		c.queue = c.queue[1:]

		j, exists := c.jobs[jobID]
		if !exists || j.Status != JobQueued {
			continue
		}
		upload, uok := c.uploads[j.ReceiptUploadID]
		if !uok {
			continue
		}

		j.Status = JobProcessing
		j.Attempts++
		j.UpdatedAt = c.clock.Now()
		upload.Status = ReceiptProcessing
		upload.UpdatedAt = j.UpdatedAt
		return j, true
	}
	return nil, false
}

// SubmitJobResult records the parsed receipt items for a job and applies
// the corresponding ledger mutations (§4.2) with source "receipt". It is
// idempotent: resubmitting a result for a job already completed returns
// the existing job unchanged, with no re-mutation.
func (c *Core) SubmitJobResult(jobID string, items []ReceiptItem, ocrText, merchantName string, purchasedAt *time.Time, notes string) (*ReceiptProcessJob, error) {
	c.queueMu.Lock()
	job, ok := c.jobs[jobID]
	c.queueMu.Unlock()
	if !ok {
		return nil, coreerr.NotFoundf("job %q not found", jobID)
	}

	lock := c.householdLock(job.HouseholdID)
	lock.Lock()
	defer lock.Unlock()

	c.queueMu.Lock()
	job, ok = c.jobs[jobID]
	if !ok {
		c.queueMu.Unlock()
		return nil, coreerr.NotFoundf("job %q not found", jobID)
	}
	if job.Status == JobCompleted {
		c.queueMu.Unlock()
		return job, nil
	}

	now := c.clock.Now()
	job.Status = JobCompleted
	job.UpdatedAt = now
	job.Error = ""
	job.Notes = notes

	upload, uok := c.uploads[job.ReceiptUploadID]
	if uok {
		upload.Status = ReceiptParsed
		upload.Items = items
		if ocrText != "" {
			upload.OCRText = ocrText
		}
		if merchantName != "" {
			upload.MerchantName = merchantName
		}
		if purchasedAt != nil {
			upload.PurchasedAt = purchasedAt
		}
		upload.UpdatedAt = now
	}
	c.queueMu.Unlock()

	for _, item := range items {
		c.applyReceiptItemLocked(job.HouseholdID, item, purchasedAt)
	}
	return job, nil
}

// FailJob records a processing failure. The job is requeued up to
// maxJobAttempts; beyond that it moves to the dead-letter list.
func (c *Core) FailJob(jobID, errMsg string) (*ReceiptProcessJob, error) {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()

	job, ok := c.jobs[jobID]
	if !ok {
		return nil, coreerr.NotFoundf("job %q not found", jobID)
	}

	now := c.clock.Now()
	job.Error = errMsg
	job.UpdatedAt = now

	if job.Attempts >= c.maxJobAttempts {
		job.Status = JobFailed
		c.deadLetters = append(c.deadLetters, job)
		if upload, ok := c.uploads[job.ReceiptUploadID]; ok {
			upload.Status = ReceiptFailed
			upload.UpdatedAt = now
		}
		return job, nil
	}

	job.Status = JobQueued
	c.queue = append(c.queue, job.JobID)
	return job, nil
}

// GetJob returns a job by id.
func (c *Core) GetJob(jobID string) (*ReceiptProcessJob, error) {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	job, ok := c.jobs[jobID]
	if !ok {
		return nil, coreerr.NotFoundf("job %q not found", jobID)
	}
	return job.Clone(), nil
}

// GetReceipt returns an upload by id.
func (c *Core) GetReceipt(receiptUploadID string) (*ReceiptUpload, error) {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	upload, ok := c.uploads[receiptUploadID]
	if !ok {
		return nil, coreerr.NotFoundf("receipt upload %q not found", receiptUploadID)
	}
	return upload.Clone(), nil
}

// ListDeadLetters returns dead-lettered jobs for a household, oldest first.
func (c *Core) ListDeadLetters(householdID string) []*ReceiptProcessJob {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()

	out := make([]*ReceiptProcessJob, 0)
	for _, j := range c.deadLetters {
		if j.HouseholdID == householdID {
			out = append(out, j.Clone())
		}
	}
	return out
}
