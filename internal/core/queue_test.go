package core

import (
	"testing"
	"time"

	"github.com/antigravity-dev/home-inventory/internal/coreerr"
	"github.com/antigravity-dev/home-inventory/internal/ids"
)

func newTestCore(t *testing.T) *Core {
	t.Helper()
	return New(Options{
		Clock:       ids.NewFrozenClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		IDGenerator: ids.NewSequentialGenerator(),
	})
}

func TestCreateUpload_MintsURLAndStoragePath(t *testing.T) {
	c := newTestCore(t)
	res, err := c.CreateUpload(CreateUploadInput{HouseholdID: "hh1", Filename: "my receipt!!.jpg", ContentType: "image/jpeg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Upload.Filename != "my_receipt__.jpg" {
		t.Fatalf("filename not sanitized: %q", res.Upload.Filename)
	}
	wantPath := "receipts/hh1/receipt_1/my_receipt__.jpg"
	if res.Upload.StoragePath != wantPath {
		t.Fatalf("storage path = %q, want %q", res.Upload.StoragePath, wantPath)
	}
	wantURL := "http://localhost:8789/upload/receipt_1"
	if res.UploadURL != wantURL {
		t.Fatalf("upload URL = %q, want %q", res.UploadURL, wantURL)
	}
	if res.Upload.Status != ReceiptUploaded {
		t.Fatalf("status = %v, want uploaded", res.Upload.Status)
	}
}

func TestCreateUpload_RequiresHouseholdAndFilename(t *testing.T) {
	c := newTestCore(t)
	if _, err := c.CreateUpload(CreateUploadInput{Filename: "a.jpg"}); !coreerr.Is(err, coreerr.InvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
	if _, err := c.CreateUpload(CreateUploadInput{HouseholdID: "hh1"}); !coreerr.Is(err, coreerr.InvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestEnqueueJob_ClaimSubmit_HappyPath(t *testing.T) {
	c := newTestCore(t)
	res, err := c.CreateUpload(CreateUploadInput{HouseholdID: "hh1", Filename: "r.jpg"})
	if err != nil {
		t.Fatalf("create upload: %v", err)
	}
	job, err := c.EnqueueJob(EnqueueJobInput{HouseholdID: "hh1", ReceiptUploadID: res.Upload.ReceiptUploadID})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.Status != JobQueued {
		t.Fatalf("status = %v, want queued", job.Status)
	}

	claimed, ok := c.ClaimNextJob()
	if !ok {
		t.Fatalf("expected a job to claim")
	}
	if claimed.JobID != job.JobID || claimed.Status != JobProcessing || claimed.Attempts != 1 {
		t.Fatalf("unexpected claimed job: %+v", claimed)
	}

	items := []ReceiptItem{{ItemKey: "rice", RawName: "Rice", NormalizedName: "rice", Quantity: 2, Unit: UnitKg, Category: CategoryGrain}}
	done, err := c.SubmitJobResult(job.JobID, items, "ocr text", "Trader Joe's", nil, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if done.Status != JobCompleted {
		t.Fatalf("status = %v, want completed", done.Status)
	}

	upload, err := c.GetReceipt(res.Upload.ReceiptUploadID)
	if err != nil {
		t.Fatalf("get receipt: %v", err)
	}
	if upload.Status != ReceiptParsed || len(upload.Items) != 1 {
		t.Fatalf("unexpected upload after submit: %+v", upload)
	}

	lots := c.ListLots("hh1")
	if len(lots) != 1 || lots[0].QuantityRemaining != 2 {
		t.Fatalf("expected one 2kg lot, got %+v", lots)
	}
	events := c.ListEvents("hh1")
	if len(events) != 1 || events[0].EventType != EventAdd {
		t.Fatalf("expected one add event, got %+v", events)
	}
}

func TestSubmitJobResult_IdempotentOnCompleted(t *testing.T) {
	c := newTestCore(t)
	res, _ := c.CreateUpload(CreateUploadInput{HouseholdID: "hh1", Filename: "r.jpg"})
	job, _ := c.EnqueueJob(EnqueueJobInput{HouseholdID: "hh1", ReceiptUploadID: res.Upload.ReceiptUploadID})
	c.ClaimNextJob()

	first, err := c.SubmitJobResult(job.JobID, []ReceiptItem{{ItemKey: "a", NormalizedName: "a", Quantity: 1, Unit: UnitCount, Category: CategoryOther}}, "", "", nil, "")
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := c.SubmitJobResult(job.JobID, []ReceiptItem{{ItemKey: "b", NormalizedName: "b", Quantity: 5, Unit: UnitCount, Category: CategoryOther}}, "changed", "changed", nil, "")
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if second.UpdatedAt != first.UpdatedAt {
		t.Fatalf("resubmitting a completed job mutated it: %+v vs %+v", first, second)
	}
	upload, _ := c.GetReceipt(res.Upload.ReceiptUploadID)
	if len(upload.Items) != 1 || upload.Items[0].ItemKey != "a" {
		t.Fatalf("resubmission overwrote prior result: %+v", upload.Items)
	}
	lots := c.ListLots("hh1")
	if len(lots) != 1 {
		t.Fatalf("resubmission should not create extra lots, got %+v", lots)
	}
}

func TestFailJob_RetriesThenDeadLetters(t *testing.T) {
	c := newTestCore(t)
	c.maxJobAttempts = 2
	res, _ := c.CreateUpload(CreateUploadInput{HouseholdID: "hh1", Filename: "r.jpg"})
	job, _ := c.EnqueueJob(EnqueueJobInput{HouseholdID: "hh1", ReceiptUploadID: res.Upload.ReceiptUploadID})

	c.ClaimNextJob()
	failed, err := c.FailJob(job.JobID, "ocr timeout")
	if err != nil {
		t.Fatalf("fail 1: %v", err)
	}
	if failed.Status != JobQueued {
		t.Fatalf("after first failure status = %v, want queued", failed.Status)
	}
	if len(c.ListDeadLetters("hh1")) != 0 {
		t.Fatalf("should not be dead-lettered yet")
	}

	c.ClaimNextJob()
	failed, err = c.FailJob(job.JobID, "ocr timeout again")
	if err != nil {
		t.Fatalf("fail 2: %v", err)
	}
	if failed.Status != JobFailed {
		t.Fatalf("after max attempts status = %v, want failed", failed.Status)
	}
	dead := c.ListDeadLetters("hh1")
	if len(dead) != 1 || dead[0].JobID != job.JobID {
		t.Fatalf("expected job dead-lettered, got %+v", dead)
	}

	upload, _ := c.GetReceipt(res.Upload.ReceiptUploadID)
	if upload.Status != ReceiptFailed {
		t.Fatalf("upload status = %v, want failed", upload.Status)
	}
}

func TestEnqueueBatch_RangeValidationAndPartialAcceptance(t *testing.T) {
	c := newTestCore(t)
	if _, err := c.EnqueueBatch(EnqueueBatchInput{HouseholdID: "hh1", Receipts: nil}); !coreerr.Is(err, coreerr.InvalidRequest) {
		t.Fatalf("expected invalid_request for empty batch, got %v", err)
	}

	receipts := make([]BatchReceiptInput, 11)
	for i := range receipts {
		receipts[i] = BatchReceiptInput{Filename: "r.jpg", OCRText: "x"}
	}
	if _, err := c.EnqueueBatch(EnqueueBatchInput{HouseholdID: "hh1", Receipts: receipts}); !coreerr.Is(err, coreerr.InvalidRequest) {
		t.Fatalf("expected invalid_request for 11 receipts, got %v", err)
	}

	res, err := c.EnqueueBatch(EnqueueBatchInput{
		HouseholdID: "hh1",
		Receipts: []BatchReceiptInput{
			{Filename: "a.jpg", OCRText: "jasmine rice"},
			{Filename: "b.jpg"}, // missing ocrText/receiptImageDataUrl -> rejected
		},
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if res.Accepted != 1 || res.Rejected != 1 {
		t.Fatalf("expected 1 accepted 1 rejected, got accepted=%d rejected=%d", res.Accepted, res.Rejected)
	}
}

func TestEnqueueBatch_IdempotentPerEntry(t *testing.T) {
	c := newTestCore(t)
	in := EnqueueBatchInput{
		HouseholdID: "hh1",
		Receipts: []BatchReceiptInput{
			{Filename: "a.jpg", OCRText: "rice", IdempotencyKey: "batch-entry-1"},
		},
	}
	first, err := c.EnqueueBatch(in)
	if err != nil {
		t.Fatalf("first batch: %v", err)
	}
	second, err := c.EnqueueBatch(in)
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if second.Results[0].Job.JobID != first.Results[0].Job.JobID {
		t.Fatalf("idempotent replay produced a different job: %+v vs %+v", first.Results[0].Job, second.Results[0].Job)
	}
}

func TestEnqueueJob_RejectsCrossHouseholdUpload(t *testing.T) {
	c := newTestCore(t)
	res, _ := c.CreateUpload(CreateUploadInput{HouseholdID: "hh1", Filename: "r.jpg"})
	if _, err := c.EnqueueJob(EnqueueJobInput{HouseholdID: "hh2", ReceiptUploadID: res.Upload.ReceiptUploadID}); !coreerr.Is(err, coreerr.HouseholdMismatch) {
		t.Fatalf("expected household_mismatch, got %v", err)
	}
}

func TestClaimNextJob_EmptyQueue(t *testing.T) {
	c := newTestCore(t)
	if _, ok := c.ClaimNextJob(); ok {
		t.Fatalf("expected no job to claim on empty queue")
	}
}

func TestGetJobAndGetReceiptReturnDefensiveCopies(t *testing.T) {
	c := newTestCore(t)
	res, _ := c.CreateUpload(CreateUploadInput{HouseholdID: "hh1", Filename: "r.jpg"})
	job, _ := c.EnqueueJob(EnqueueJobInput{HouseholdID: "hh1", ReceiptUploadID: res.Upload.ReceiptUploadID})

	gotJob, err := c.GetJob(job.JobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	gotJob.Status = JobFailed
	again, _ := c.GetJob(job.JobID)
	if again.Status == JobFailed {
		t.Fatalf("mutating a returned job corrupted the core's live state")
	}

	receipt, err := c.GetReceipt(res.Upload.ReceiptUploadID)
	if err != nil {
		t.Fatalf("get receipt: %v", err)
	}
	receipt.Status = ReceiptFailed
	againReceipt, _ := c.GetReceipt(res.Upload.ReceiptUploadID)
	if againReceipt.Status == ReceiptFailed {
		t.Fatalf("mutating a returned receipt corrupted the core's live state")
	}
}

func TestListDeadLettersReturnsDefensiveCopies(t *testing.T) {
	c := newTestCore(t)
	c.maxJobAttempts = 1
	res, _ := c.CreateUpload(CreateUploadInput{HouseholdID: "hh1", Filename: "r.jpg"})
	job, _ := c.EnqueueJob(EnqueueJobInput{HouseholdID: "hh1", ReceiptUploadID: res.Upload.ReceiptUploadID})
	c.ClaimNextJob()
	c.FailJob(job.JobID, "boom")

	dead := c.ListDeadLetters("hh1")
	if len(dead) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(dead))
	}
	dead[0].Notes = "tampered"

	again := c.ListDeadLetters("hh1")
	if again[0].Notes == "tampered" {
		t.Fatalf("mutating a returned dead letter corrupted the core's live state")
	}
}
