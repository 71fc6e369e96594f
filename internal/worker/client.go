// Package worker implements the extraction worker (spec §4.1 "Worker
// protocol"): a long-running process that polls the job queue over HTTP,
// extracts structured items from a receipt's OCR text, and reports the
// result back, retrying submission with backoff on transport failure.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/antigravity-dev/home-inventory/internal/core"
)

// Client is the worker's HTTP view of the API server's internal surface.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a Client targeting baseURL, authenticating with token on
// every /internal/* call.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.HasPrefix(path, "/internal/") {
		req.Header.Set("x-home-inventory-worker-token", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ClaimJob polls for the next queued job. ok is false when the queue is
// empty.
func (c *Client) ClaimJob(ctx context.Context) (job *core.ReceiptProcessJob, ok bool, err error) {
	var resp core.ClaimJobResponse
	if err := c.do(ctx, http.MethodPost, "/internal/jobs/claim", nil, &resp); err != nil {
		return nil, false, err
	}
	return resp.Job, resp.Available, nil
}

// GetReceipt fetches the full upload (OCR text, image data URL) a claimed
// job refers to.
func (c *Client) GetReceipt(ctx context.Context, receiptUploadID string) (*core.ReceiptUpload, error) {
	var resp core.ReceiptDetailsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/receipts/"+receiptUploadID, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Receipt, nil
}

// SubmitResult reports a successful extraction for jobID.
func (c *Client) SubmitResult(ctx context.Context, jobID string, req core.JobResultRequest) error {
	return c.do(ctx, http.MethodPost, "/internal/jobs/"+jobID+"/result", req, nil)
}

// Fail reports a failed extraction for jobID.
func (c *Client) Fail(ctx context.Context, jobID, errMsg string) error {
	return c.do(ctx, http.MethodPost, "/internal/jobs/"+jobID+"/fail", core.JobFailRequest{Error: errMsg}, nil)
}
