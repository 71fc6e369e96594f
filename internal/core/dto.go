package core

import "time"

// dto.go defines the normalized wire-facing request/response shapes the API
// layer binds JSON bodies to and serializes back, per spec §6 "External
// Interface Contracts". Core functions never import encoding/json directly;
// the HTTP layer owns marshaling, this package only owns the Go shapes.

// ReceiptUploadRequest is the POST /v1/receipts/upload-url body.
type ReceiptUploadRequest struct {
	HouseholdID string `json:"householdId"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// ReceiptUploadResponse is the POST /v1/receipts/upload-url response.
type ReceiptUploadResponse struct {
	ReceiptUploadID string    `json:"receiptUploadId"`
	UploadURL       string    `json:"uploadUrl"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

// ReceiptDetailsResponse is the GET /v1/receipts/{id} response.
type ReceiptDetailsResponse struct {
	Receipt *ReceiptUpload `json:"receipt"`
}

// ProcessReceiptRequest is the POST /v1/receipts/{id}/process body.
type ProcessReceiptRequest struct {
	OCRText             string     `json:"ocrText,omitempty"`
	MerchantName        string     `json:"merchantName,omitempty"`
	PurchasedAt         *time.Time `json:"purchasedAt,omitempty"`
	ReceiptImageDataURL string     `json:"receiptImageDataUrl,omitempty"`
}

// EnqueueJobResponse is the POST /v1/receipts/{id}/process response (202).
type EnqueueJobResponse struct {
	Job *ReceiptProcessJob `json:"job"`
}

// ReceiptReviewRequest is the PUT /v1/receipts/{id}/review body.
type ReceiptReviewRequest struct {
	Mode           string        `json:"mode"`
	Items          []ReceiptItem `json:"items"`
	IdempotencyKey string        `json:"idempotencyKey,omitempty"`
}

// ReceiptReviewResponse is the PUT /v1/receipts/{id}/review response.
type ReceiptReviewResponse struct {
	Lots   []*InventoryLot   `json:"lots"`
	Events []*InventoryEvent `json:"events"`
}

// BatchReceiptEntry is one entry in a BatchReceiptProcessRequest.
type BatchReceiptEntry struct {
	Filename            string     `json:"filename"`
	ContentType         string     `json:"contentType,omitempty"`
	OCRText             string     `json:"ocrText,omitempty"`
	ReceiptImageDataURL string     `json:"receiptImageDataUrl,omitempty"`
	MerchantName        string     `json:"merchantName,omitempty"`
	PurchasedAt         *time.Time `json:"purchasedAt,omitempty"`
	IdempotencyKey      string     `json:"idempotencyKey,omitempty"`
}

// BatchReceiptProcessRequest is the POST /v1/receipts/batch/process body.
type BatchReceiptProcessRequest struct {
	HouseholdID string              `json:"householdId"`
	Receipts    []BatchReceiptEntry `json:"receipts"`
}

// BatchReceiptEntryResult is one entry's outcome in the batch response.
type BatchReceiptEntryResult struct {
	Accepted     bool               `json:"accepted"`
	RejectReason string             `json:"rejectReason,omitempty"`
	UploadURL    string             `json:"uploadUrl,omitempty"`
	Receipt      *ReceiptUpload     `json:"receipt,omitempty"`
	Job          *ReceiptProcessJob `json:"job,omitempty"`
}

// BatchReceiptProcessResponse is the POST /v1/receipts/batch/process
// response (202).
type BatchReceiptProcessResponse struct {
	Results  []BatchReceiptEntryResult `json:"results"`
	Accepted int                       `json:"accepted"`
	Rejected int                       `json:"rejected"`
}

// JobStatusResponse is the GET /v1/jobs/{id} response.
type JobStatusResponse struct {
	Job *ReceiptProcessJob `json:"job"`
}

// InventorySnapshotResponse is the GET /v1/inventory/{householdId} response.
type InventorySnapshotResponse struct {
	Lots   []*InventoryLot   `json:"lots"`
	Events []*InventoryEvent `json:"events"`
}

// ManualInventoryEntryRequest is the POST .../manual-items body.
type ManualInventoryEntryRequest struct {
	Items []ManualItemInput `json:"items"`
}

// ManualInventoryEntryResponse is the POST .../manual-items response (201).
type ManualInventoryEntryResponse struct {
	Lots   []*InventoryLot   `json:"lots"`
	Events []*InventoryEvent `json:"events"`
}

// LotExpiryOverrideRequest is the POST .../lots/{lotId}/expiry body.
type LotExpiryOverrideRequest struct {
	ExpiresAt time.Time `json:"expiresAt"`
}

// LotExpiryOverrideResponse is the POST .../lots/{lotId}/expiry response.
type LotExpiryOverrideResponse struct {
	Lot *InventoryLot `json:"lot"`
}

// LotExpiryRisk pairs a lot with its current risk tier for the expiry-risk
// listing; lots with no expiresAt carry no risk level and are omitted.
type LotExpiryRisk struct {
	Lot       *InventoryLot `json:"lot"`
	RiskLevel RiskLevel     `json:"riskLevel"`
	DaysLeft  int           `json:"daysLeft"`
}

// ExpiryRiskResponse is the GET .../expiry-risk response, highest-risk
// first.
type ExpiryRiskResponse struct {
	Items []LotExpiryRisk `json:"items"`
}

// DailyRecommendationsResponse is the GET/POST .../daily[/generate]
// response.
type DailyRecommendationsResponse struct {
	Run             *RecommendationRun         `json:"run"`
	Recommendations []*DailyMealRecommendation `json:"recommendations"`
}

// WeeklyRecommendationsResponse is the GET/POST .../weekly[/generate]
// response.
type WeeklyRecommendationsResponse struct {
	Run             *RecommendationRun             `json:"run"`
	Recommendations []*WeeklyPurchaseRecommendation `json:"recommendations"`
}

// GenerateRunRequest is the POST .../daily/generate or .../weekly/generate
// body; TargetDate defaults to now when omitted.
type GenerateRunRequest struct {
	TargetDate *time.Time `json:"targetDate,omitempty"`
}

// RecommendationFeedbackRequest is the POST .../feedback body.
type RecommendationFeedbackRequest struct {
	HouseholdID string             `json:"householdId"`
	SignalType  FeedbackSignalType `json:"signalType"`
	SignalValue *float64           `json:"signalValue,omitempty"`
	Context     string             `json:"context,omitempty"`
}

// RecommendationFeedbackResponse is the POST .../feedback response.
type RecommendationFeedbackResponse struct {
	Feedback *RecommendationFeedback `json:"feedback"`
}

// MealCheckinPendingResponse is the GET .../checkins/{householdId}/pending
// response.
type MealCheckinPendingResponse struct {
	Checkins []*MealCheckin `json:"checkins"`
}

// MealCheckinSubmitRequest is the POST /v1/checkins/{id}/submit body.
type MealCheckinSubmitRequest struct {
	HouseholdID    string             `json:"householdId"`
	Outcome        MealCheckinOutcome `json:"outcome"`
	Lines          []MealCheckinLine  `json:"lines,omitempty"`
	Notes          string             `json:"notes,omitempty"`
	IdempotencyKey string             `json:"idempotencyKey,omitempty"`
}

// MealCheckinSubmitResponse is the POST /v1/checkins/{id}/submit response.
type MealCheckinSubmitResponse struct {
	Checkin       *MealCheckin `json:"checkin"`
	EventsCreated int          `json:"eventsCreated"`
}

// ShoppingDraftGenerateRequest is the POST .../shopping-drafts/{id}/generate
// body.
type ShoppingDraftGenerateRequest struct {
	WeekOf     *time.Time `json:"weekOf,omitempty"`
	Regenerate bool       `json:"regenerate,omitempty"`
}

// ShoppingDraftResponse wraps a ShoppingDraft across every shopping-draft
// route.
type ShoppingDraftResponse struct {
	Draft *ShoppingDraft `json:"draft"`
}

// ShoppingDraftItemPatchRequest is one entry of the PATCH
// .../shopping-drafts/{draftId}/items body.
type ShoppingDraftItemPatchRequest struct {
	DraftItemID string                   `json:"draftItemId"`
	Status      *ShoppingDraftItemStatus `json:"itemStatus,omitempty"`
	Quantity    *float64                 `json:"quantity,omitempty"`
}

// PatchShoppingDraftItemsRequest is the PATCH .../items body.
type PatchShoppingDraftItemsRequest struct {
	HouseholdID    string                          `json:"householdId"`
	Items          []ShoppingDraftItemPatchRequest `json:"items"`
	IdempotencyKey string                          `json:"idempotencyKey,omitempty"`
}

// PatchShoppingDraftItemsResponse is the PATCH .../items response.
type PatchShoppingDraftItemsResponse struct {
	Draft   *ShoppingDraft `json:"draft"`
	Updated bool           `json:"updated"`
}

// PantryHealthHistoryResponse is the GET .../pantry-health/{id}/history
// response.
type PantryHealthHistoryResponse struct {
	History []*PantryHealthScore `json:"history"`
}

// ClaimJobResponse is the POST /internal/jobs/claim response; Job is nil and
// Available is false when the queue is empty.
type ClaimJobResponse struct {
	Job       *ReceiptProcessJob `json:"job,omitempty"`
	Available bool               `json:"available"`
}

// JobResultRequest is the POST /internal/jobs/{jobId}/result body.
type JobResultRequest struct {
	Items        []ReceiptItem `json:"items"`
	OCRText      string        `json:"ocrText,omitempty"`
	MerchantName string        `json:"merchantName,omitempty"`
	PurchasedAt  *time.Time    `json:"purchasedAt,omitempty"`
	Notes        string        `json:"notes,omitempty"`
}

// JobResultResponse is the POST /internal/jobs/{jobId}/result response.
type JobResultResponse struct {
	Job *ReceiptProcessJob `json:"job"`
}

// JobFailRequest is the POST /internal/jobs/{jobId}/fail body.
type JobFailRequest struct {
	Error string `json:"error"`
}

// ErrorResponse is the body written for every non-2xx response (spec §6/§7).
type ErrorResponse struct {
	Error  string       `json:"error"`
	Issues []ErrorIssue `json:"issues,omitempty"`
}

// ErrorIssue is one field-level validation failure.
type ErrorIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}
