package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/incomedesk/IncomeDesk/api/internal/analyzer"
	"github.com/incomedesk/IncomeDesk/api/internal/fpl"
	"github.com/incomedesk/IncomeDesk/api/internal/logging"
	"github.com/incomedesk/IncomeDesk/api/internal/metrics"
	"github.com/incomedesk/IncomeDesk/api/internal/middleware"
	"github.com/incomedesk/IncomeDesk/api/internal/ratelimit"
)

const (
	maxFilesPerRequest = 10
	maxHouseholdSize   = 20
	maxFileDataBytes   = 20 << 20 // base64 payload per file
)

// Analyzer is the slice of the AI client the handler needs; tests swap in
// a stub.
type Analyzer interface {
	Analyze(ctx context.Context, req analyzer.Request) (*analyzer.Extraction, error)
}

// AnalyzeHandlers serves document analysis requests.
type AnalyzeHandlers struct {
	client   Analyzer
	schedule *fpl.Schedule
	attempts *ratelimit.Store
	timeout  time.Duration
	logger   *logging.Logger
}

// NewAnalyzeHandlers creates analyze handlers
func NewAnalyzeHandlers(client Analyzer, schedule *fpl.Schedule, attempts *ratelimit.Store, timeout time.Duration, logger *logging.Logger) *AnalyzeHandlers {
	return &AnalyzeHandlers{
		client:   client,
		schedule: schedule,
		attempts: attempts,
		timeout:  timeout,
		logger:   logger,
	}
}

type analyzeRequest struct {
	Files         []analyzer.File `json:"files"`
	HouseholdSize int             `json:"householdSize"`
}

// AnalysisResult merges the model's verdict with the locally computed
// threshold figures.
type AnalysisResult struct {
	IsEligible       bool     `json:"isEligible"`
	AnnualIncome     *float64 `json:"annualIncome"`
	Reasoning        string   `json:"reasoning"`
	DocumentType     string   `json:"documentType"`
	HouseholdSize    int      `json:"householdSize"`
	PovertyLevel     float64  `json:"povertyLevel"`
	PovertyThreshold float64  `json:"povertyThreshold"`
}

// Analyze handles POST /api/analyze. The per-IP analyze limit is checked
// before anything else so a throttled caller never costs an upstream
// call; validation failures likewise stop before the model is involved.
func (h *AnalyzeHandlers) Analyze(w http.ResponseWriter, r *http.Request) {
	clientKey := middleware.ClientIP(r)

	decision := h.attempts.Check(clientKey)
	if !decision.Allowed {
		metrics.RecordRateLimitDenial("analyze")
		h.logger.Warn("Analyze rate limit exceeded", map[string]interface{}{
			"client":      clientKey,
			"retry_after": decision.RetryAfter,
		})
		WriteRateLimited(w, "Analysis limit reached, please try again later", decision.RetryAfter)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}
	if msg, ok := validateAnalyzeRequest(&req); !ok {
		WriteError(w, http.StatusBadRequest, msg)
		return
	}

	povertyLevel := h.schedule.PovertyLevel(req.HouseholdSize)
	povertyThreshold := h.schedule.Threshold(req.HouseholdSize)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	extraction, err := h.client.Analyze(ctx, analyzer.Request{
		Files:            req.Files,
		HouseholdSize:    req.HouseholdSize,
		PovertyLevel:     povertyLevel,
		PovertyThreshold: povertyThreshold,
	})
	if err != nil {
		metrics.RecordAnalysis("error")
		h.logger.Error("Document analysis failed", err, map[string]interface{}{
			"client":     clientKey,
			"file_count": len(req.Files),
			"request_id": middleware.GetRequestID(r.Context()),
		})
		WriteError(w, http.StatusInternalServerError, "Failed to analyze documents")
		return
	}

	if extraction.IsEligible {
		metrics.RecordAnalysis("eligible")
	} else {
		metrics.RecordAnalysis("ineligible")
	}

	WriteSuccess(w, AnalysisResult{
		IsEligible:       extraction.IsEligible,
		AnnualIncome:     extraction.AnnualIncome,
		Reasoning:        extraction.Reasoning,
		DocumentType:     extraction.DocumentType,
		HouseholdSize:    req.HouseholdSize,
		PovertyLevel:     povertyLevel,
		PovertyThreshold: povertyThreshold,
	}, http.StatusOK)
}

func validateAnalyzeRequest(req *analyzeRequest) (string, bool) {
	if len(req.Files) == 0 {
		return "At least one document is required", false
	}
	if len(req.Files) > maxFilesPerRequest {
		return "Too many documents in one request", false
	}
	for _, f := range req.Files {
		if f.MimeType == "" || f.Data == "" {
			return "Each document needs a mimeType and data", false
		}
		if len(f.Data) > maxFileDataBytes {
			return "Document exceeds the size limit", false
		}
	}
	if req.HouseholdSize < 1 || req.HouseholdSize > maxHouseholdSize {
		return "householdSize must be between 1 and 20", false
	}
	return "", true
}
