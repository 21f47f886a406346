package handlers

import (
	"net/http"

	"github.com/incomedesk/IncomeDesk/api/internal/logging"
	"github.com/incomedesk/IncomeDesk/api/internal/metrics"
)

// SystemHandlers exposes a host/runtime snapshot for the admin view.
type SystemHandlers struct {
	logger *logging.Logger
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(logger *logging.Logger) *SystemHandlers {
	return &SystemHandlers{logger: logger}
}

// GetSystemMetrics handles GET /api/system
func (h *SystemHandlers) GetSystemMetrics(w http.ResponseWriter, r *http.Request) {
	snapshot := metrics.CollectSystemMetrics(r.Context())
	WriteSuccess(w, snapshot, http.StatusOK)
}
