package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/reviewpulse/internal/api/middleware"
	"github.com/kiranshivaraju/reviewpulse/internal/api/response"
	"github.com/kiranshivaraju/reviewpulse/pkg/models"
)

// ReportBuilder produces an owner's insights report.
type ReportBuilder interface {
	Report(ctx context.Context, ownerID uuid.UUID) (models.InsightsReport, error)
}

// NewInsightsHandler returns an http.HandlerFunc for GET /api/v1/insights.
func NewInsightsHandler(svc ReportBuilder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := mw.OwnerID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing owner", nil)
			return
		}

		report, err := svc.Report(r.Context(), ownerID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, report)
	}
}
