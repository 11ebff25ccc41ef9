package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/reviewpulse/internal/api/middleware"
	"github.com/kiranshivaraju/reviewpulse/internal/api/response"
	"github.com/kiranshivaraju/reviewpulse/internal/extract"
	"github.com/kiranshivaraju/reviewpulse/internal/ingest"
	"github.com/kiranshivaraju/reviewpulse/pkg/models"
)

const (
	uploadFormField = "file"
	// multipartOverhead is the slack allowed above the file limit for
	// multipart boundaries and part headers.
	multipartOverhead = 1 << 20
)

// spreadsheetTypes covers extensions the platform MIME table may lack.
var spreadsheetTypes = map[string]string{
	".csv":  extract.MIMETypeCSV,
	".xls":  extract.MIMETypeXLS,
	".xlsx": extract.MIMETypeXLSX,
}

// typeByExtension guesses a MIME type from the uploaded file name.
func typeByExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := spreadsheetTypes[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}

// Ingester is the ingestion surface the review handlers depend on.
type Ingester interface {
	IngestFile(ctx context.Context, ownerID uuid.UUID, data []byte, mimeType string) (*ingest.BatchResult, error)
	IngestText(ctx context.Context, ownerID uuid.UUID, text string) (models.ClassificationResult, error)
}

// ReviewReader serves an owner's stored reviews and aggregates.
type ReviewReader interface {
	Stats(ctx context.Context, ownerID uuid.UUID) (models.ReviewStats, error)
	Recent(ctx context.Context, ownerID uuid.UUID, limit int) ([]*models.Review, error)
}

type uploadResponse struct {
	Message string                        `json:"message"`
	Results []models.ClassificationResult `json:"results"`
	Summary ingest.Summary                `json:"summary"`
	Errors  []ingest.ItemError            `json:"errors"`
}

// NewUploadHandler returns an http.HandlerFunc for POST /api/v1/reviews/upload.
func NewUploadHandler(svc Ingester, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := mw.OwnerID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing owner", nil)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+multipartOverhead)
		file, header, err := r.FormFile(uploadFormField)
		if err != nil {
			var maxErr *http.MaxBytesError
			switch {
			case errors.As(err, &maxErr):
				writeError(w, r, ingest.ErrFileTooLarge)
			case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
				response.Error(w, http.StatusBadRequest, "INVALID_INPUT", "No file uploaded", nil)
			default:
				response.Error(w, http.StatusBadRequest, "INVALID_INPUT", "Malformed multipart body", nil)
			}
			return
		}
		defer file.Close()

		// Read one byte past the limit so the service can reject oversize files.
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if err != nil {
			writeError(w, r, fmt.Errorf("reading upload: %w", err))
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			if byExt := typeByExtension(header.Filename); byExt != "" {
				mimeType = byExt
			}
		}

		batch, err := svc.IngestFile(r.Context(), ownerID, data, mimeType)
		if err != nil {
			writeError(w, r, err)
			return
		}

		response.JSON(w, uploadResponse{
			Message: fmt.Sprintf("Successfully analyzed %d reviews", len(batch.Results)),
			Results: batch.Results,
			Summary: batch.Summary,
			Errors:  batch.Errors,
		})
	}
}

// NewAnalyzeTextHandler returns an http.HandlerFunc for POST /api/v1/reviews/analyze-text.
func NewAnalyzeTextHandler(svc Ingester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := mw.OwnerID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing owner", nil)
			return
		}

		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid JSON body", nil)
			return
		}

		res, err := svc.IngestText(r.Context(), ownerID, req.Text)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, res)
	}
}

// NewRecentReviewsHandler returns an http.HandlerFunc for GET /api/v1/reviews/recent.
func NewRecentReviewsHandler(svc ReviewReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := mw.OwnerID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing owner", nil)
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_INPUT", "limit must be an integer", nil)
				return
			}
			limit = n
		}

		reviews, err := svc.Recent(r.Context(), ownerID, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, reviews)
	}
}

// NewReviewStatsHandler returns an http.HandlerFunc for GET /api/v1/reviews/stats.
func NewReviewStatsHandler(svc ReviewReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := mw.OwnerID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing owner", nil)
			return
		}

		stats, err := svc.Stats(r.Context(), ownerID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, stats)
	}
}
