package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/reviewpulse/internal/api/response"
	"github.com/kiranshivaraju/reviewpulse/internal/extract"
	"github.com/kiranshivaraju/reviewpulse/internal/ingest"
)

// writeError maps service errors onto status codes and error codes.
// Anything unrecognised becomes an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ingest.ErrFileTooLarge):
		response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			"File size exceeds the 10MB limit", nil)
	case errors.Is(err, ingest.ErrInvalidFileType), errors.Is(err, extract.ErrUnsupportedFormat):
		response.Error(w, http.StatusBadRequest, "INVALID_FILE_TYPE",
			"Invalid file type. Please upload CSV or Excel files only.", nil)
	case errors.Is(err, extract.ErrNoReviewsFound):
		response.Error(w, http.StatusBadRequest, "NO_REVIEWS_FOUND",
			"No valid reviews found in the file", nil)
	case errors.Is(err, extract.ErrCorruptFile):
		response.Error(w, http.StatusBadRequest, "CORRUPT_FILE",
			"The file could not be read", nil)
	case errors.Is(err, ingest.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "INVALID_INPUT",
			detail(err, ingest.ErrInvalidInput), nil)
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}

// detail strips the sentinel prefix from a wrapped "sentinel: detail" error.
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}
