package ingest

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidFileType = errors.New("invalid file type. Please upload CSV or Excel files only")
	ErrFileTooLarge    = errors.New("file exceeds the maximum upload size")
	ErrPersistence     = errors.New("failed to save review")
)
