package domain

import (
	"encoding/json"
	"time"
)

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusProcessed  DocumentStatus = "processed"
	StatusError      DocumentStatus = "error"
	StatusCompleted  DocumentStatus = "completed"
)

func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusUploaded, StatusProcessing, StatusProcessed, StatusError, StatusCompleted:
		return true
	default:
		return false
	}
}

// ValidTransition reports whether moving from one status to another is legal.
// The only paths are uploaded→processing→{processed,error}, processed→completed
// and error→processing (retry). Nothing skips processing.
func ValidTransition(from, to DocumentStatus) bool {
	switch from {
	case StatusUploaded:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusProcessed || to == StatusError
	case StatusProcessed:
		return to == StatusCompleted
	case StatusError:
		return to == StatusProcessing
	default:
		return false
	}
}

type Document struct {
	ID               string          `json:"id"`
	OriginalFileName string          `json:"originalFileName"`
	ExtractedData    *ExtractedData  `json:"extractedData"`
	CompanyData      json.RawMessage `json:"companyData,omitempty"`
	Status           DocumentStatus  `json:"status"`
	ProcessedAt      *time.Time      `json:"processedAt"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// DocumentPatch is a partial update. Nil pointers leave the field untouched.
type DocumentPatch struct {
	ExtractedData *ExtractedData
	CompanyData   json.RawMessage
	Status        *DocumentStatus
}
