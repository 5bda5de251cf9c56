package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNoAPIKey         = errors.New("no api key configured")
	ErrAIProvider       = errors.New("ai provider failure")
	ErrRateLimited      = errors.New("ai provider rate limit exhausted")
	ErrInsufficientText = errors.New("insufficient extracted text")
	ErrNoJSON           = errors.New("no json object in ai response")
	ErrSchemaValidation = errors.New("extracted data failed schema validation")
	ErrGeneration       = errors.New("document generation failure")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
