package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pribylovaa/go-room-booking/internal/models"
)

const (
	maxPageLimit  = 100
	maxNameLength = 50
)

// ValidationError — ErrInvalidArgument с причиной, которую можно показать клиенту.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// validatePage: offset >= 0, 1 <= limit <= 100.
func validatePage(page models.Page) error {
	if page.Offset < 0 {
		return invalid("offset must be >= 0")
	}

	if page.Limit < 1 || page.Limit > maxPageLimit {
		return invalid("limit must be between 1 and %d", maxPageLimit)
	}

	return nil
}

// normalizeName обрезает пробелы; имя не может быть пустым или длиннее 50 символов.
func normalizeName(field, raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", invalid("%s must not be empty", field)
	}

	if utf8.RuneCountInString(v) > maxNameLength {
		return "", invalid("%s must be at most %d characters", field, maxNameLength)
	}

	return v, nil
}
