// Package utils provides utility functions for the application.
package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// ParseUUID parses a UUID string, rejecting the nil UUID
func ParseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid uuid %q: %w", s, err)
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid uuid %q: nil uuid", s)
	}
	return id, nil
}

// MaskPhone keeps the country prefix and last four digits of a phone number
func MaskPhone(phone string) string {
	if len(phone) <= 8 {
		return "***"
	}
	return phone[:5] + "***" + phone[len(phone)-4:]
}
