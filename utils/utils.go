// Package utils provides utility functions for the application.
package utils

import (
	"context"
)

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// ContextString reads a string value stored under key, returning nil when absent or empty.
func ContextString(ctx context.Context, key contextKey) *string {
	v, ok := ctx.Value(key).(string)
	if !ok || v == "" {
		return nil
	}
	return &v
}
