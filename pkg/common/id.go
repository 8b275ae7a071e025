package common

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateID generates a unique ID with the given prefix.
// Format: prefix-uuid[:8]
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String()[:8])
}

// GenerateRunID generates an ID identifying one maintenance run in logs and reports.
func GenerateRunID(operation string) string {
	return GenerateID(operation)
}
