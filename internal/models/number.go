package models

import (
	"strings"

	"github.com/google/uuid"
)

// NewNumber returns a human-readable document number such as "PO-3F9A1C2B".
func NewNumber(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + strings.ToUpper(id[:8])
}
