package util

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderNumber returns a public order number such as HP-20261019-3F2A9C1B.
func GenerateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "HP-" + now.UTC().Format("20060102") + "-" + suffix
}
