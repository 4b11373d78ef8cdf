package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewContractNumber returns Secure-<yyyyMMddHHmmss>-<8 hex>
func NewContractNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "Secure-" + now.Format("20060102150405") + "-" + suffix
}
