package request

import (
	"strings"
	"time"

	"packsend-service/internal/pkg/ptr"
)

type AcquireLockRequest struct {
	Fingerprint string `json:"fingerprint" binding:"omitempty,max=128"`
	TTLSeconds  *int   `json:"ttl_seconds,omitempty" binding:"omitempty,min=1,max=3600"`
}

// FingerprintOr prefers the body value and falls back to the header.
func (r AcquireLockRequest) FingerprintOr(header string) string {
	if fp := strings.TrimSpace(r.Fingerprint); fp != "" {
		return fp
	}
	return strings.TrimSpace(header)
}

// TTL is zero when unset so the server default applies.
func (r AcquireLockRequest) TTL() time.Duration {
	return time.Duration(ptr.Coalesce(r.TTLSeconds, 0)) * time.Second
}

type RespondTakeoverRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}
