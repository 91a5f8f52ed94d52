package memory

import (
	"time"

	dompayment "example.com/map-storefront/internal/domain/payment"
)

// VerificationCache memoizes payment verification results per session id.
type VerificationCache struct {
	m *TTLMap[dompayment.Verification]
}

func NewVerificationCache() *VerificationCache {
	return &VerificationCache{m: NewTTLMap[dompayment.Verification]()}
}

func (c *VerificationCache) Get(sessionID string, ttl time.Duration) (dompayment.Verification, bool) {
	return c.m.GetFresh(sessionID, ttl)
}

func (c *VerificationCache) Put(v dompayment.Verification) {
	c.m.Put(v.SessionID, v)
}

func (c *VerificationCache) Delete(sessionID string) {
	c.m.Delete(sessionID)
}

// Sweep drops entries older than maxAge.
func (c *VerificationCache) Sweep(maxAge time.Duration) int {
	cutoff := c.m.now().Add(-maxAge)
	return c.m.SweepFunc(func(_ dompayment.Verification, storedAt time.Time) bool {
		return storedAt.Before(cutoff)
	})
}
