package payment

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	dompayment "example.com/map-storefront/internal/domain/payment"
)

type SessionFetcher interface {
	GetSession(ctx context.Context, sessionID string) (*dompayment.SessionDetails, error)
}

type VerificationCache interface {
	Get(sessionID string, ttl time.Duration) (dompayment.Verification, bool)
	Put(v dompayment.Verification)
}

const (
	DefaultCacheTTL      = 24 * time.Hour
	DefaultErrorCacheTTL = time.Minute
)

type Service struct {
	gateway  SessionFetcher
	cache    VerificationCache
	ttl      time.Duration
	errorTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(gateway SessionFetcher, cache VerificationCache, ttl, errorTTL time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if errorTTL <= 0 {
		errorTTL = DefaultErrorCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gateway:  gateway,
		cache:    cache,
		ttl:      ttl,
		errorTTL: errorTTL,
		logger:   logger.With(zap.String("component", "payment")),
		now:      time.Now,
	}
}

// VerifyPayment reports whether the session is paid. Answers are cached for
// the full TTL; gateway failures are cached as not paid for the shorter
// error TTL so a flapping gateway is not hammered.
func (s *Service) VerifyPayment(ctx context.Context, sessionID string) bool {
	if sessionID == "" {
		return false
	}
	if v, ok := s.cache.Get(sessionID, s.ttl); ok {
		if !v.Transient || s.now().Sub(v.CheckedAt) < s.errorTTL {
			return v.Paid
		}
	}

	v := dompayment.Verification{SessionID: sessionID, CheckedAt: s.now()}
	details, err := s.gateway.GetSession(ctx, sessionID)
	switch {
	case errors.Is(err, dompayment.ErrSessionNotFound):
		s.logger.Info("verify unknown session", zap.String("session_id", sessionID))
	case err != nil:
		s.logger.Warn("verify payment failed", zap.String("session_id", sessionID), zap.Error(err))
		v.Transient = true
	default:
		v.Paid = details.Paid()
	}
	s.cache.Put(v)
	return v.Paid
}
