// Package fulfillment turns a completed payment into a print order. It owns
// the webhook state machine: pending lookup, shipping fetch, upload, order,
// best-effort mockup, completed write, pending delete.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	domfulfillment "example.com/map-storefront/internal/domain/fulfillment"
	domorder "example.com/map-storefront/internal/domain/order"
	dompayment "example.com/map-storefront/internal/domain/payment"
)

type Outcome string

const (
	OutcomeIgnored                Outcome = "ignored"
	OutcomeCompletedWithMockup    Outcome = "completed_with_mockup"
	OutcomeCompletedWithoutMockup Outcome = "completed_without_mockup"
	OutcomeSilentlyFailed         Outcome = "silently_failed"
)

func (o Outcome) Completed() bool {
	return o == OutcomeCompletedWithMockup || o == OutcomeCompletedWithoutMockup
}

type SessionFetcher interface {
	GetSession(ctx context.Context, sessionID string) (*dompayment.SessionDetails, error)
}

type Provider interface {
	UploadFile(ctx context.Context, dataURL, filename string) (*domfulfillment.File, error)
	CreateOrder(ctx context.Context, req domfulfillment.OrderRequest) (string, error)
	GenerateMockup(ctx context.Context, fileURL string) (string, error)
}

const DefaultPipelineTimeout = 3 * time.Minute

type Service struct {
	gateway   SessionFetcher
	provider  Provider
	pending   domorder.PendingRepository
	completed domorder.CompletedRepository
	logger    *zap.Logger
	timeout   time.Duration
	now       func() time.Time

	inflight singleflight.Group
}

func NewService(
	gateway SessionFetcher,
	provider Provider,
	pending domorder.PendingRepository,
	completed domorder.CompletedRepository,
	timeout time.Duration,
	logger *zap.Logger,
) *Service {
	if timeout <= 0 {
		timeout = DefaultPipelineTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gateway:   gateway,
		provider:  provider,
		pending:   pending,
		completed: completed,
		logger:    logger.With(zap.String("component", "fulfillment")),
		timeout:   timeout,
		now:       time.Now,
	}
}

// HandleEvent runs the pipeline for a verified gateway event. Only a missing
// pending order and a missing shipping address are returned as errors; every
// later failure is logged, recorded on the pending order and reported as
// OutcomeSilentlyFailed so the gateway does not redeliver.
//
// Work continues after the caller's context is cancelled: a paid order must
// not be abandoned half way because the gateway hung up.
func (s *Service) HandleEvent(ctx context.Context, ev *dompayment.Event) (Outcome, error) {
	if ev == nil || ev.Type != dompayment.EventCheckoutCompleted {
		return OutcomeIgnored, nil
	}
	if ev.SessionID == "" {
		return "", dompayment.ErrInvalidPayload
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	return s.collapse(ev.SessionID, func() (Outcome, error) {
		return s.handleCompleted(ctx, ev.SessionID)
	})
}

// Retry re-runs fulfillment for a pending order an operator picked from the
// needs_retry list. Unlike HandleEvent, a failure to reach the gateway is
// returned to the caller.
func (s *Service) Retry(ctx context.Context, sessionID string) (Outcome, error) {
	if sessionID == "" {
		return "", domorder.ErrEmptySessionID
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	return s.collapse(sessionID, func() (Outcome, error) {
		p, err := s.pending.Get(ctx, sessionID)
		if err != nil {
			return "", err
		}
		details, err := s.gateway.GetSession(ctx, sessionID)
		if err != nil {
			return "", fmt.Errorf("fetch session: %w", err)
		}
		if !details.Shipping.IsComplete() {
			return "", domorder.ErrMissingShippingAddress
		}
		s.logger.Info("retrying fulfillment", zap.String("session_id", sessionID), zap.Int("attempts", p.Attempts))
		return s.fulfil(ctx, p, details), nil
	})
}

// collapse makes concurrent deliveries for one session share a single run.
func (s *Service) collapse(sessionID string, fn func() (Outcome, error)) (Outcome, error) {
	v, err, shared := s.inflight.Do(sessionID, func() (interface{}, error) {
		return fn()
	})
	if shared {
		s.logger.Info("joined in-flight fulfillment", zap.String("session_id", sessionID))
	}
	out, _ := v.(Outcome)
	return out, err
}

func (s *Service) handleCompleted(ctx context.Context, sessionID string) (Outcome, error) {
	log := s.logger.With(zap.String("session_id", sessionID))

	p, err := s.pending.Get(ctx, sessionID)
	if errors.Is(err, domorder.ErrPendingOrderNotFound) {
		if _, cerr := s.completed.Get(ctx, sessionID); cerr == nil {
			log.Info("webhook redelivered for fulfilled session")
		} else {
			log.Warn("webhook for unknown session")
		}
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("load pending order: %w", err)
	}

	details, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		log.Error("fetch session details", zap.Error(err))
		s.markFailed(ctx, p, domorder.StepSession, err)
		return OutcomeSilentlyFailed, nil
	}
	if !details.Shipping.IsComplete() {
		log.Warn("session has no usable shipping address")
		return "", domorder.ErrMissingShippingAddress
	}

	return s.fulfil(ctx, p, details), nil
}

func (s *Service) fulfil(ctx context.Context, p *domorder.PendingOrder, details *dompayment.SessionDetails) Outcome {
	log := s.logger.With(zap.String("session_id", p.SessionID))

	file, err := s.provider.UploadFile(ctx, p.ImageDataURL, uploadName(p.SessionID))
	if err != nil {
		log.Error("upload design", zap.Error(err))
		s.markFailed(ctx, p, domorder.StepUpload, err)
		return OutcomeSilentlyFailed
	}

	recipient := *details.Shipping
	if recipient.Email == "" {
		recipient.Email = details.CustomerEmail
	}
	orderID, err := s.provider.CreateOrder(ctx, domfulfillment.OrderRequest{
		FileURL:      file.URL,
		Recipient:    recipient,
		ExternalID:   p.SessionID,
		ProductLabel: p.Design.ProductLabel(),
	})
	if err != nil {
		log.Error("create fulfillment order", zap.Error(err))
		s.markFailed(ctx, p, domorder.StepOrder, err)
		return OutcomeSilentlyFailed
	}

	mockupURL, err := s.provider.GenerateMockup(ctx, file.URL)
	if err != nil {
		log.Warn("mockup unavailable, continuing", zap.String("order_id", orderID), zap.Error(err))
		mockupURL = ""
	}

	err = s.completed.Put(ctx, &domorder.CompletedOrder{
		SessionID:          p.SessionID,
		MockupURL:          mockupURL,
		FulfillmentOrderID: orderID,
		CreatedAt:          s.now(),
	})
	if err != nil {
		log.Error("record completed order", zap.String("order_id", orderID), zap.Error(err))
		s.markFailed(ctx, p, domorder.StepRecord, err)
		return OutcomeSilentlyFailed
	}

	if err := s.pending.Delete(ctx, p.SessionID); err != nil {
		log.Error("delete pending order", zap.Error(err))
	}

	log.Info("order fulfilled", zap.String("order_id", orderID), zap.Bool("mockup", mockupURL != ""))
	if mockupURL == "" {
		return OutcomeCompletedWithoutMockup
	}
	return OutcomeCompletedWithMockup
}

func (s *Service) markFailed(ctx context.Context, p *domorder.PendingOrder, step domorder.Step, cause error) {
	p.MarkFailed(step, cause, s.now())
	if err := s.pending.Put(ctx, p); err != nil {
		s.logger.Error("persist failure state",
			zap.String("session_id", p.SessionID),
			zap.String("step", string(step)),
			zap.Error(err))
	}
}

// GenerateMockup is the standalone preview path: upload then mockup, with no
// order placed. An empty filename gets a random one.
func (s *Service) GenerateMockup(ctx context.Context, dataURL, filename string) (string, error) {
	if filename == "" {
		filename = "mockup-" + uuid.NewString() + ".jpg"
	}
	file, err := s.provider.UploadFile(ctx, dataURL, filename)
	if err != nil {
		return "", err
	}
	s.logger.Debug("mockup source uploaded", zap.String("file_id", file.ID))
	return s.provider.GenerateMockup(ctx, file.URL)
}

func uploadName(sessionID string) string {
	return "map-" + sessionID + ".jpg"
}
