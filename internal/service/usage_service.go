package service

import (
	"context"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

const (
	chatDailyLimit  = 10
	pdfMonthlyLimit = 3
)

// PlanOracle answers whether a user's plan exempts them from usage caps.
type PlanOracle interface {
	IsExempt(ctx context.Context, userID string) (bool, error)
}

// UsageDecision is the outcome of a gate check. Unlimited marks exempt
// users, whose Remaining carries no meaning.
type UsageDecision struct {
	Allowed   bool
	Remaining int
	Unlimited bool
}

// UsageService gates premium-limited actions. Free users get a fixed
// quota per period (daily for chat, monthly for PDF export); exempt
// users pass through untouched.
//
// CheckAndConsume never returns an error: a broken persistence layer
// must not lock paying features for everyone, so storage failures
// degrade to allowing the action. The plan oracle is the opposite: if
// we cannot prove a user is exempt, they are not.
type UsageService interface {
	CheckAndConsume(ctx context.Context, userID string, action model.GatedAction) UsageDecision
	Remaining(ctx context.Context, userID string, action model.GatedAction) (remaining int, unlimited bool)
	ResetAll(ctx context.Context, userID string) error
}

type usageService struct {
	repo     repository.UsageRepository
	oracle   PlanOracle
	notifier UsageNotifier
	now      func() time.Time
	logger   zerolog.Logger
}

// NewUsageService creates a UsageService. The clock defaults to
// time.Now and exists as a parameter for tests.
func NewUsageService(
	repo repository.UsageRepository,
	oracle PlanOracle,
	notifier UsageNotifier,
	now func() time.Time,
	logger zerolog.Logger,
) UsageService {
	if now == nil {
		now = time.Now
	}
	return &usageService{
		repo:     repo,
		oracle:   oracle,
		notifier: notifier,
		now:      now,
		logger:   logger.With().Str("service", "UsageService").Logger(),
	}
}

func limitFor(action model.GatedAction) int {
	switch action {
	case model.GatedActionPDF:
		return pdfMonthlyLimit
	default:
		return chatDailyLimit
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sameMonth(a, b time.Time) bool {
	ay, am, _ := a.Date()
	by, bm, _ := b.Date()
	return ay == by && am == bm
}

// effectiveCounts applies lazy period resets without touching storage.
// The record keeps a single anchor: the chat counter is stale once the
// calendar day changes, the PDF counter once the month changes.
func effectiveCounts(rec *model.UsageRecord, now time.Time) (chat, pdf int) {
	if rec == nil {
		return 0, 0
	}
	chat = rec.ChatMessageCount
	pdf = rec.PDFGeneratedCount
	if !sameDay(rec.PeriodAnchor, now) {
		chat = 0
	}
	if !sameMonth(rec.PeriodAnchor, now) {
		pdf = 0
	}
	return chat, pdf
}

func (s *usageService) CheckAndConsume(ctx context.Context, userID string, action model.GatedAction) UsageDecision {
	exempt, err := s.oracle.IsExempt(ctx, userID)
	if err != nil {
		// Cannot verify the plan: treat as non-exempt and fall through
		// to the quota path.
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Plan lookup failed, applying free-tier quota")
		exempt = false
	}
	if exempt {
		return UsageDecision{Allowed: true, Remaining: limitFor(action), Unlimited: true}
	}

	now := s.now()
	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		// Storage is down: allow the action rather than hard-failing
		// the product for free users.
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Usage lookup failed, allowing action")
		rec = nil
	}

	chat, pdf := effectiveCounts(rec, now)
	limit := limitFor(action)

	var count int
	if action == model.GatedActionPDF {
		count = pdf
	} else {
		count = chat
	}

	if count >= limit {
		s.notifier.LimitReached(ctx, userID, action)
		return UsageDecision{Allowed: false, Remaining: 0}
	}

	if action == model.GatedActionPDF {
		pdf++
	} else {
		chat++
	}
	count++

	updated := &model.UsageRecord{
		UserID:            userID,
		ChatMessageCount:  chat,
		PDFGeneratedCount: pdf,
		PeriodAnchor:      now,
	}
	if err := s.repo.Save(ctx, updated); err != nil {
		// Best effort: the action proceeds even if the consumption
		// could not be recorded.
		s.logger.Error().Err(err).Str("user_id", userID).Str("action", string(action)).Msg("Failed to persist usage, allowing action")
	}

	return UsageDecision{Allowed: true, Remaining: limit - count}
}

// Remaining reports the quota left for an action without consuming
// any. Exempt users report unlimited=true; the count returned with it
// is the full cap and carries no meaning. Period resets are applied in
// memory only; the stored record is left untouched until the next
// consumption.
func (s *usageService) Remaining(ctx context.Context, userID string, action model.GatedAction) (int, bool) {
	limit := limitFor(action)

	exempt, err := s.oracle.IsExempt(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Plan lookup failed, applying free-tier quota")
		exempt = false
	}
	if exempt {
		return limit, true
	}

	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Usage lookup failed, reporting full quota")
		return limit, false
	}

	chat, pdf := effectiveCounts(rec, s.now())
	count := chat
	if action == model.GatedActionPDF {
		count = pdf
	}
	if count >= limit {
		return 0, false
	}
	return limit - count, false
}

// ResetAll zeroes both counters and restarts the periods from now.
// Called when a user upgrades so the new plan starts clean.
func (s *usageService) ResetAll(ctx context.Context, userID string) error {
	rec := &model.UsageRecord{
		UserID:            userID,
		ChatMessageCount:  0,
		PDFGeneratedCount: 0,
		PeriodAnchor:      s.now(),
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to reset usage counters")
		return err
	}
	s.logger.Info().Str("user_id", userID).Msg("Usage counters reset")
	return nil
}
