package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
)

type fakeUsageRepo struct {
	rec     *model.UsageRecord
	getErr  error
	saveErr error
	saves   int
}

func (f *fakeUsageRepo) Get(ctx context.Context, userID string) (*model.UsageRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.rec, nil
}

func (f *fakeUsageRepo) Save(ctx context.Context, rec *model.UsageRecord) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	copied := *rec
	f.rec = &copied
	return nil
}

type fakeOracle struct {
	exempt bool
	err    error
}

func (f *fakeOracle) IsExempt(ctx context.Context, userID string) (bool, error) {
	return f.exempt, f.err
}

type fakeNotifier struct {
	calls []model.GatedAction
}

func (f *fakeNotifier) LimitReached(ctx context.Context, userID string, action model.GatedAction) {
	f.calls = append(f.calls, action)
}

func newTestUsageService(repo *fakeUsageRepo, oracle *fakeOracle, notifier *fakeNotifier, now time.Time) (UsageService, *time.Time) {
	clock := now
	svc := NewUsageService(repo, oracle, notifier, func() time.Time { return clock }, zerolog.Nop())
	return svc, &clock
}

func TestCheckAndConsumeFreshUser(t *testing.T) {
	repo := &fakeUsageRepo{}
	svc, _ := newTestUsageService(repo, &fakeOracle{}, &fakeNotifier{}, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	d := svc.CheckAndConsume(context.Background(), "u1", model.GatedActionChat)
	if !d.Allowed {
		t.Fatal("fresh user should be allowed")
	}
	if d.Remaining != chatDailyLimit-1 {
		t.Fatalf("remaining = %d, want %d", d.Remaining, chatDailyLimit-1)
	}
	if repo.rec == nil || repo.rec.ChatMessageCount != 1 {
		t.Fatalf("expected persisted chat count 1, got %+v", repo.rec)
	}
}

func TestCheckAndConsumeExhaustsChatQuota(t *testing.T) {
	repo := &fakeUsageRepo{}
	notifier := &fakeNotifier{}
	svc, _ := newTestUsageService(repo, &fakeOracle{}, notifier, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	ctx := context.Background()
	for i := 0; i < chatDailyLimit; i++ {
		d := svc.CheckAndConsume(ctx, "u1", model.GatedActionChat)
		if !d.Allowed {
			t.Fatalf("call %d should be allowed", i+1)
		}
		if d.Remaining != chatDailyLimit-i-1 {
			t.Fatalf("call %d: remaining = %d, want %d", i+1, d.Remaining, chatDailyLimit-i-1)
		}
	}

	d := svc.CheckAndConsume(ctx, "u1", model.GatedActionChat)
	if d.Allowed {
		t.Fatal("call beyond the cap should be denied")
	}
	if d.Remaining != 0 {
		t.Fatalf("denied remaining = %d, want 0", d.Remaining)
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != model.GatedActionChat {
		t.Fatalf("expected one chat limit notification, got %v", notifier.calls)
	}
	if repo.rec.ChatMessageCount != chatDailyLimit {
		t.Fatalf("counter overran the cap: %d", repo.rec.ChatMessageCount)
	}
}

func TestCheckAndConsumePDFQuotaIndependent(t *testing.T) {
	repo := &fakeUsageRepo{}
	notifier := &fakeNotifier{}
	svc, _ := newTestUsageService(repo, &fakeOracle{}, notifier, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	ctx := context.Background()
	for i := 0; i < pdfMonthlyLimit; i++ {
		if d := svc.CheckAndConsume(ctx, "u1", model.GatedActionPDF); !d.Allowed {
			t.Fatalf("pdf call %d should be allowed", i+1)
		}
	}
	if d := svc.CheckAndConsume(ctx, "u1", model.GatedActionPDF); d.Allowed {
		t.Fatal("pdf call beyond the cap should be denied")
	}
	// Chat is an independent bucket.
	if d := svc.CheckAndConsume(ctx, "u1", model.GatedActionChat); !d.Allowed {
		t.Fatal("chat should still be allowed when pdf quota is spent")
	}
}

func TestChatQuotaResetsDaily(t *testing.T) {
	repo := &fakeUsageRepo{}
	svc, clock := newTestUsageService(repo, &fakeOracle{}, &fakeNotifier{}, time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC))

	ctx := context.Background()
	for i := 0; i < chatDailyLimit; i++ {
		svc.CheckAndConsume(ctx, "u1", model.GatedActionChat)
	}
	if d := svc.CheckAndConsume(ctx, "u1", model.GatedActionChat); d.Allowed {
		t.Fatal("should be denied before midnight")
	}

	*clock = time.Date(2025, 3, 11, 0, 5, 0, 0, time.UTC)
	d := svc.CheckAndConsume(ctx, "u1", model.GatedActionChat)
	if !d.Allowed {
		t.Fatal("quota should reset on a new calendar day")
	}
	if d.Remaining != chatDailyLimit-1 {
		t.Fatalf("remaining after reset = %d, want %d", d.Remaining, chatDailyLimit-1)
	}
}

func TestPDFQuotaSurvivesDayChangeAndResetsMonthly(t *testing.T) {
	repo := &fakeUsageRepo{}
	svc, clock := newTestUsageService(repo, &fakeOracle{}, &fakeNotifier{}, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	ctx := context.Background()
	for i := 0; i < pdfMonthlyLimit; i++ {
		svc.CheckAndConsume(ctx, "u1", model.GatedActionPDF)
	}

	// A new day within the same month does not restore the pdf quota.
	*clock = time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)
	if d := svc.CheckAndConsume(ctx, "u1", model.GatedActionPDF); d.Allowed {
		t.Fatal("pdf quota must not reset on day change")
	}
	if got, _ := svc.Remaining(ctx, "u1", model.GatedActionChat); got != chatDailyLimit {
		t.Fatalf("chat remaining after day change = %d, want %d", got, chatDailyLimit)
	}

	// A new month restores it.
	*clock = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	if d := svc.CheckAndConsume(ctx, "u1", model.GatedActionPDF); !d.Allowed {
		t.Fatal("pdf quota should reset on a new month")
	}
}

func TestExemptUserBypassesQuota(t *testing.T) {
	repo := &fakeUsageRepo{}
	notifier := &fakeNotifier{}
	svc, _ := newTestUsageService(repo, &fakeOracle{exempt: true}, notifier, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	ctx := context.Background()
	for i := 0; i < chatDailyLimit*3; i++ {
		d := svc.CheckAndConsume(ctx, "u1", model.GatedActionChat)
		if !d.Allowed {
			t.Fatal("exempt user should never be denied")
		}
	}
	if repo.saves != 0 {
		t.Fatalf("exempt user must not touch the usage record, saw %d saves", repo.saves)
	}
	if len(notifier.calls) != 0 {
		t.Fatal("exempt user should never trigger notifications")
	}
}

func TestExemptUserReportsUnlimited(t *testing.T) {
	repo := &fakeUsageRepo{}
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestUsageService(repo, &fakeOracle{exempt: true}, &fakeNotifier{}, now)

	ctx := context.Background()
	if _, unlimited := svc.Remaining(ctx, "u1", model.GatedActionChat); !unlimited {
		t.Fatal("exempt user should report unlimited chat quota")
	}
	if _, unlimited := svc.Remaining(ctx, "u1", model.GatedActionPDF); !unlimited {
		t.Fatal("exempt user should report unlimited pdf quota")
	}
	if d := svc.CheckAndConsume(ctx, "u1", model.GatedActionChat); !d.Unlimited {
		t.Fatal("exempt decision should carry the unlimited flag")
	}

	// A free user with an untouched quota must stay distinguishable
	// from the exempt one.
	free, _ := newTestUsageService(&fakeUsageRepo{}, &fakeOracle{}, &fakeNotifier{}, now)
	if got, unlimited := free.Remaining(ctx, "u2", model.GatedActionChat); unlimited || got != chatDailyLimit {
		t.Fatalf("fresh free user: remaining = %d unlimited = %v, want %d false", got, unlimited, chatDailyLimit)
	}
	if d := free.CheckAndConsume(ctx, "u2", model.GatedActionChat); d.Unlimited {
		t.Fatal("free user decision must not carry the unlimited flag")
	}
}

func TestOracleErrorAppliesQuota(t *testing.T) {
	repo := &fakeUsageRepo{rec: &model.UsageRecord{
		UserID:           "u1",
		ChatMessageCount: chatDailyLimit,
		PeriodAnchor:     time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
	}}
	svc, _ := newTestUsageService(repo, &fakeOracle{exempt: true, err: errors.New("plan lookup down")}, &fakeNotifier{}, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	if d := svc.CheckAndConsume(context.Background(), "u1", model.GatedActionChat); d.Allowed {
		t.Fatal("oracle failure must not grant an exemption")
	}
}

func TestUsageGetErrorAllowsAction(t *testing.T) {
	repo := &fakeUsageRepo{getErr: errors.New("db down")}
	svc, _ := newTestUsageService(repo, &fakeOracle{}, &fakeNotifier{}, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	d := svc.CheckAndConsume(context.Background(), "u1", model.GatedActionChat)
	if !d.Allowed {
		t.Fatal("storage read failure should not deny the action")
	}
}

func TestUsageSaveErrorAllowsAction(t *testing.T) {
	repo := &fakeUsageRepo{saveErr: errors.New("db down")}
	svc, _ := newTestUsageService(repo, &fakeOracle{}, &fakeNotifier{}, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	d := svc.CheckAndConsume(context.Background(), "u1", model.GatedActionChat)
	if !d.Allowed {
		t.Fatal("storage write failure should not deny the action")
	}
	if d.Remaining != chatDailyLimit-1 {
		t.Fatalf("remaining = %d, want %d", d.Remaining, chatDailyLimit-1)
	}
}

func TestRemainingDoesNotConsumeOrPersist(t *testing.T) {
	repo := &fakeUsageRepo{rec: &model.UsageRecord{
		UserID:           "u1",
		ChatMessageCount: 4,
		PeriodAnchor:     time.Date(2025, 3, 9, 9, 0, 0, 0, time.UTC),
	}}
	svc, _ := newTestUsageService(repo, &fakeOracle{}, &fakeNotifier{}, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	// The anchor is from yesterday so the chat quota is logically full
	// again, but only in memory.
	if got, _ := svc.Remaining(context.Background(), "u1", model.GatedActionChat); got != chatDailyLimit {
		t.Fatalf("remaining = %d, want %d", got, chatDailyLimit)
	}
	if repo.saves != 0 {
		t.Fatal("Remaining must not write to storage")
	}
	if repo.rec.ChatMessageCount != 4 {
		t.Fatal("Remaining must not mutate the stored record")
	}
}

func TestResetAllClearsBothCounters(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := &fakeUsageRepo{rec: &model.UsageRecord{
		UserID:            "u1",
		ChatMessageCount:  7,
		PDFGeneratedCount: 2,
		PeriodAnchor:      now.Add(-48 * time.Hour),
	}}
	svc, _ := newTestUsageService(repo, &fakeOracle{}, &fakeNotifier{}, now)

	if err := svc.ResetAll(context.Background(), "u1"); err != nil {
		t.Fatalf("ResetAll returned error: %v", err)
	}
	if repo.rec.ChatMessageCount != 0 || repo.rec.PDFGeneratedCount != 0 {
		t.Fatalf("counters not cleared: %+v", repo.rec)
	}
	if !repo.rec.PeriodAnchor.Equal(now) {
		t.Fatalf("anchor = %v, want %v", repo.rec.PeriodAnchor, now)
	}
}

func TestResetAllPropagatesError(t *testing.T) {
	repo := &fakeUsageRepo{saveErr: errors.New("db down")}
	svc, _ := newTestUsageService(repo, &fakeOracle{}, &fakeNotifier{}, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	if err := svc.ResetAll(context.Background(), "u1"); err == nil {
		t.Fatal("expected error from failing save")
	}
}
