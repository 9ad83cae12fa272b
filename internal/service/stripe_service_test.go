package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"app/internal/config"
	"app/internal/model"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
)

type fakeStripeUserRepo struct{}

func (fakeStripeUserRepo) CreateUser(ctx context.Context, userID, name, email, avatarURL string) (*model.User, error) {
	return &model.User{UserID: userID}, nil
}
func (fakeStripeUserRepo) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	return nil, nil
}
func (fakeStripeUserRepo) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	return nil, nil
}
func (fakeStripeUserRepo) UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error {
	return nil
}

type fakeSubSvc struct {
	upserts int
}

func (f *fakeSubSvc) GetActiveSubscription(ctx context.Context, userID string) (*model.UserSubscription, error) {
	return nil, nil
}
func (f *fakeSubSvc) GetSubscription(ctx context.Context, userID string) (*model.UserSubscription, error) {
	return nil, nil
}
func (f *fakeSubSvc) GetPlan(ctx context.Context, planID string) (*model.SubscriptionPlan, error) {
	return nil, nil
}
func (f *fakeSubSvc) IsExempt(ctx context.Context, userID string) (bool, error) {
	return false, nil
}
func (f *fakeSubSvc) UpsertStripeSubscription(ctx context.Context, userID, planID string, startsAt, endsAt time.Time, status, stripeSubscriptionID string) error {
	f.upserts++
	return nil
}
func (f *fakeSubSvc) DowngradeUserToFreePlan(ctx context.Context, userID, freePlanID string) error {
	return nil
}

type fakeUsageSvc struct {
	resets int
}

func (f *fakeUsageSvc) CheckAndConsume(ctx context.Context, userID string, action model.GatedAction) UsageDecision {
	return UsageDecision{Allowed: true}
}
func (f *fakeUsageSvc) Remaining(ctx context.Context, userID string, action model.GatedAction) (int, bool) {
	return 0, false
}
func (f *fakeUsageSvc) ResetAll(ctx context.Context, userID string) error {
	f.resets++
	return nil
}

const testWebhookSecret = "whsec_test_secret"

// signedWebhookRequest signs the payload the way Stripe does: an
// HMAC-SHA256 over "t=<timestamp>.<payload>" carried in the
// Stripe-Signature header.
func signedWebhookRequest(payload string) *http.Request {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	sig := hex.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts, sig))
	return req
}

func newTestStripeService(subSvc *fakeSubSvc, usageSvc *fakeUsageSvc) *StripeService {
	cfg := &config.Config{StripeWebhookSecret: testWebhookSecret}
	return NewStripeService(cfg, fakeStripeUserRepo{}, subSvc, usageSvc, zerolog.Nop())
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	svc := newTestStripeService(&fakeSubSvc{}, &fakeUsageSvc{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rr := httptest.NewRecorder()
	svc.HandleWebhook(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestWebhookCheckoutSessionWithoutSubscription(t *testing.T) {
	subSvc := &fakeSubSvc{}
	usageSvc := &fakeUsageSvc{}
	svc := newTestStripeService(subSvc, usageSvc)

	// A checkout.session.completed delivered without an expanded
	// subscription object must be rejected, not panic.
	payload := fmt.Sprintf(`{
		"id": "evt_test_1",
		"object": "event",
		"api_version": %q,
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_1",
				"object": "checkout.session",
				"metadata": {"user_id": "u1"}
			}
		}
	}`, stripe.APIVersion)

	rr := httptest.NewRecorder()
	svc.HandleWebhook(rr, signedWebhookRequest(payload))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if subSvc.upserts != 0 {
		t.Fatalf("subscription upserted %d times, want 0", subSvc.upserts)
	}
	if usageSvc.resets != 0 {
		t.Fatalf("usage counters reset %d times, want 0", usageSvc.resets)
	}
}
