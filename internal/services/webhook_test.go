package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/greg-maceachern12/binder-sub000/internal/apperr"
	"github.com/greg-maceachern12/binder-sub000/internal/clients/polar"
	"github.com/greg-maceachern12/binder-sub000/internal/logger"
	"github.com/greg-maceachern12/binder-sub000/internal/types"
)

const (
	lemonSecret = "lemon-secret"
	polarSecret = "polar-secret"
)

func signHex(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func signBase64(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newWebhookFixture(users *fakeUserRepo, syllabi *fakeSyllabusRepo, pc *fakePolar) WebhookService {
	if users == nil {
		users = newFakeUserRepo()
	}
	if syllabi == nil {
		syllabi = newFakeSyllabusRepo()
	}
	// A nil *fakePolar must become a nil interface, not a typed nil.
	var polarClient polar.Client
	if pc != nil {
		polarClient = pc
	}
	return NewWebhookService(nil, logger.NewNop(), users, syllabi, polarClient, WebhookSecrets{
		LemonSqueezy: lemonSecret,
		Polar:        polarSecret,
	})
}

func lemonOrderBody(syllabusID string) []byte {
	return []byte(fmt.Sprintf(`{
		"meta": {"event_name": "order_created", "custom_data": {"syllabus_id": %q}},
		"data": {"id": "ord_1", "attributes": {"user_email": "buyer@example.com"}}
	}`, syllabusID))
}

func TestWebhookSignatureVerification(t *testing.T) {
	body := lemonOrderBody(uuid.New().String())

	tests := []struct {
		name      string
		provider  WebhookProvider
		signature string
		wantErr   error
	}{
		{name: "hex accepted", provider: ProviderLemonSqueezy, signature: signHex(lemonSecret, body)},
		{name: "base64 accepted", provider: ProviderLemonSqueezy, signature: signBase64(lemonSecret, body)},
		{name: "wrong secret rejected", provider: ProviderLemonSqueezy, signature: signHex("other-secret", body), wantErr: apperr.ErrUnauthorized},
		{name: "cross-provider secret rejected", provider: ProviderPolar, signature: signHex(lemonSecret, body), wantErr: apperr.ErrUnauthorized},
		{name: "garbage rejected", provider: ProviderLemonSqueezy, signature: "not-a-signature", wantErr: apperr.ErrUnauthorized},
		{name: "empty rejected", provider: ProviderLemonSqueezy, signature: "", wantErr: apperr.ErrUnauthorized},
		{name: "unknown provider rejected", provider: WebhookProvider("stripe"), signature: signHex(lemonSecret, body), wantErr: apperr.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syllabi := newFakeSyllabusRepo()
			svc := newWebhookFixture(nil, syllabi, nil)

			err := svc.Ingest(context.Background(), tt.provider, body, tt.signature)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				if len(syllabi.updates) != 0 {
					t.Error("rejected webhook still mutated state")
				}
				return
			}
			// A valid signature still fails later on the unknown syllabus;
			// the point here is that it got past verification.
			if errors.Is(err, apperr.ErrUnauthorized) {
				t.Fatalf("valid signature rejected: %v", err)
			}
		})
	}
}

func TestWebhookSecretNotConfigured(t *testing.T) {
	svc := NewWebhookService(nil, logger.NewNop(), newFakeUserRepo(), newFakeSyllabusRepo(), nil, WebhookSecrets{})
	body := lemonOrderBody(uuid.New().String())

	err := svc.Ingest(context.Background(), ProviderLemonSqueezy, body, signHex(lemonSecret, body))
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized when no secret configured", err)
	}
}

func TestWebhookPurchase(t *testing.T) {
	t.Run("marks syllabus purchased", func(t *testing.T) {
		s := &types.Syllabus{ID: uuid.New()}
		syllabi := newFakeSyllabusRepo(s)
		svc := newWebhookFixture(nil, syllabi, nil)

		body := lemonOrderBody(s.ID.String())
		if err := svc.Ingest(context.Background(), ProviderLemonSqueezy, body, signHex(lemonSecret, body)); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		if !s.Purchased {
			t.Error("syllabus not marked purchased")
		}
	})

	t.Run("duplicate delivery is idempotent", func(t *testing.T) {
		s := &types.Syllabus{ID: uuid.New()}
		syllabi := newFakeSyllabusRepo(s)
		svc := newWebhookFixture(nil, syllabi, nil)

		body := lemonOrderBody(s.ID.String())
		for i := 0; i < 3; i++ {
			if err := svc.Ingest(context.Background(), ProviderLemonSqueezy, body, signHex(lemonSecret, body)); err != nil {
				t.Fatalf("Ingest attempt %d: %v", i, err)
			}
		}
		if !s.Purchased {
			t.Error("syllabus not marked purchased")
		}
		for _, fields := range syllabi.updates[s.ID] {
			if v, ok := fields["purchased"].(bool); !ok || !v {
				t.Errorf("unexpected update fields: %v", fields)
			}
		}
	})

	t.Run("missing syllabus metadata", func(t *testing.T) {
		svc := newWebhookFixture(nil, nil, nil)
		body := []byte(`{
			"meta": {"event_name": "order_created", "custom_data": {}},
			"data": {"id": "ord_2", "attributes": {"user_email": "buyer@example.com"}}
		}`)
		err := svc.Ingest(context.Background(), ProviderLemonSqueezy, body, signHex(lemonSecret, body))
		if !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Fatalf("error = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("unknown syllabus", func(t *testing.T) {
		svc := newWebhookFixture(nil, nil, nil)
		body := lemonOrderBody(uuid.New().String())
		err := svc.Ingest(context.Background(), ProviderLemonSqueezy, body, signHex(lemonSecret, body))
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestWebhookSubscriptionLifecycle(t *testing.T) {
	email := "subscriber@example.com"

	lemonSub := func(event, status string) []byte {
		return []byte(fmt.Sprintf(`{
			"meta": {"event_name": %q},
			"data": {"id": "sub_9", "attributes": {"user_email": %q, "status": %q}}
		}`, event, email, status))
	}

	t.Run("created activates", func(t *testing.T) {
		u := &types.User{ID: uuid.New(), Email: email}
		svc := newWebhookFixture(newFakeUserRepo(u), nil, nil)

		body := lemonSub("subscription_created", "active")
		if err := svc.Ingest(context.Background(), ProviderLemonSqueezy, body, signHex(lemonSecret, body)); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		if u.SubscriptionID == nil || *u.SubscriptionID != "sub_9" {
			t.Errorf("subscription_id = %v, want sub_9", u.SubscriptionID)
		}
		if !u.TrialActive {
			t.Error("trial_active not set on activation")
		}
	})

	t.Run("expired deactivates", func(t *testing.T) {
		subID := "sub_9"
		u := &types.User{ID: uuid.New(), Email: email, SubscriptionID: &subID}
		svc := newWebhookFixture(newFakeUserRepo(u), nil, nil)

		body := lemonSub("subscription_expired", "expired")
		if err := svc.Ingest(context.Background(), ProviderLemonSqueezy, body, signHex(lemonSecret, body)); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		if u.SubscriptionID != nil {
			t.Errorf("subscription_id = %q, want cleared", *u.SubscriptionID)
		}
	})

	t.Run("updated follows status", func(t *testing.T) {
		tests := []struct {
			status     string
			wantActive bool
		}{
			{status: "active", wantActive: true},
			{status: "past_due", wantActive: false},
			{status: "cancelled", wantActive: false},
		}
		for _, tt := range tests {
			u := &types.User{ID: uuid.New(), Email: email}
			svc := newWebhookFixture(newFakeUserRepo(u), nil, nil)

			body := lemonSub("subscription_updated", tt.status)
			if err := svc.Ingest(context.Background(), ProviderLemonSqueezy, body, signHex(lemonSecret, body)); err != nil {
				t.Fatalf("Ingest(%s): %v", tt.status, err)
			}
			gotActive := u.SubscriptionID != nil
			if gotActive != tt.wantActive {
				t.Errorf("status %q: subscription attached = %v, want %v", tt.status, gotActive, tt.wantActive)
			}
		}
	})

	t.Run("unknown customer email", func(t *testing.T) {
		svc := newWebhookFixture(newFakeUserRepo(), nil, nil)
		body := lemonSub("subscription_created", "active")
		err := svc.Ingest(context.Background(), ProviderLemonSqueezy, body, signHex(lemonSecret, body))
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("missing email", func(t *testing.T) {
		svc := newWebhookFixture(nil, nil, nil)
		body := []byte(`{"meta": {"event_name": "subscription_created"}, "data": {"id": "sub_9", "attributes": {}}}`)
		err := svc.Ingest(context.Background(), ProviderLemonSqueezy, body, signHex(lemonSecret, body))
		if !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Fatalf("error = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("live verification failure does not block activation", func(t *testing.T) {
		u := &types.User{ID: uuid.New(), Email: email}
		pc := &fakePolar{err: errors.New("polar down")}
		svc := newWebhookFixture(newFakeUserRepo(u), nil, pc)

		body := lemonSub("subscription_created", "active")
		if err := svc.Ingest(context.Background(), ProviderLemonSqueezy, body, signHex(lemonSecret, body)); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		if u.SubscriptionID == nil {
			t.Error("activation dropped because live verification failed")
		}
	})
}

func TestWebhookPolarEvents(t *testing.T) {
	email := "polar@example.com"

	t.Run("checkout completed marks purchase", func(t *testing.T) {
		s := &types.Syllabus{ID: uuid.New()}
		syllabi := newFakeSyllabusRepo(s)
		svc := newWebhookFixture(nil, syllabi, nil)

		body := []byte(fmt.Sprintf(`{
			"type": "checkout.completed",
			"data": {"id": "co_1", "customer": {"id": "cus_1", "email": %q}, "metadata": {"syllabus_id": %q}}
		}`, email, s.ID.String()))
		if err := svc.Ingest(context.Background(), ProviderPolar, body, signBase64(polarSecret, body)); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		if !s.Purchased {
			t.Error("syllabus not marked purchased")
		}
	})

	t.Run("subscription active records polar customer id", func(t *testing.T) {
		u := &types.User{ID: uuid.New(), Email: email}
		svc := newWebhookFixture(newFakeUserRepo(u), nil, nil)

		body := []byte(fmt.Sprintf(`{
			"type": "subscription.active",
			"data": {"id": "psub_1", "status": "active", "customer": {"id": "cus_7", "email": %q}}
		}`, email))
		if err := svc.Ingest(context.Background(), ProviderPolar, body, signBase64(polarSecret, body)); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		if u.SubscriptionID == nil || *u.SubscriptionID != "psub_1" {
			t.Errorf("subscription_id = %v, want psub_1", u.SubscriptionID)
		}
		if u.PolarID == nil || *u.PolarID != "cus_7" {
			t.Errorf("polar_id = %v, want cus_7", u.PolarID)
		}
	})

	t.Run("revoked clears subscription", func(t *testing.T) {
		subID := "psub_1"
		u := &types.User{ID: uuid.New(), Email: email, SubscriptionID: &subID}
		svc := newWebhookFixture(newFakeUserRepo(u), nil, nil)

		body := []byte(fmt.Sprintf(`{
			"type": "subscription.revoked",
			"data": {"id": "psub_1", "status": "revoked", "customer": {"id": "cus_7", "email": %q}}
		}`, email))
		if err := svc.Ingest(context.Background(), ProviderPolar, body, signBase64(polarSecret, body)); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		if u.SubscriptionID != nil {
			t.Errorf("subscription_id = %q, want cleared", *u.SubscriptionID)
		}
	})
}

func TestWebhookIgnoredAndMalformed(t *testing.T) {
	t.Run("event outside allow-list is acknowledged without changes", func(t *testing.T) {
		users := newFakeUserRepo(&types.User{ID: uuid.New(), Email: "a@b.c"})
		syllabi := newFakeSyllabusRepo(&types.Syllabus{ID: uuid.New()})
		svc := newWebhookFixture(users, syllabi, nil)

		body := []byte(`{"meta": {"event_name": "license_key_created"}, "data": {"id": "lk_1", "attributes": {"user_email": "a@b.c"}}}`)
		if err := svc.Ingest(context.Background(), ProviderLemonSqueezy, body, signHex(lemonSecret, body)); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		if len(users.updates) != 0 {
			t.Error("ignored event mutated user state")
		}
		if len(syllabi.updates) != 0 {
			t.Error("ignored event mutated syllabus state")
		}
	})

	t.Run("unparseable body", func(t *testing.T) {
		svc := newWebhookFixture(nil, nil, nil)
		body := []byte(`{"meta": `)
		err := svc.Ingest(context.Background(), ProviderLemonSqueezy, body, signHex(lemonSecret, body))
		if !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Fatalf("error = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("missing event name", func(t *testing.T) {
		svc := newWebhookFixture(nil, nil, nil)
		body := []byte(`{"meta": {}, "data": {}}`)
		err := svc.Ingest(context.Background(), ProviderLemonSqueezy, body, signHex(lemonSecret, body))
		if !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Fatalf("error = %v, want ErrInvalidArgument", err)
		}
	})
}
