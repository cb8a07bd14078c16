package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/greg-maceachern12/binder-sub000/internal/apperr"
	"github.com/greg-maceachern12/binder-sub000/internal/clients/polar"
	"github.com/greg-maceachern12/binder-sub000/internal/logger"
	"github.com/greg-maceachern12/binder-sub000/internal/repos"
)

type WebhookProvider string

const (
	ProviderLemonSqueezy WebhookProvider = "lemonsqueezy"
	ProviderPolar        WebhookProvider = "polar"
)

type WebhookService interface {
	// Ingest verifies the provider signature over the raw body and applies
	// the event. All state changes are idempotent assignments, so duplicate
	// delivery is safe.
	Ingest(ctx context.Context, provider WebhookProvider, rawBody []byte, signature string) error
}

type WebhookSecrets struct {
	LemonSqueezy string
	Polar        string
}

type webhookService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	syllabusRepo repos.SyllabusRepo
	polar        polar.Client
	secrets      WebhookSecrets
}

func NewWebhookService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	syllabusRepo repos.SyllabusRepo,
	polarClient polar.Client,
	secrets WebhookSecrets,
) WebhookService {
	return &webhookService{
		db:           db,
		log:          baseLog.With("service", "WebhookService"),
		userRepo:     userRepo,
		syllabusRepo: syllabusRepo,
		polar:        polarClient,
		secrets:      secrets,
	}
}

// Event names that mark a subscription as usable. "Updated" events carry a
// status field that decides the direction.
var activatingEvents = map[string]bool{
	"subscription_created":    true,
	"subscription.created":    true,
	"subscription.active":     true,
	"subscription.uncanceled": true,
}

var deactivatingEvents = map[string]bool{
	"subscription_expired":  true,
	"subscription.canceled": true,
	"subscription.revoked":  true,
}

var updateEvents = map[string]bool{
	"subscription_updated": true,
	"subscription.updated": true,
}

var purchaseEvents = map[string]bool{
	"order_created":      true,
	"checkout.completed": true,
	"order.created":      true,
}

// webhookEvent is the provider-neutral view of an event envelope.
type webhookEvent struct {
	Name            string
	Status          string
	SyllabusID      string
	CustomerEmail   string
	SubscriptionID  string
	PolarCustomerID string
}

func (ws *webhookService) Ingest(ctx context.Context, provider WebhookProvider, rawBody []byte, signature string) error {
	if err := ws.verifySignature(provider, rawBody, signature); err != nil {
		return err
	}

	evt, err := parseEvent(provider, rawBody)
	if err != nil {
		return fmt.Errorf("parse webhook body: %w (%w)", err, apperr.ErrInvalidArgument)
	}

	switch {
	case purchaseEvents[evt.Name]:
		return ws.applyPurchase(ctx, evt)
	case activatingEvents[evt.Name], deactivatingEvents[evt.Name], updateEvents[evt.Name]:
		return ws.applySubscription(ctx, evt)
	default:
		// Outside the allow-list: acknowledged, no state change.
		ws.log.Debug("Ignoring webhook event outside allow-list", "provider", provider, "event", evt.Name)
		return nil
	}
}

func (ws *webhookService) verifySignature(provider WebhookProvider, rawBody []byte, signature string) error {
	var secret string
	switch provider {
	case ProviderLemonSqueezy:
		secret = ws.secrets.LemonSqueezy
	case ProviderPolar:
		secret = ws.secrets.Polar
	default:
		return fmt.Errorf("unknown webhook provider %q: %w", provider, apperr.ErrInvalidArgument)
	}
	if secret == "" {
		return fmt.Errorf("no webhook secret configured for %s: %w", provider, apperr.ErrUnauthorized)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	digest := mac.Sum(nil)

	// Lemon Squeezy sends hex, Polar base64. Either encoding of the right
	// digest is accepted; comparison is constant time.
	signature = strings.TrimSpace(signature)
	if sig, err := hex.DecodeString(signature); err == nil && hmac.Equal(sig, digest) {
		return nil
	}
	if sig, err := base64.StdEncoding.DecodeString(signature); err == nil && hmac.Equal(sig, digest) {
		return nil
	}
	ws.log.Warn("Webhook signature mismatch", "provider", provider)
	return fmt.Errorf("webhook signature mismatch: %w", apperr.ErrUnauthorized)
}

func parseEvent(provider WebhookProvider, rawBody []byte) (*webhookEvent, error) {
	switch provider {
	case ProviderLemonSqueezy:
		var body struct {
			Meta struct {
				EventName  string `json:"event_name"`
				CustomData struct {
					SyllabusID string `json:"syllabus_id"`
				} `json:"custom_data"`
			} `json:"meta"`
			Data struct {
				ID         string `json:"id"`
				Attributes struct {
					UserEmail string `json:"user_email"`
					Status    string `json:"status"`
				} `json:"attributes"`
			} `json:"data"`
		}
		if err := json.Unmarshal(rawBody, &body); err != nil {
			return nil, err
		}
		if body.Meta.EventName == "" {
			return nil, fmt.Errorf("missing event_name")
		}
		return &webhookEvent{
			Name:           body.Meta.EventName,
			Status:         body.Data.Attributes.Status,
			SyllabusID:     body.Meta.CustomData.SyllabusID,
			CustomerEmail:  body.Data.Attributes.UserEmail,
			SubscriptionID: body.Data.ID,
		}, nil
	case ProviderPolar:
		var body struct {
			Type string `json:"type"`
			Data struct {
				ID       string `json:"id"`
				Status   string `json:"status"`
				Customer struct {
					ID    string `json:"id"`
					Email string `json:"email"`
				} `json:"customer"`
				Metadata struct {
					SyllabusID string `json:"syllabus_id"`
				} `json:"metadata"`
			} `json:"data"`
		}
		if err := json.Unmarshal(rawBody, &body); err != nil {
			return nil, err
		}
		if body.Type == "" {
			return nil, fmt.Errorf("missing type")
		}
		return &webhookEvent{
			Name:            body.Type,
			Status:          body.Data.Status,
			SyllabusID:      body.Data.Metadata.SyllabusID,
			CustomerEmail:   body.Data.Customer.Email,
			SubscriptionID:  body.Data.ID,
			PolarCustomerID: body.Data.Customer.ID,
		}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

func (ws *webhookService) applyPurchase(ctx context.Context, evt *webhookEvent) error {
	if evt.SyllabusID == "" {
		return fmt.Errorf("purchase event %s without syllabus_id metadata: %w", evt.Name, apperr.ErrInvalidArgument)
	}
	syllabusID, err := uuid.Parse(evt.SyllabusID)
	if err != nil {
		return fmt.Errorf("bad syllabus_id %q: %w", evt.SyllabusID, apperr.ErrInvalidArgument)
	}

	existing, err := ws.syllabusRepo.GetByIDs(ctx, nil, []uuid.UUID{syllabusID})
	if err != nil {
		return fmt.Errorf("load syllabus: %w (%w)", err, apperr.ErrPersistence)
	}
	if len(existing) == 0 {
		return fmt.Errorf("syllabus %s: %w", syllabusID, apperr.ErrNotFound)
	}

	// Setting the flag twice is a no-op.
	if err := ws.syllabusRepo.UpdateFields(ctx, nil, syllabusID, map[string]any{"purchased": true}); err != nil {
		return fmt.Errorf("mark syllabus purchased: %w (%w)", err, apperr.ErrPersistence)
	}
	ws.log.Info("Syllabus marked purchased", "syllabus_id", syllabusID, "event", evt.Name)
	return nil
}

func (ws *webhookService) applySubscription(ctx context.Context, evt *webhookEvent) error {
	if evt.CustomerEmail == "" {
		return fmt.Errorf("subscription event %s without customer email: %w", evt.Name, apperr.ErrInvalidArgument)
	}

	users, err := ws.userRepo.GetByEmails(ctx, nil, []string{evt.CustomerEmail})
	if err != nil {
		return fmt.Errorf("load user by email: %w (%w)", err, apperr.ErrPersistence)
	}
	if len(users) == 0 || users[0] == nil {
		return fmt.Errorf("no user for email %s: %w", evt.CustomerEmail, apperr.ErrNotFound)
	}
	user := users[0]

	active := activatingEvents[evt.Name]
	if updateEvents[evt.Name] {
		active = evt.Status == "active"
	}

	fields := map[string]any{}
	if active {
		if evt.SubscriptionID != "" {
			ws.verifyNewSubscription(ctx, evt)
			fields["subscription_id"] = evt.SubscriptionID
		}
		// Forced on so access is uninterrupted the moment a paid
		// subscription begins.
		fields["trial_active"] = true
	} else {
		fields["subscription_id"] = nil
	}
	if evt.PolarCustomerID != "" {
		fields["polar_id"] = evt.PolarCustomerID
	}

	if err := ws.userRepo.UpdateFields(ctx, nil, user.ID, fields); err != nil {
		return fmt.Errorf("update user subscription state: %w (%w)", err, apperr.ErrPersistence)
	}
	ws.log.Info("Subscription state updated", "user_id", user.ID, "event", evt.Name, "active", active)
	return nil
}

// verifyNewSubscription attempts a live check of the incoming subscription id.
// Providers do not reliably retry failed webhooks, so a failed or disagreeing
// check is logged and the event's own activation semantics win.
func (ws *webhookService) verifyNewSubscription(ctx context.Context, evt *webhookEvent) {
	if ws.polar == nil {
		return
	}
	sub, err := ws.polar.GetSubscription(ctx, evt.SubscriptionID)
	if err != nil {
		ws.log.Warn("Live verification of new subscription failed, trusting event", "subscription_id", evt.SubscriptionID, "error", err)
		return
	}
	if sub.Status != "active" {
		ws.log.Warn("Live status disagrees with activation event, trusting event", "subscription_id", evt.SubscriptionID, "live_status", sub.Status)
	}
}
