package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/greg-maceachern12/binder-sub000/internal/apperr"
	"github.com/greg-maceachern12/binder-sub000/internal/clients/polar"
	"github.com/greg-maceachern12/binder-sub000/internal/logger"
	"github.com/greg-maceachern12/binder-sub000/internal/repos"
	"github.com/greg-maceachern12/binder-sub000/internal/types"
)

type EntitlementStatus string

const (
	EntitlementActive   EntitlementStatus = "active"
	EntitlementTrial    EntitlementStatus = "trial"
	EntitlementInactive EntitlementStatus = "inactive"
)

type Entitlement struct {
	Status      EntitlementStatus `json:"status"`
	CanGenerate bool              `json:"can_generate"`
}

type EntitlementService interface {
	// Resolve computes a user's access tier from stored subscription state
	// plus a live provider check. Provider failures degrade the result, they
	// never propagate as errors.
	Resolve(ctx context.Context, userID uuid.UUID) (Entitlement, *types.User, error)
}

type entitlementService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
	polar    polar.Client

	// group collapses concurrent live checks for the same subscription.
	group singleflight.Group
}

func NewEntitlementService(db *gorm.DB, baseLog *logger.Logger, userRepo repos.UserRepo, polarClient polar.Client) EntitlementService {
	return &entitlementService{
		db:       db,
		log:      baseLog.With("service", "EntitlementService"),
		userRepo: userRepo,
		polar:    polarClient,
	}
}

func (es *entitlementService) Resolve(ctx context.Context, userID uuid.UUID) (Entitlement, *types.User, error) {
	inactive := Entitlement{Status: EntitlementInactive, CanGenerate: false}

	users, err := es.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return inactive, nil, fmt.Errorf("load user: %w (%w)", err, apperr.ErrPersistence)
	}
	if len(users) == 0 || users[0] == nil {
		return inactive, nil, fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
	}
	user := users[0]

	if user.SubscriptionID != nil && *user.SubscriptionID != "" {
		if es.subscriptionIsActive(ctx, *user.SubscriptionID) {
			return Entitlement{Status: EntitlementActive, CanGenerate: true}, user, nil
		}
		// fall through to the trial check: a dead subscription does not
		// cancel a still-active trial
	}

	if user.TrialActive {
		return Entitlement{Status: EntitlementTrial, CanGenerate: true}, user, nil
	}
	return inactive, user, nil
}

func (es *entitlementService) subscriptionIsActive(ctx context.Context, subscriptionID string) bool {
	if es.polar == nil {
		es.log.Warn("No subscription provider configured, treating subscription as inactive", "subscription_id", subscriptionID)
		return false
	}

	v, err, _ := es.group.Do(subscriptionID, func() (any, error) {
		// The leader's answer is shared with every collapsed caller, so the
		// provider call must outlive the first caller's context.
		checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return es.polar.GetSubscription(checkCtx, subscriptionID)
	})
	if err != nil {
		// Only an explicit "active" answer counts. Everything else degrades.
		es.log.Warn("Live subscription check failed, treating as inactive", "subscription_id", subscriptionID, "error", err)
		return false
	}

	sub, ok := v.(*polar.Subscription)
	if !ok || sub == nil {
		return false
	}
	return sub.Status == "active"
}
