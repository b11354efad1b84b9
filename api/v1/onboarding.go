package v1

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-scribe/onboarding-tracker/internal/audit"
	"carbon-scribe/onboarding-tracker/internal/audit/export"
	"carbon-scribe/onboarding-tracker/internal/notifications/websocket"
	"carbon-scribe/onboarding-tracker/internal/onboarding"
)

// OnboardingAPI holds the onboarding API dependencies
type OnboardingAPI struct {
	Tracker *onboarding.Tracker
	Handler *onboarding.Handler
	Feed    *websocket.Manager
	Audit   *audit.Handler

	detach   []func()
	recorder *audit.Recorder
}

// OnboardingDeps is what SetupOnboardingAPI needs from the caller
type OnboardingDeps struct {
	Store      onboarding.SnapshotStore
	SessionKey string
	Steps      []onboarding.StepDefinition
	// AuditRepository is optional; without it the audit routes are not registered.
	AuditRepository audit.Repository
	Logger          *zap.Logger
}

// SetupOnboardingAPI opens the tracker session and wires its feed and audit trail
func SetupOnboardingAPI(ctx context.Context, deps OnboardingDeps) (*OnboardingAPI, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tracker, err := onboarding.Open(ctx, deps.Store, deps.SessionKey, deps.Steps, logger.Named("tracker"))
	if err != nil {
		return nil, fmt.Errorf("failed to open onboarding session: %w", err)
	}

	feed := websocket.NewManager(logger.Named("feed"), onboarding.SnapshotMessage(tracker))

	api := &OnboardingAPI{
		Tracker: tracker,
		Handler: onboarding.NewHandler(tracker, feed, logger),
		Feed:    feed,
	}
	api.detach = append(api.detach, onboarding.PublishChanges(tracker, feed, logger))

	if deps.AuditRepository != nil {
		recorder := audit.NewRecorder(deps.AuditRepository, deps.SessionKey, logger.Named("audit"))
		api.detach = append(api.detach, recorder.Attach(tracker))
		api.recorder = recorder
		api.Audit = audit.NewHandler(deps.AuditRepository, deps.SessionKey, export.Formats(), logger)
	}

	return api, nil
}

// RegisterOnboardingRoutes registers the onboarding routes on the router group
func RegisterOnboardingRoutes(router *gin.RouterGroup, api *OnboardingAPI) {
	api.Handler.RegisterRoutes(router)
	if api.Audit != nil {
		api.Audit.RegisterRoutes(router)
	}
}

// Close detaches subscribers, flushes the audit queue and disconnects feed clients
func (a *OnboardingAPI) Close() {
	for _, fn := range a.detach {
		fn()
	}
	if a.recorder != nil {
		a.recorder.Close()
	}
	a.Feed.Close()
}
