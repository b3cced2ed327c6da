package sync

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	tenantapp "github.com/engagesync/backend/internal/application/tenant"
	domain "github.com/engagesync/backend/internal/domain/sync"
	"github.com/engagesync/backend/internal/domain/tenant"
	"github.com/engagesync/backend/internal/infrastructure/gateway"
)

// DefaultLookback bounds a delta fetch when a platform has never checkpointed
const DefaultLookback = 30 * 24 * time.Hour

// OrchestratorConfig holds tunables for sync execution
type OrchestratorConfig struct {
	// DefaultBatchSize is used when the request does not carry one
	DefaultBatchSize int
	// DefaultLookback is the delta window when no checkpoint exists
	DefaultLookback time.Duration
}

// Orchestrator executes one synchronization run across the requested
// platforms and namespaces, composing the gateways, resolver, key generator
// and batch processor. It returns a structured result even under partial
// failure: errors are captured at the smallest scope (item, campaign,
// platform) and never abort sibling work. After validation the orchestrator
// itself only fails on configuration errors such as a missing default
// namespace that cannot be created.
type Orchestrator struct {
	platforms   domain.PlatformRegistry
	gateways    *gateway.Set
	resolver    *tenantapp.NamespaceResolver
	batch       *BatchProcessor
	checkpoints domain.CheckpointStore
	cfg         OrchestratorConfig
	logger      *zap.Logger
}

// NewOrchestrator wires the orchestrator. All collaborators are constructed
// once at process start and passed by reference; nothing is a global.
func NewOrchestrator(
	platforms domain.PlatformRegistry,
	gateways *gateway.Set,
	resolver *tenantapp.NamespaceResolver,
	batch *BatchProcessor,
	checkpoints domain.CheckpointStore,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.DefaultBatchSize <= 0 {
		cfg.DefaultBatchSize = DefaultBatchSize
	}
	if cfg.DefaultLookback <= 0 {
		cfg.DefaultLookback = DefaultLookback
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		platforms:   platforms,
		gateways:    gateways,
		resolver:    resolver,
		batch:       batch,
		checkpoints: checkpoints,
		cfg:         cfg,
		logger:      logger,
	}
}

// ExecuteFullSync runs one synchronization request end to end.
// Re-running an identical request over already-synced data does not create
// duplicate stored rows: persistence keys on the idempotency key with
// upsert-or-ignore semantics.
func (o *Orchestrator) ExecuteFullSync(ctx context.Context, req domain.SyncRequest) (*domain.SyncResult, error) {
	// Reject invalid mode/date combinations before any I/O
	if err := req.Validate(); err != nil {
		return nil, err
	}

	targets, err := o.resolveTargets(ctx, &req)
	if err != nil {
		return nil, err
	}

	result := domain.NewSyncResult()

	o.logger.Info("sync run starting",
		zap.Int("platforms", len(req.Platforms)),
		zap.Int("namespaces", len(targets)),
		zap.String("mode", req.Mode.String()),
	)

	for _, platform := range req.Platforms {
		o.syncPlatform(ctx, &req, platform, targets, result)
	}

	result.Finalize()
	o.logger.Info("sync run finished",
		zap.Bool("success", result.Success),
		zap.Int("processed", result.TotalProcessed()),
		zap.Int("errors", result.TotalErrors()),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result, nil
}

// resolveTargets turns the request's namespace selection into the set of
// active namespaces to sync into. Unknown or inactive names are dropped with
// a warning, not a hard failure.
func (o *Orchestrator) resolveTargets(ctx context.Context, req *domain.SyncRequest) (map[string]*tenant.Namespace, error) {
	active, err := o.resolver.ActiveNamespaces(ctx)
	if err != nil {
		return nil, err
	}

	targets := make(map[string]*tenant.Namespace, len(active))
	if req.WantsAllNamespaces() {
		for i := range active {
			targets[active[i].Name] = &active[i]
		}
		return targets, nil
	}

	byName := make(map[string]*tenant.Namespace, len(active))
	for i := range active {
		byName[active[i].Name] = &active[i]
	}
	for _, name := range req.Namespaces {
		ns, ok := byName[name]
		if !ok {
			o.logger.Warn("dropping unknown or inactive namespace from request",
				zap.String("namespace", name),
			)
			continue
		}
		targets[ns.Name] = ns
	}
	return targets, nil
}

// eventWindow is the mode-derived event time filter for one platform
type eventWindow struct {
	since *time.Time // exclusive lower bound
	until *time.Time // inclusive upper bound
}

// contains reports whether the event time passes the window filter
func (w *eventWindow) contains(ts time.Time) bool {
	if w.since != nil && !ts.After(*w.since) {
		return false
	}
	if w.until != nil && ts.After(*w.until) {
		return false
	}
	return true
}

// syncPlatform executes one platform's fetch-and-persist phase. Failures are
// recorded on the result; sibling platforms are unaffected.
func (o *Orchestrator) syncPlatform(
	ctx context.Context,
	req *domain.SyncRequest,
	platform domain.PlatformCode,
	targets map[string]*tenant.Namespace,
	result *domain.SyncResult,
) {
	pr := result.Platform(platform)
	log := o.logger.With(zap.String("platform", platform.String()))

	adapter, err := o.platforms.GetPlatform(platform)
	if err != nil {
		pr.Campaigns.AddError(platformError(platform, err))
		return
	}
	gw, err := o.gateways.Get(platform)
	if err != nil {
		pr.Campaigns.AddError(platformError(platform, err))
		return
	}

	window, err := o.resolveWindow(ctx, req, platform)
	if err != nil {
		pr.Campaigns.AddError(platformError(platform, err))
		return
	}

	fetchStart := time.Now()

	campaigns, err := gateway.Invoke(ctx, gw, func(ctx context.Context) ([]domain.Campaign, error) {
		return adapter.GetCampaigns(ctx)
	})
	if err != nil {
		pr.Campaigns.AddError(platformError(platform, err))
		log.Error("campaign listing failed, aborting platform", zap.Error(err))
		return
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = o.cfg.DefaultBatchSize
	}

	var oldestFailure *time.Time
	for i := range campaigns {
		campaign := &campaigns[i]
		if failTime := o.syncCampaign(ctx, adapter, gw, campaign, targets, window, batchSize, pr, log); failTime != nil {
			if oldestFailure == nil || failTime.Before(*oldestFailure) {
				oldestFailure = failTime
			}
		}
	}

	o.advanceCheckpoint(ctx, platform, fetchStart, oldestFailure, pr, log)
}

// syncCampaign fetches one campaign's leads and activities and persists them.
// A failure here aborts only this campaign. The returned time, when non-nil,
// is the oldest event time this campaign failed to cover.
func (o *Orchestrator) syncCampaign(
	ctx context.Context,
	adapter domain.SequencingPlatform,
	gw *gateway.Gateway,
	campaign *domain.Campaign,
	targets map[string]*tenant.Namespace,
	window eventWindow,
	batchSize int,
	pr *domain.PlatformResult,
	log *zap.Logger,
) *time.Time {
	ns, err := o.resolver.Resolve(ctx, campaign.Name)
	if err != nil {
		pr.Campaigns.AddError(campaignError(campaign, "", domain.ErrorKindConfiguration, err))
		return nil
	}
	if _, ok := targets[ns.Name]; !ok {
		log.Debug("campaign routed outside requested namespaces, skipping",
			zap.String("campaign", campaign.Name),
			zap.String("namespace", ns.Name),
		)
		return nil
	}

	pr.Campaigns.Processed++

	leads, err := gateway.Invoke(ctx, gw, func(ctx context.Context) ([]domain.Lead, error) {
		return adapter.GetLeads(ctx, campaign.ExternalID)
	})
	if err != nil {
		pr.Users.AddError(campaignError(campaign, ns.Name, errorKind(err), err))
	} else {
		processed, errs := o.batch.ProcessLeads(ctx, ns, leads, batchSize)
		pr.Users.Processed += processed
		pr.Users.Errors = append(pr.Users.Errors, errs...)
	}

	events, err := gateway.Invoke(ctx, gw, func(ctx context.Context) ([]domain.RawEvent, error) {
		return adapter.GetCampaignActivities(ctx, campaign.ExternalID)
	})
	if err != nil {
		pr.Events.AddError(campaignError(campaign, ns.Name, errorKind(err), err))
		// The whole activity fetch failed; the window's lower bound is the
		// oldest point we may have missed
		if window.since != nil {
			since := *window.since
			return &since
		}
		epoch := time.Time{}
		return &epoch
	}

	filtered := events[:0:0]
	for i := range events {
		if window.contains(events[i].OccurredAt) {
			filtered = append(filtered, events[i])
		}
	}

	outcome := o.batch.ProcessEvents(ctx, adapter, ns, filtered, batchSize)
	pr.Events.Processed += outcome.Processed
	pr.Events.Errors = append(pr.Events.Errors, outcome.Errors...)
	return outcome.OldestFailure
}

// resolveWindow derives the event time filter for the request mode, rewinding
// the checkpoint first for RESET_FROM_DATE
func (o *Orchestrator) resolveWindow(ctx context.Context, req *domain.SyncRequest, platform domain.PlatformCode) (eventWindow, error) {
	switch req.Mode {
	case domain.SyncModeFullHistorical:
		return eventWindow{}, nil

	case domain.SyncModeDateRange:
		start := req.DateRange.Start.Add(-time.Nanosecond) // inclusive start
		end := req.DateRange.End
		return eventWindow{since: &start, until: &end}, nil

	case domain.SyncModeResetFromDate:
		if err := o.checkpoints.SetCheckpoint(ctx, platform, *req.ResetDate); err != nil {
			return eventWindow{}, err
		}
		since := *req.ResetDate
		return eventWindow{since: &since}, nil

	case domain.SyncModeDeltaSinceLast:
		since, err := o.checkpoints.GetCheckpoint(ctx, platform)
		if err != nil {
			if errors.Is(err, domain.ErrCheckpointNotFound) {
				fallback := time.Now().Add(-o.cfg.DefaultLookback)
				return eventWindow{since: &fallback}, nil
			}
			return eventWindow{}, err
		}
		return eventWindow{since: &since}, nil
	}
	return eventWindow{}, domain.ErrRequestInvalidMode
}

// advanceCheckpoint moves the platform watermark after its fetch phase. It
// advances only past the oldest unresolved failure: items that failed to
// persist stay ahead of the checkpoint so the next delta run refetches them
// instead of silently skipping them forever.
func (o *Orchestrator) advanceCheckpoint(
	ctx context.Context,
	platform domain.PlatformCode,
	fetchStart time.Time,
	oldestFailure *time.Time,
	pr *domain.PlatformResult,
	log *zap.Logger,
) {
	advanceTo := fetchStart
	if oldestFailure != nil && oldestFailure.Before(advanceTo) {
		advanceTo = *oldestFailure
		log.Warn("holding checkpoint at oldest unresolved failure",
			zap.Time("checkpoint", advanceTo),
		)
	}

	if err := o.checkpoints.SetCheckpoint(ctx, platform, advanceTo); err != nil {
		pr.Events.AddError(domain.SyncError{
			Scope:      domain.ErrorScopePlatform,
			Kind:       domain.ErrorKindStorage,
			Platform:   platform,
			Message:    "checkpoint advance failed: " + err.Error(),
			OccurredAt: time.Now(),
		})
	}
}

// platformError wraps a platform-scope failure
func platformError(platform domain.PlatformCode, err error) domain.SyncError {
	return domain.SyncError{
		Scope:      domain.ErrorScopePlatform,
		Kind:       errorKind(err),
		Platform:   platform,
		Message:    err.Error(),
		OccurredAt: time.Now(),
	}
}

// campaignError wraps a campaign-scope failure
func campaignError(campaign *domain.Campaign, namespace string, kind domain.ErrorKind, err error) domain.SyncError {
	return domain.SyncError{
		Scope:      domain.ErrorScopeCampaign,
		Kind:       kind,
		Platform:   campaign.Platform,
		Namespace:  namespace,
		CampaignID: campaign.ExternalID,
		Message:    err.Error(),
		OccurredAt: time.Now(),
	}
}

// errorKind classifies an error for the result taxonomy
func errorKind(err error) domain.ErrorKind {
	switch {
	case errors.Is(err, domain.ErrPlatformRateLimited):
		return domain.ErrorKindRateLimited
	case errors.Is(err, tenant.ErrDefaultCreateFailed):
		return domain.ErrorKindConfiguration
	case errors.Is(err, domain.ErrStorageUpsertFailed):
		return domain.ErrorKindStorage
	default:
		return domain.ErrorKindUpstream
	}
}
