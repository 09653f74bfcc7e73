// Package service orchestrates the enrichment flow: fetch, snapshot,
// normalize, diff, and optionally apply. It owns per-entity serialization;
// everything below it is either pure or a store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"registrar/internal/audit"
	"registrar/internal/entity"
	"registrar/internal/platform/metrics"
	"registrar/internal/registry/apply"
	"registrar/internal/registry/clients"
	"registrar/internal/registry/collision"
	"registrar/internal/registry/models"
	"registrar/internal/registry/normalize"
	"registrar/internal/registry/profile"
	"registrar/internal/registry/proposal"
	"registrar/internal/registry/snapshot"
	"registrar/pkg/domain"
	domainerrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/sentinel"
)

const defaultEnrichConcurrency = 4

// EnrichRequest names one entity/source enrichment. LookupKey may be empty;
// the service then derives it from the entity's stored identifiers.
type EnrichRequest struct {
	EntityID  domain.EntityID
	Source    models.Source
	LookupKey string
	// ApplyAll commits every applyable proposal in the same run.
	ApplyAll bool
	// SurfaceMismatches also emits informational VALUE_MISMATCH proposals.
	SurfaceMismatches bool
}

// EnrichResult reports what one enrichment produced.
type EnrichResult struct {
	Snapshot      *models.Snapshot
	IsNewSnapshot bool
	Profile       *models.Profile
	Findings      []collision.Finding
	Proposals     []models.Proposal
	// Applied is set when ApplyAll was requested.
	Applied *apply.Result
}

// Service wires the engine's components into the enrichment flow.
type Service struct {
	entities     entity.Store
	affiliations entity.AffiliationStore
	recorder     *snapshot.Recorder
	snapshots    snapshot.Store
	profiles     profile.Store
	cache        *profile.FetchCache
	clients      map[models.Source]clients.Client
	detector     *collision.Detector
	engine       *proposal.Engine
	applier      *apply.Applier
	publisher    *audit.Publisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
	locks        *entityLocks
	concurrency  int
}

// Config carries the service dependencies.
type Config struct {
	Entities     entity.Store
	Affiliations entity.AffiliationStore
	Recorder     *snapshot.Recorder
	Snapshots    snapshot.Store
	Profiles     profile.Store
	Cache        *profile.FetchCache
	Clients      []clients.Client
	Detector     *collision.Detector
	Applier      *apply.Applier
	Publisher    *audit.Publisher
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	Concurrency  int
}

func New(cfg Config) (*Service, error) {
	switch {
	case cfg.Entities == nil:
		return nil, errors.New("entity store is required")
	case cfg.Affiliations == nil:
		return nil, errors.New("affiliation store is required")
	case cfg.Recorder == nil:
		return nil, errors.New("snapshot recorder is required")
	case cfg.Snapshots == nil:
		return nil, errors.New("snapshot store is required")
	case cfg.Profiles == nil:
		return nil, errors.New("profile store is required")
	case cfg.Detector == nil:
		return nil, errors.New("collision detector is required")
	case cfg.Applier == nil:
		return nil, errors.New("applier is required")
	case cfg.Publisher == nil:
		return nil, errors.New("audit publisher is required")
	case len(cfg.Clients) == 0:
		return nil, errors.New("at least one registry client is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultEnrichConcurrency
	}
	bysource := make(map[models.Source]clients.Client, len(cfg.Clients))
	for _, c := range cfg.Clients {
		bysource[c.Source()] = c
	}
	return &Service{
		entities:     cfg.Entities,
		affiliations: cfg.Affiliations,
		recorder:     cfg.Recorder,
		snapshots:    cfg.Snapshots,
		profiles:     cfg.Profiles,
		cache:        cfg.Cache,
		clients:      bysource,
		detector:     cfg.Detector,
		engine:       proposal.NewEngine(),
		applier:      cfg.Applier,
		publisher:    cfg.Publisher,
		metrics:      cfg.Metrics,
		logger:       logger,
		tracer:       otel.Tracer("registrar/enrich"),
		locks:        newEntityLocks(),
		concurrency:  concurrency,
	}, nil
}

// Enrich runs the full flow for one entity and source. Runs for the same
// entity are serialized.
func (s *Service) Enrich(ctx context.Context, req EnrichRequest) (*EnrichResult, error) {
	unlock := s.locks.lock(req.EntityID.String())
	defer unlock()

	ctx, span := s.tracer.Start(ctx, "enrich",
		trace.WithAttributes(
			attribute.String("entity.id", req.EntityID.String()),
			attribute.String("registry.source", string(req.Source)),
		))
	defer span.End()

	start := time.Now()
	result, err := s.enrichLocked(ctx, req)
	if err != nil {
		var se *StageError
		if errors.As(err, &se) {
			s.metrics.RecordEnrichFailure(string(se.Stage))
		} else {
			s.metrics.RecordEnrichFailure("precondition")
		}
		span.RecordError(err)
		return nil, err
	}
	s.metrics.ObserveEnrichDuration(string(req.Source), time.Since(start))
	return result, nil
}

func (s *Service) enrichLocked(ctx context.Context, req EnrichRequest) (*EnrichResult, error) {
	client, ok := s.clients[req.Source]
	if !ok {
		return nil, domainerrors.Newf(domainerrors.CodeBadRequest, "no client configured for source %s", req.Source)
	}

	ent, err := s.entities.Get(ctx, req.EntityID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, domainerrors.Newf(domainerrors.CodeNotFound, "entity %s not found", req.EntityID.String())
	}
	if err != nil {
		return nil, err
	}

	lookupKey := req.LookupKey
	if lookupKey == "" {
		lookupKey, err = deriveLookupKey(ent, req.Source)
		if err != nil {
			return nil, err
		}
	}

	payload, fromCache := s.cache.Get(ctx, req.Source, lookupKey)
	if !fromCache {
		payload, err = client.Fetch(ctx, lookupKey)
		if err != nil {
			var ce *clients.ClientError
			if errors.As(err, &ce) {
				err = domainerrors.Wrap(ce.Code(), "fetch from registry", err)
			}
			return nil, stageErr(StageFetch, err)
		}
		s.cache.Put(ctx, req.Source, lookupKey, payload)
	}

	snap, isNew, err := s.recorder.Record(ctx, req.Source, lookupKey, payload)
	if err != nil {
		return nil, stageErr(StageSnapshot, err)
	}
	if isNew {
		if err := s.publisher.Emit(ctx, audit.Event{
			Action:     audit.ActionSnapshotRecorded,
			EntityID:   req.EntityID.String(),
			SnapshotID: snap.ID.String(),
			Details: map[string]any{
				"source":     string(req.Source),
				"lookup_key": lookupKey,
				"hash":       snap.Hash,
			},
		}); err != nil {
			return nil, stageErr(StageAudit, err)
		}
	}

	prof, err := normalize.Normalize(payload, req.Source)
	if err != nil {
		return nil, stageErr(StageNormalize, err)
	}
	if prof.LookupKey == "" {
		prof.LookupKey = lookupKey
	}
	if err := s.profiles.Upsert(ctx, req.EntityID, prof); err != nil {
		return nil, stageErr(StageNormalize, err)
	}

	if !prof.RolesParsed {
		if err := s.applier.MarkRolesUnparsed(ctx, req.EntityID); err != nil {
			return nil, stageErr(StageDiff, err)
		}
		s.logger.WarnContext(ctx, "role section did not parse, active affiliations downgraded",
			"entity_id", req.EntityID.String(), "source", req.Source)
	}

	findings, err := s.detector.Check(ctx, req.EntityID, prof)
	if err != nil {
		return nil, stageErr(StageDiff, err)
	}

	active, err := s.affiliations.ListActiveByObject(ctx, req.EntityID)
	if err != nil {
		return nil, stageErr(StageDiff, err)
	}
	proposals, err := s.engine.Diff(
		proposal.EntityState{Entity: ent, ActiveAffiliations: active},
		prof, findings,
		proposal.Options{SurfaceMismatches: req.SurfaceMismatches},
	)
	if err != nil {
		return nil, stageErr(StageDiff, err)
	}
	s.metrics.RecordProposals(proposalKinds(proposals))

	result := &EnrichResult{
		Snapshot:      snap,
		IsNewSnapshot: isNew,
		Profile:       prof,
		Findings:      findings,
		Proposals:     proposals,
	}

	if req.ApplyAll {
		applyable := make([]models.Proposal, 0, len(proposals))
		for _, p := range proposals {
			if p.Kind.Applyable() {
				applyable = append(applyable, p)
			}
		}
		snapID := snap.ID
		applied, err := s.applier.Apply(ctx, req.EntityID, applyable, &snapID)
		if err != nil {
			return nil, stageErr(StageApply, err)
		}
		result.Applied = &applied
	}

	if err := s.publisher.Emit(ctx, audit.Event{
		Action:     audit.ActionEntityEnriched,
		EntityID:   req.EntityID.String(),
		SnapshotID: snap.ID.String(),
		Details: map[string]any{
			"source":       string(req.Source),
			"lookup_key":   lookupKey,
			"new_snapshot": isNew,
			"proposals":    len(proposals),
			"applied":      req.ApplyAll,
		},
	}); err != nil {
		return nil, stageErr(StageAudit, err)
	}

	s.logger.InfoContext(ctx, "entity enriched",
		"entity_id", req.EntityID.String(), "source", req.Source,
		"lookup_key", lookupKey, "proposals", len(proposals), "new_snapshot", isNew)
	return result, nil
}

// BatchOutcome pairs a request with its result or error.
type BatchOutcome struct {
	Request EnrichRequest
	Result  *EnrichResult
	Err     error
}

// EnrichBatch runs enrichments with bounded concurrency. Individual failures
// land in their outcome; the batch itself only fails on context cancellation.
func (s *Service) EnrichBatch(ctx context.Context, reqs []EnrichRequest) []BatchOutcome {
	outcomes := make([]BatchOutcome, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range reqs {
		g.Go(func() error {
			result, err := s.Enrich(ctx, reqs[i])
			outcomes[i] = BatchOutcome{Request: reqs[i], Result: result, Err: err}
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	return outcomes
}

// Apply executes a previously computed proposal batch for the entity under
// the entity lock.
func (s *Service) Apply(ctx context.Context, entityID domain.EntityID, proposals []models.Proposal, snapshotID *domain.SnapshotID) (apply.Result, error) {
	unlock := s.locks.lock(entityID.String())
	defer unlock()
	return s.applier.Apply(ctx, entityID, proposals, snapshotID)
}

// Snapshots lists the fetch history of the entity across every source it has
// a stored profile for, newest first per source.
func (s *Service) Snapshots(ctx context.Context, entityID domain.EntityID) ([]models.Snapshot, error) {
	profiles, err := s.profiles.ListByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	var out []models.Snapshot
	for _, p := range profiles {
		history, err := s.snapshots.ListByKey(ctx, p.Source, p.LookupKey)
		if err != nil {
			return nil, err
		}
		out = append(out, history...)
	}
	return out, nil
}

// SourceStatus reports which registries the service can reach.
type SourceStatus struct {
	Source     models.Source `json:"source"`
	Configured bool          `json:"configured"`
}

// Status lists the known sources and whether a client is wired for each.
func (s *Service) Status() []SourceStatus {
	out := make([]SourceStatus, 0, 2)
	for _, source := range []models.Source{models.SourceKRS, models.SourceCEIDG} {
		_, ok := s.clients[source]
		out = append(out, SourceStatus{Source: source, Configured: ok})
	}
	return out
}

// deriveLookupKey picks the lookup key from the entity's identifiers when the
// caller did not supply one.
func deriveLookupKey(ent *entity.Entity, source models.Source) (string, error) {
	byType := make(map[entity.IdentifierType]string, len(ent.Identifiers))
	for _, ident := range ent.Identifiers {
		if _, ok := byType[ident.Type]; !ok {
			byType[ident.Type] = ident.Value
		}
	}
	switch source {
	case models.SourceKRS:
		if v, ok := byType[entity.IdentifierKRS]; ok {
			return v, nil
		}
	case models.SourceCEIDG:
		if v, ok := byType[entity.IdentifierNIP]; ok {
			return "NIP:" + v, nil
		}
		if v, ok := byType[entity.IdentifierREGON]; ok {
			return "REGON:" + v, nil
		}
	}
	return "", domainerrors.Newf(domainerrors.CodeBadRequest,
		"entity has no identifier usable as a %s lookup key", source)
}

func proposalKinds(proposals []models.Proposal) []string {
	out := make([]string, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, string(p.Kind))
	}
	return out
}
