package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"registrar/internal/platform/metrics"
	"registrar/internal/registry/models"
	"registrar/pkg/domain"
	domainerrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/sentinel"
	"registrar/pkg/requestcontext"
)

// Recorder writes fetched payloads into the snapshot store, deduplicating
// byte-identical refetches by payload hash.
type Recorder struct {
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRecorder(store Store, m *metrics.Metrics, logger *slog.Logger) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("snapshot store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:   store,
		metrics: m,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// Record stores the payload for the (source, lookupKey) pair. When the payload
// hash matches the latest stored snapshot for the pair, the existing snapshot
// is returned and isNew is false. Concurrent records for the same pair are
// serialized so identical payloads racing each other collapse to one snapshot.
func (r *Recorder) Record(ctx context.Context, source models.Source, lookupKey string, payload models.RawPayload) (*models.Snapshot, bool, error) {
	if lookupKey == "" {
		return nil, false, domainerrors.New(domainerrors.CodeBadRequest, "lookup key is required")
	}
	if len(payload.Bytes) == 0 {
		return nil, false, domainerrors.New(domainerrors.CodeBadRequest, "payload is empty")
	}

	lock := r.keyLock(string(source) + ":" + lookupKey)
	lock.Lock()
	defer lock.Unlock()

	hash := PayloadHash(payload.Bytes)

	latest, err := r.store.Latest(ctx, source, lookupKey)
	switch {
	case err == nil:
		if latest.Hash == hash {
			r.metrics.RecordSnapshot(string(source), false)
			r.logger.DebugContext(ctx, "snapshot deduplicated",
				"source", source, "lookup_key", lookupKey, "snapshot_id", latest.ID.String())
			return latest, false, nil
		}
	case errors.Is(err, sentinel.ErrNotFound):
		// first fetch for this pair
	default:
		return nil, false, err
	}

	snap := &models.Snapshot{
		ID:        domain.NewSnapshotID(),
		LookupKey: lookupKey,
		Source:    source,
		FetchedAt: requestcontext.Now(ctx),
		Format:    payload.Format,
		Hash:      hash,
		Raw:       payload.Bytes,
		FetchedBy: requestcontext.Actor(ctx),
	}
	if err := r.store.Insert(ctx, snap); err != nil {
		return nil, false, err
	}

	r.metrics.RecordSnapshot(string(source), true)
	r.logger.InfoContext(ctx, "snapshot recorded",
		"source", source, "lookup_key", lookupKey, "snapshot_id", snap.ID.String(), "hash", hash)
	return snap, true, nil
}

func (r *Recorder) keyLock(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	return lock
}
