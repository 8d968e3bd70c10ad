package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/internal/domain/types"
	"github.com/tamrielmeta/buildscry/pkg/logger"
	"github.com/tamrielmeta/buildscry/pkg/metrics"
)

// Mutex-guarded, in-memory Store implementation persisted to one JSON
// file. Builds are keyed by (trial, boss, slug); upserts are
// fresh-over-stale, so a loaded snapshot can never clobber data a newer
// scan already produced.

type FileStore struct {
	mu       sync.RWMutex
	builds   map[types.BuildKey]model.ConsolidatedBuild
	trials   map[string]TrialMeta
	lastFull time.Time

	path             string
	autosaveInterval time.Duration
	log              logger.Logger

	// Background autosave management
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewFileStore constructs a file store with configuration options.
func NewFileStore(ctx context.Context, opts ...Option) *FileStore {
	s := &FileStore{
		builds:           make(map[types.BuildKey]model.ConsolidatedBuild),
		trials:           make(map[string]TrialMeta),
		path:             "data/builds.json", // default location
		autosaveInterval: time.Minute,        // default autosave interval
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		s.log = logger.Get().Named("repository")
	}

	s.stopChan = make(chan struct{})
	s.startAutosave(ctx)

	return s
}

// startAutosave starts a background goroutine that persists the store at
// the configured interval.
func (s *FileStore) startAutosave(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.autosaveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				if err := s.Save(ctx); err != nil {
					s.log.Warn(ctx, "autosave failed", logger.Error(err))
				}
			}
		}
	}()
}

// Close stops the autosave goroutine and writes a final snapshot.
func (s *FileStore) Close() error {
	select {
	case <-s.stopChan:
		// Channel already closed
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return s.Save(context.Background())
}

// Upsert implements Store.Upsert. A build strictly staler than what the
// store already holds under the same key is refused.
func (s *FileStore) Upsert(ctx context.Context, build model.ConsolidatedBuild) (bool, error) {
	key := build.Key()

	s.mu.Lock()
	if existing, ok := s.builds[key]; ok && build.LastUpdated.Before(existing.LastUpdated) {
		s.mu.Unlock()
		s.log.Debug(ctx, "refusing stale upsert",
			logger.String("build", key.String()),
		)
		return false, nil
	}
	s.builds[key] = build
	total := len(s.builds)
	s.mu.Unlock()

	metrics.RecordStoreUpsert()
	metrics.UpdateStoreBuilds(total)
	return true, nil
}

// Get returns the build stored under key, or ErrNotFound.
func (s *FileStore) Get(ctx context.Context, key types.BuildKey) (model.ConsolidatedBuild, error) {
	s.mu.RLock()
	build, ok := s.builds[key]
	s.mu.RUnlock()

	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.ConsolidatedBuild{}, ErrNotFound
	}
	return build, nil
}

// ListAll returns every stored build ordered by key.
func (s *FileStore) ListAll(ctx context.Context) []model.ConsolidatedBuild {
	s.mu.RLock()
	out := make([]model.ConsolidatedBuild, 0, len(s.builds))
	for _, b := range s.builds {
		out = append(out, b)
	}
	s.mu.RUnlock()

	sortBuilds(out)
	return out
}

// ListTrial returns the builds of one trial ordered by key.
func (s *FileStore) ListTrial(ctx context.Context, trial string) []model.ConsolidatedBuild {
	s.mu.RLock()
	out := make([]model.ConsolidatedBuild, 0)
	for _, b := range s.builds {
		if b.Trial == trial {
			out = append(out, b)
		}
	}
	s.mu.RUnlock()

	sortBuilds(out)
	return out
}

// Count returns the total number of stored builds.
func (s *FileStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.builds)
}

// Meta returns a copy of the trial bookkeeping.
func (s *FileStore) Meta(ctx context.Context) Meta {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trials := make(map[string]TrialMeta, len(s.trials))
	for trial, meta := range s.trials {
		trials[trial] = meta
	}
	return Meta{Trials: trials, LastFullUpdate: s.lastFull}
}

// SetTrialMeta records the bookkeeping of a finished trial scan.
func (s *FileStore) SetTrialMeta(ctx context.Context, trial string, meta TrialMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trials[trial] = meta
}

// MarkFullUpdate records the completion time of a full scan pass.
func (s *FileStore) MarkFullUpdate(ctx context.Context, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastFull.Before(at) {
		s.lastFull = at
	}
}

// Load reads the builds file and merges it under the live state: a
// persisted build is adopted only when the store holds nothing fresher
// for its key. A missing file is a clean first start.
func (s *FileStore) Load(ctx context.Context) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Debug(ctx, "no persisted builds, starting empty",
				logger.String("path", s.path),
			)
			return nil
		}
		return fmt.Errorf("reading builds file: %w", err)
	}

	var doc storeDocument
	if err := sonic.Unmarshal(data, &doc); err != nil {
		s.log.Warn(ctx, "persisted builds unreadable",
			logger.String("path", s.path),
			logger.Error(err),
		)
		return fmt.Errorf("decoding %s: %w", s.path, ErrCorruptSnapshot)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	adopted := 0
	for trial, tdoc := range doc.Trials {
		for _, bdoc := range tdoc.Builds {
			build := bdoc.toModel()
			key := build.Key()
			if existing, ok := s.builds[key]; ok && !existing.LastUpdated.Before(build.LastUpdated) {
				continue // live data is at least as fresh
			}
			s.builds[key] = build
			adopted++
		}

		if existing, ok := s.trials[trial]; !ok || existing.LastUpdated.Before(tdoc.LastUpdated) {
			s.trials[trial] = TrialMeta{
				LastUpdated:   tdoc.LastUpdated,
				UpdateVersion: tdoc.UpdateVersion,
				CacheStats:    tdoc.CacheStats,
			}
		}
	}
	if s.lastFull.Before(doc.LastFullUpdate) {
		s.lastFull = doc.LastFullUpdate
	}

	metrics.UpdateStoreBuilds(len(s.builds))
	s.log.Info(ctx, "loaded persisted builds",
		logger.Int("adopted", adopted),
		logger.Int("total", len(s.builds)),
		logger.String("path", s.path),
	)
	return nil
}

// Save writes the store to its builds file via a temp-file rename, so
// readers of the file never observe a partial write.
func (s *FileStore) Save(ctx context.Context) error {
	start := time.Now()

	s.mu.RLock()
	doc := s.documentLocked()
	total := len(s.builds)
	s.mu.RUnlock()

	data, err := sonic.MarshalIndent(doc, "", "  ")
	if err != nil {
		metrics.RecordStoreSaveFailure()
		return fmt.Errorf("encoding builds file: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			metrics.RecordStoreSaveFailure()
			return fmt.Errorf("creating builds dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		metrics.RecordStoreSaveFailure()
		return fmt.Errorf("writing builds file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		metrics.RecordStoreSaveFailure()
		return fmt.Errorf("replacing builds file: %w", err)
	}

	metrics.RecordStoreSave(float64(time.Since(start).Milliseconds()))
	s.log.Debug(ctx, "saved builds",
		logger.Int("builds", total),
		logger.String("path", s.path),
	)
	return nil
}

// documentLocked builds the on-disk document. Caller holds at least a
// read lock.
func (s *FileStore) documentLocked() storeDocument {
	doc := storeDocument{
		Trials:         make(map[string]trialDocument, len(s.trials)),
		LastFullUpdate: s.lastFull,
	}

	byTrial := make(map[string][]model.ConsolidatedBuild)
	for _, b := range s.builds {
		byTrial[b.Trial] = append(byTrial[b.Trial], b)
	}

	for trial, builds := range byTrial {
		sortBuilds(builds)
		docs := make([]buildDocument, 0, len(builds))
		for _, b := range builds {
			docs = append(docs, buildToDocument(b))
		}

		meta := s.trials[trial]
		doc.Trials[trial] = trialDocument{
			Builds:        docs,
			LastUpdated:   meta.LastUpdated,
			UpdateVersion: meta.UpdateVersion,
			CacheStats:    meta.CacheStats,
		}
	}

	// Trials with bookkeeping but no builds yet still persist it.
	for trial, meta := range s.trials {
		if _, ok := doc.Trials[trial]; !ok {
			doc.Trials[trial] = trialDocument{
				LastUpdated:   meta.LastUpdated,
				UpdateVersion: meta.UpdateVersion,
				CacheStats:    meta.CacheStats,
			}
		}
	}

	return doc
}

func sortBuilds(builds []model.ConsolidatedBuild) {
	sort.Slice(builds, func(i, j int) bool {
		return builds[i].Key().String() < builds[j].Key().String()
	})
}
