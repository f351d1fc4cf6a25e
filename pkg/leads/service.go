package leads

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/evoclabs/crm/pkg/cache"
	"github.com/evoclabs/crm/pkg/logger"
	"github.com/evoclabs/crm/pkg/metrics"
	"github.com/evoclabs/crm/pkg/models"
	"github.com/evoclabs/crm/pkg/store"
)

// ErrNoLeads is returned when every candidate collection is empty or
// inaccessible. An empty store is surfaced as an error, not as a
// successful empty list, so the UI can show its banner.
var ErrNoLeads = errors.New("no leads found in any candidate collection")

// orderField is the recency field the ordered read sorts by. The
// companion call-sheet records submission time under its own name.
const (
	orderField          = "createdAt"
	companionOrderField = "submittedAt"
)

// companionCollection is the one collection the companion call-sheet
// reads; it never falls back to the other candidates.
const companionCollection = "contacts"

const (
	cacheKey = "leads:raw"
	cacheTTL = 30 * time.Minute
)

// Store is the slice of the document store the lead service needs.
type Store interface {
	ReadOrdered(ctx context.Context, collection, orderField string) ([]store.Document, error)
	Read(ctx context.Context, collection string) ([]store.Document, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
}

// Service aggregates leads from the remote store into an in-memory
// session list and coordinates optimistic mutations against it. The
// session list is the source of truth for rendering; remote writes are
// fire-and-forget.
type Service struct {
	store      Store
	cache      *cache.Client
	log        logger.Logger
	metrics    *metrics.Metrics
	candidates store.Candidates

	mu       sync.RWMutex
	leads    []models.Lead
	fetched  bool
	fetchErr error

	// persist tracks in-flight remote writes so shutdown and tests
	// can wait for them.
	persist sync.WaitGroup
}

// NewService creates a new lead service. cacheClient may be nil.
func NewService(st Store, cacheClient *cache.Client, log logger.Logger, candidates store.Candidates) *Service {
	if log == nil {
		log = logger.Default()
	}
	if len(candidates) == 0 {
		candidates = store.DefaultCandidates
	}
	return &Service{
		store:      st,
		cache:      cacheClient,
		log:        log,
		candidates: candidates,
	}
}

// WithMetrics attaches business metrics to the service.
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// Fetch loads the lead list from the first candidate collection that
// yields any records. For each candidate it attempts an ordered read
// first and falls back to an unordered read. Either way the result is
// re-sorted client-side by normalized timestamp, newest first: a store
// sort on a field the documents do not carry reports success while
// returning natural order. Errors from individual candidates are
// swallowed; only total exhaustion is reported.
func (s *Service) Fetch(ctx context.Context) error {
	for _, name := range s.candidates {
		docs, err := s.readCollection(ctx, name, orderField)
		if err != nil {
			s.log.Debug("candidate collection unreadable", "collection", name, "error", err)
			continue
		}
		if len(docs) == 0 {
			continue
		}

		fetched := make([]models.Lead, 0, len(docs))
		for _, doc := range docs {
			fetched = append(fetched, models.FromFields(doc.ID, name, doc.Fields))
		}
		sort.SliceStable(fetched, func(i, j int) bool {
			return fetched[i].SubmittedAt > fetched[j].SubmittedAt
		})

		s.mu.Lock()
		s.leads = fetched
		s.fetched = true
		s.fetchErr = nil
		s.mu.Unlock()

		s.log.Info("leads fetched", "collection", name, "count", len(fetched))
		if s.metrics != nil {
			s.metrics.RecordLeadsFetched(name, len(fetched))
		}
		s.cacheLeads(ctx, fetched)
		return nil
	}

	// Nothing anywhere. Keep serving a cached copy if one survives a
	// restart, but still report the failure.
	s.mu.Lock()
	s.fetched = true
	s.fetchErr = ErrNoLeads
	restore := len(s.leads) == 0
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordFetchFailure()
	}
	if restore {
		s.restoreFromCache(ctx)
	}
	return ErrNoLeads
}

// CompanionLeads reads the companion call-sheet directly from its
// collection, bypassing the session list and the candidate probe.
// An empty collection is ErrNoLeads, matching the aggregator.
func (s *Service) CompanionLeads(ctx context.Context) ([]models.Lead, error) {
	docs, err := s.readCollection(ctx, companionCollection, companionOrderField)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoLeads
	}

	out := make([]models.Lead, 0, len(docs))
	for _, doc := range docs {
		out = append(out, models.FromFields(doc.ID, companionCollection, doc.Fields))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt > out[j].SubmittedAt
	})
	return out, nil
}

// EnsureLoaded fetches the lead list on first use. Subsequent calls
// report the outcome of the most recent fetch without touching the
// store; POST /refresh and the cron job drive re-fetches.
func (s *Service) EnsureLoaded(ctx context.Context) error {
	s.mu.RLock()
	done := s.fetched
	err := s.fetchErr
	s.mu.RUnlock()
	if done {
		return err
	}
	return s.Fetch(ctx)
}

// readCollection reads one candidate, preferring the ordered read and
// falling back to an unordered one. Callers impose the final order.
func (s *Service) readCollection(ctx context.Context, name, field string) ([]store.Document, error) {
	start := time.Now()
	docs, err := s.store.ReadOrdered(ctx, name, field)
	if err == nil {
		if s.metrics != nil {
			s.metrics.RecordStoreRead(name, true, time.Since(start))
		}
		return docs, nil
	}

	start = time.Now()
	docs, err = s.store.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordStoreRead(name, false, time.Since(start))
	}
	return docs, nil
}

// Leads returns a copy of the session list.
func (s *Service) Leads() []models.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Lead, len(s.leads))
	copy(out, s.leads)
	return out
}

// Get returns one lead from the session list by id.
func (s *Service) Get(id string) (models.Lead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.leads {
		if l.ID == id {
			return l, true
		}
	}
	return models.Lead{}, false
}

// LastFetchError reports the outcome of the most recent fetch.
func (s *Service) LastFetchError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.fetched {
		return nil
	}
	return s.fetchErr
}

// SetStatus optimistically replaces the lead's status in the session
// list and persists the change to the remote store in the background.
// Setting the current status again is a no-op. Returns false when the
// id is not in the session list.
func (s *Service) SetStatus(id string, status models.LeadStatus) bool {
	s.mu.Lock()
	idx := -1
	for i := range s.leads {
		if s.leads[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	if s.leads[idx].Status == status {
		s.mu.Unlock()
		return true
	}
	s.leads[idx].Status = status
	provenance := s.leads[idx].Collection
	s.mu.Unlock()

	s.invalidateCache()

	s.persist.Add(1)
	go func() {
		defer s.persist.Done()
		s.persistStatus(id, provenance, status)
	}()
	return true
}

// Delete optimistically removes the lead from the session list and
// deletes it from the remote store in the background. Deleting an id
// that is already gone is a no-op.
func (s *Service) Delete(id string) bool {
	s.mu.Lock()
	idx := -1
	for i := range s.leads {
		if s.leads[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	provenance := s.leads[idx].Collection
	s.leads = append(s.leads[:idx], s.leads[idx+1:]...)
	s.mu.Unlock()

	s.invalidateCache()

	s.persist.Add(1)
	go func() {
		defer s.persist.Done()
		s.persistDelete(id, provenance)
	}()
	return true
}

// Wait blocks until all in-flight remote writes have settled.
func (s *Service) Wait() {
	s.persist.Wait()
}

// persistStatus probes the write order until one collection accepts
// the update. Exhaustion is logged and the optimistic local change is
// left in place; the next full reload reconciles.
func (s *Service) persistStatus(id, provenance string, status models.LeadStatus) {
	ctx := context.Background()
	for _, name := range s.candidates.WriteOrder(provenance) {
		if err := s.store.Update(ctx, name, id, map[string]any{"status": string(status)}); err == nil {
			s.log.Debug("status persisted", "lead_id", id, "collection", name, "status", status)
			if s.metrics != nil {
				s.metrics.RecordMutation("status", true)
			}
			return
		}
	}
	s.log.Warn("could not persist status update in any known collection", "lead_id", id, "status", status)
	if s.metrics != nil {
		s.metrics.RecordMutation("status", false)
	}
}

func (s *Service) persistDelete(id, provenance string) {
	ctx := context.Background()
	for _, name := range s.candidates.WriteOrder(provenance) {
		if err := s.store.Delete(ctx, name, id); err == nil {
			s.log.Debug("lead deleted remotely", "lead_id", id, "collection", name)
			if s.metrics != nil {
				s.metrics.RecordMutation("delete", true)
			}
			return
		}
	}
	s.log.Warn("could not delete lead in any known collection", "lead_id", id)
	if s.metrics != nil {
		s.metrics.RecordMutation("delete", false)
	}
}

func (s *Service) cacheLeads(ctx context.Context, leads []models.Lead) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(leads)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey, payload, cacheTTL); err != nil {
		s.log.Debug("lead cache write failed", "error", err)
	}
}

func (s *Service) restoreFromCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	payload, err := s.cache.Get(ctx, cacheKey)
	if err != nil || payload == "" {
		if s.metrics != nil {
			s.metrics.RecordCacheMiss("redis")
		}
		return
	}
	if s.metrics != nil {
		s.metrics.RecordCacheHit("redis")
	}
	var cached []models.Lead
	if err := json.Unmarshal([]byte(payload), &cached); err != nil {
		return
	}

	s.mu.Lock()
	if len(s.leads) == 0 {
		s.leads = cached
	}
	s.mu.Unlock()
	s.log.Info("lead list restored from cache", "count", len(cached))
}

func (s *Service) invalidateCache() {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.DeletePattern(ctx, "leads:*"); err != nil {
		s.log.Debug("lead cache invalidation failed", "error", err)
	}
}
