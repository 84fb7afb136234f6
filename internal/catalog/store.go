package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sahilm/fuzzy"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/varoOP/vinime/internal/domain"
)

const DefaultDebounce = 5 * time.Second

type entry struct {
	domain.CatalogEntry
	seq int
}

// Store is the in-memory catalog keyed by anime URL. Mutations schedule a
// debounced write of the full snapshot to the repository.
type Store struct {
	log      zerolog.Logger
	repo     domain.CatalogRepository
	debounce time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	seq     int
	timer   *time.Timer

	// writeMu orders snapshot writes; a snapshot is taken while holding it.
	writeMu sync.Mutex
}

func NewStore(log zerolog.Logger, repo domain.CatalogRepository, debounce time.Duration) *Store {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Store{
		log:      log.With().Str("module", "catalog").Logger(),
		repo:     repo,
		debounce: debounce,
		entries:  make(map[string]*entry),
	}
}

// Load reads the persisted catalog. A missing or unreadable store leaves the
// catalog empty.
func (s *Store) Load(ctx context.Context) {
	stored, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCatalogNotFound) {
			s.log.Info().Msg("no stored catalog, starting empty")
		} else {
			s.log.Error().Err(err).Msg("could not load catalog, starting empty")
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range stored {
		s.putLocked(e)
	}

	s.log.Info().Msgf("Loaded %d catalog entries", len(s.entries))
}

// UpsertMany inserts or overwrites every entry carrying both a title and a
// URL, and returns how many URLs were not known before.
func (s *Store) UpsertMany(entries []domain.CatalogEntry) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, e := range entries {
		if s.putLocked(e) {
			added++
		}
	}

	if added > 0 {
		s.log.Debug().Int("added", added).Int("total", len(s.entries)).Msg("catalog updated")
		s.scheduleLocked()
	}

	return added
}

func (s *Store) putLocked(e domain.CatalogEntry) bool {
	e.Title = strings.TrimSpace(e.Title)
	e.URL = strings.TrimSpace(e.URL)
	if e.Title == "" || e.URL == "" {
		return false
	}

	if existing, ok := s.entries[e.URL]; ok {
		existing.CatalogEntry = e
		return false
	}

	s.seq++
	s.entries[e.URL] = &entry{CatalogEntry: e, seq: s.seq}
	return true
}

// SchedulePersist (re)arms the debounce timer.
func (s *Store) SchedulePersist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked()
}

func (s *Store) scheduleLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(s.debounce, func() { s.fire(t) })
	s.timer = t
}

// fire runs when timer t expires. A timer that was replaced after it started
// firing leaves the write to its successor.
func (s *Store) fire(t *time.Timer) {
	s.mu.Lock()
	if s.timer != t {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	if err := s.write(context.Background()); err != nil {
		s.log.Error().Err(err).Msg("could not persist catalog")
	}
}

// Flush cancels a pending write and persists the catalog now.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	return s.write(ctx)
}

func (s *Store) write(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snapshot := s.snapshot()
	if err := s.repo.Save(ctx, snapshot); err != nil {
		return err
	}

	s.log.Debug().Int("count", len(snapshot)).Msg("catalog persisted")
	return nil
}

// snapshot returns the entries in insertion order.
func (s *Store) snapshot() []domain.CatalogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordered := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })

	out := make([]domain.CatalogEntry, len(ordered))
	for i, e := range ordered {
		out[i] = e.CatalogEntry
	}
	return out
}

// Close stops the timer and writes whatever is pending.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	pending := s.timer != nil
	s.mu.Unlock()

	if !pending {
		return nil
	}
	return s.Flush(ctx)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// ListAllSortedByTitle returns every entry ordered by Indonesian collation of
// the title, ignoring case and diacritics. Equal titles keep insertion order.
func (s *Store) ListAllSortedByTitle() []domain.CatalogEntry {
	entries := s.snapshot()

	// a Collator keeps internal buffers and is not safe for concurrent use
	col := collate.New(language.Indonesian, collate.IgnoreCase, collate.IgnoreDiacritics)
	sort.SliceStable(entries, func(i, j int) bool {
		return col.CompareString(entries[i].Title, entries[j].Title) < 0
	})

	return entries
}

// Top returns the first n entries of the sorted catalog.
func (s *Store) Top(n int) []domain.CatalogEntry {
	entries := s.ListAllSortedByTitle()
	if n >= 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}

// Search fuzzy matches query against the titles, best match first.
func (s *Store) Search(query string, limit int) []domain.CatalogEntry {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.CatalogEntry{}
	}

	entries := s.snapshot()
	matches := fuzzy.FindFrom(strings.ToLower(query), lowered(entries))

	out := []domain.CatalogEntry{}
	for _, m := range matches {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, entries[m.Index])
	}
	return out
}

// lowered exposes lower-cased titles to fuzzy.FindFrom.
type lowered []domain.CatalogEntry

func (t lowered) String(i int) string { return strings.ToLower(t[i].Title) }
func (t lowered) Len() int            { return len(t) }
