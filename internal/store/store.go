// Package store owns queries, history entries and the cached lookup path
// over case records.
package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/casepulse/casepulse/internal/database"
	"github.com/casepulse/casepulse/pkg/logger"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("record not found")

// Store persists queries, history entries and case records, and serves
// repeat lookups from a memory layer without re-scraping.
type Store struct {
	db  *gorm.DB
	mem *memoryCache
	log *logger.Logger
}

func New(db *gorm.DB, cacheSize int, cacheTTL time.Duration, log *logger.Logger) *Store {
	return &Store{
		db:  db,
		mem: newMemoryCache(cacheSize, cacheTTL),
		log: log,
	}
}

// SaveQuery persists a submitted query. Every submission is a new row,
// identical or not.
func (s *Store) SaveQuery(q *database.Query) error {
	if err := s.db.Create(q).Error; err != nil {
		return fmt.Errorf("failed to save query: %w", err)
	}
	return nil
}

// RecordOutcome writes the immutable history entry linking a query to
// its resolution.
func (s *Store) RecordOutcome(q *database.Query, outcome database.Outcome, fromCache bool, cases []*database.Case, errMsg string, elapsed time.Duration) (*database.HistoryEntry, error) {
	entry := &database.HistoryEntry{
		QueryID:      q.ID,
		Outcome:      outcome,
		FromCache:    fromCache,
		ErrorMessage: errMsg,
		ResponseMS:   elapsed.Milliseconds(),
		ResolvedAt:   time.Now(),
	}

	if len(cases) > 0 {
		id := cases[0].ID
		entry.CaseID = &id

		ids := make([]string, 0, len(cases))
		for _, c := range cases {
			ids = append(ids, strconv.FormatUint(uint64(c.ID), 10))
		}
		entry.CaseIDs = strings.Join(ids, ",")
	}

	if err := s.db.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to record history entry: %w", err)
	}
	return entry, nil
}

// FindCaseByKey returns the cached record for a (case number, court)
// identity, if any. A hit here means no scrape is needed.
func (s *Store) FindCaseByKey(caseNumber, court string) (*database.Case, bool) {
	key := database.CaseKey(caseNumber, court)

	if record, found := s.mem.Get(key); found {
		return record, true
	}

	var record database.Case
	err := s.db.Preload("Parties").Preload("Orders").
		Where("upper(case_number) = ? AND upper(court) = ?",
			strings.ToUpper(strings.TrimSpace(caseNumber)),
			strings.ToUpper(strings.TrimSpace(court))).
		First(&record).Error
	if err != nil {
		return nil, false
	}

	s.mem.Set(key, &record)
	return &record, true
}

// SaveCase persists a case record and warms the memory layer. The
// (case number, court) uniqueness constraint makes duplicate identities
// a hard error rather than a silent second row.
func (s *Store) SaveCase(c *database.Case) error {
	var err error
	if c.ID == 0 {
		err = s.db.Create(c).Error
	} else {
		err = s.db.Session(&gorm.Session{FullSaveAssociations: true}).Save(c).Error
	}
	if err != nil {
		return fmt.Errorf("failed to save case %s/%s: %w", c.CaseNumber, c.Court, err)
	}

	s.mem.Set(database.CaseKey(c.CaseNumber, c.Court), c)
	return nil
}

// InvalidateCase drops the memory-layer entry for a case identity.
func (s *Store) InvalidateCase(caseNumber, court string) {
	s.mem.Delete(database.CaseKey(caseNumber, court))
}

// LookupCase fetches one case by its identifier.
func (s *Store) LookupCase(id uint) (*database.Case, error) {
	var record database.Case
	err := s.db.Preload("Parties").Preload("Orders").First(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// SearchCases finds cached cases in one court whose party names contain
// the fragment, most recent filing first.
func (s *Store) SearchCases(court, fragment string) ([]*database.Case, error) {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if fragment == "" {
		return nil, nil
	}

	var cases []*database.Case
	err := s.db.Preload("Parties").Preload("Orders").
		Joins("JOIN parties ON parties.case_id = cases.id AND parties.deleted_at IS NULL").
		Where("upper(cases.court) = ? AND lower(parties.name) LIKE ?",
			strings.ToUpper(strings.TrimSpace(court)), "%"+fragment+"%").
		Group("cases.id").
		Order("cases.filing_date DESC, cases.case_number").
		Find(&cases).Error
	if err != nil {
		return nil, fmt.Errorf("party search failed: %w", err)
	}
	return cases, nil
}

// ListHistory pages back through history entries, newest first. The
// returned cursor restarts the listing where it left off; zero means the
// listing is exhausted.
func (s *Store) ListHistory(cursor uint, limit int) ([]database.HistoryEntry, uint, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	q := s.db.Model(&database.HistoryEntry{}).Order("id DESC").Limit(limit)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}

	var entries []database.HistoryEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list history: %w", err)
	}

	var next uint
	if len(entries) == limit {
		next = entries[len(entries)-1].ID
	}
	return entries, next, nil
}

// CacheStats reports the memory layer's counters.
func (s *Store) CacheStats() CacheStats {
	return s.mem.Stats()
}

// Stats returns database-wide counters.
func (s *Store) Stats() (map[string]int64, error) {
	stats := make(map[string]int64)

	counts := []struct {
		name  string
		model interface{}
	}{
		{"cases", &database.Case{}},
		{"orders", &database.Order{}},
		{"queries", &database.Query{}},
		{"history_entries", &database.HistoryEntry{}},
	}
	for _, c := range counts {
		var n int64
		if err := s.db.Model(c.model).Count(&n).Error; err != nil {
			return nil, err
		}
		stats[c.name] = n
	}

	var demo int64
	if err := s.db.Model(&database.Case{}).Where("data_source = ?", database.DataSourceDemo).Count(&demo).Error; err != nil {
		return nil, err
	}
	stats["demo_cases"] = demo

	return stats, nil
}
