// Package scrape orchestrates case resolution: adapter selection,
// timeouts, retries, demo fallback and per-key fetch coalescing.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/casepulse/casepulse/internal/config"
	"github.com/casepulse/casepulse/internal/database"
	"github.com/casepulse/casepulse/internal/metrics"
	"github.com/casepulse/casepulse/internal/normalize"
	"github.com/casepulse/casepulse/internal/source"
	"github.com/casepulse/casepulse/internal/store"
	"github.com/casepulse/casepulse/pkg/logger"
)

// Resolution is the only shape callers ever see: an outcome tag, the
// resolved records ordered by recency, and an optional underlying error
// for the error outcome. Raw adapter errors never escape this package.
type Resolution struct {
	Outcome   database.Outcome
	Records   []*database.Case
	FromCache bool
	Err       error
}

// Orchestrator resolves queries against live sources with the demo
// dataset as fallback.
type Orchestrator struct {
	registry *source.Registry
	fixture  *source.Fixture
	store    *store.Store
	norm     *normalize.Normalizer
	cfg      *config.Config
	log      *logger.Logger
	flight   singleflight.Group
}

func New(registry *source.Registry, fixture *source.Fixture, st *store.Store, cfg *config.Config, log *logger.Logger) *Orchestrator {
	metrics.Init()
	return &Orchestrator{
		registry: registry,
		fixture:  fixture,
		store:    st,
		norm:     normalize.New(log),
		cfg:      cfg,
		log:      log,
	}
}

// Resolve runs the full resolution algorithm for one query. It always
// terminates within the retry budget plus a small epsilon.
func (o *Orchestrator) Resolve(ctx context.Context, q *database.Query) Resolution {
	res := o.resolve(ctx, q)
	metrics.ObserveResolution(string(res.Outcome), res.FromCache)
	if res.Outcome == database.OutcomeFallbackDemo {
		metrics.ObserveDemoFallback()
	}
	return res
}

func (o *Orchestrator) resolve(ctx context.Context, q *database.Query) Resolution {
	if strings.TrimSpace(q.Court) == "" {
		return Resolution{
			Outcome: database.OutcomeError,
			Err:     fmt.Errorf("%w: empty court identifier", source.ErrUnsupportedCourt),
		}
	}

	if strings.TrimSpace(q.CaseNumber) == "" {
		return o.resolveLoose(q)
	}

	// Cached-record guarantee: a known (case number, court) identity is
	// served without touching the live source.
	if !q.ForceRefresh {
		if record, ok := o.store.FindCaseByKey(q.CaseNumber, q.Court); ok {
			return Resolution{
				Outcome:   database.OutcomeSuccess,
				Records:   []*database.Case{record},
				FromCache: true,
			}
		}
	}

	adapter, ok := o.registry.ForCourt(q.Court)
	if !ok {
		return Resolution{
			Outcome: database.OutcomeError,
			Err:     fmt.Errorf("%w: %q", source.ErrUnsupportedCourt, q.Court),
		}
	}

	return o.fetchShared(ctx, adapter, q)
}

// fetchShared coalesces concurrent fetches for the same (case number,
// court) key onto one in-flight attempt. The singleflight entry is
// released when the attempt finishes, including on timeout.
func (o *Orchestrator) fetchShared(ctx context.Context, adapter source.Adapter, q *database.Query) Resolution {
	key := database.CaseKey(q.CaseNumber, q.Court)

	ch := o.flight.DoChan(key, func() (interface{}, error) {
		// Detached context: the shared attempt must not die with the
		// first caller that gives up on it.
		fetchCtx, cancel := context.WithTimeout(context.Background(), o.totalBudget())
		defer cancel()
		return o.fetchAndPersist(fetchCtx, adapter, q), nil
	})

	select {
	case r := <-ch:
		if r.Shared {
			metrics.ObserveCoalescedWaiter()
		}
		return r.Val.(Resolution)
	case <-ctx.Done():
		return Resolution{Outcome: database.OutcomeError, Err: ctx.Err()}
	}
}

// totalBudget bounds one shared fetch: per-attempt timeout times the
// retry bound, plus backoff, plus a little slack.
func (o *Orchestrator) totalBudget() time.Duration {
	retries := o.retries()
	budget := o.cfg.ScraperTimeout * time.Duration(retries)
	for i := 0; i < retries; i++ {
		budget += o.backoff(i)
	}
	return budget + 2*time.Second
}

func (o *Orchestrator) retries() int {
	if o.cfg.ScrapeRetries < 1 {
		return 1
	}
	return o.cfg.ScrapeRetries
}

func (o *Orchestrator) backoff(attempt int) time.Duration {
	base := o.cfg.RetryBackoff
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	return base << uint(attempt)
}

// fetchAndPersist runs the retry loop against the live adapter and falls
// back to the demo dataset when retries exhaust.
func (o *Orchestrator) fetchAndPersist(ctx context.Context, adapter source.Adapter, q *database.Query) Resolution {
	var lastErr error

	for attempt := 0; attempt < o.retries(); attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.ScraperTimeout)
		start := time.Now()
		payload, err := adapter.Fetch(attemptCtx, q)
		cancel()

		switch {
		case err == nil:
			metrics.ObserveScrapeAttempt(adapter.Court(), "ok", time.Since(start))
			return o.persist(payload, adapter.Schema(), database.OutcomeSuccess)

		case errors.Is(err, source.ErrNotFound):
			// The source answered: no such case. Not retried, not an error.
			metrics.ObserveScrapeAttempt(adapter.Court(), "not_found", time.Since(start))
			return Resolution{Outcome: database.OutcomeNotFound}

		default:
			metrics.ObserveScrapeAttempt(adapter.Court(), "unavailable", time.Since(start))
			o.log.Warn("Fetch attempt failed",
				"court", adapter.Court(),
				"case_number", q.CaseNumber,
				"attempt", attempt+1,
				"error", err,
			)
			lastErr = err
		}

		if attempt < o.retries()-1 {
			select {
			case <-time.After(o.backoff(attempt)):
			case <-ctx.Done():
				return Resolution{Outcome: database.OutcomeError, Err: ctx.Err()}
			}
		}
	}

	if payload := o.fixture.Match(q); payload != nil {
		o.log.Info("Live fetch exhausted retries, serving demo data",
			"court", q.Court, "case_number", q.CaseNumber)
		return o.persist(payload, source.DemoSchema(), database.OutcomeFallbackDemo)
	}

	return Resolution{Outcome: database.OutcomeError, Err: lastErr}
}

// persist normalizes a payload and merges it into the cached record for
// its identity. A normalization failure caches nothing.
func (o *Orchestrator) persist(payload *source.Payload, schema source.Schema, outcome database.Outcome) Resolution {
	fresh, err := o.norm.Normalize(payload, schema)
	if err != nil {
		o.log.Error("Normalization failed", "source", payload.Source, "error", err)
		return Resolution{Outcome: database.OutcomeError, Err: err}
	}

	record, err := o.saveMerged(fresh)
	if err != nil {
		// A concurrent writer can win the create for this identity
		// between our lookup and save. The row exists now, so a second
		// pass merges into it.
		record, err = o.saveMerged(fresh)
	}
	if err != nil {
		o.log.Error("Failed to persist case", "case_number", fresh.CaseNumber, "error", err)
		return Resolution{Outcome: database.OutcomeError, Err: err}
	}

	return Resolution{Outcome: outcome, Records: []*database.Case{record}}
}

// saveMerged folds a normalized record into the stored one sharing its
// identity, or creates it when none exists yet.
func (o *Orchestrator) saveMerged(fresh *database.Case) (*database.Case, error) {
	record := fresh
	if existing, ok := o.store.FindCaseByKey(fresh.CaseNumber, fresh.Court); ok {
		normalize.Merge(existing, fresh)
		record = existing
	}
	if err := o.store.SaveCase(record); err != nil {
		return nil, err
	}
	return record, nil
}

// resolveLoose answers party-fragment queries from the cached store and
// the demo dataset, scoped to the queried court. Live portals only
// support case-number lookup, so a loose query never triggers a scrape.
func (o *Orchestrator) resolveLoose(q *database.Query) Resolution {
	if _, ok := o.registry.ForCourt(q.Court); !ok {
		return Resolution{
			Outcome: database.OutcomeError,
			Err:     fmt.Errorf("%w: %q", source.ErrUnsupportedCourt, q.Court),
		}
	}

	fragment := strings.TrimSpace(q.PartyFragment)
	if fragment == "" {
		return Resolution{Outcome: database.OutcomeNotFound}
	}

	records, err := o.store.SearchCases(q.Court, fragment)
	if err != nil {
		return Resolution{Outcome: database.OutcomeError, Err: err}
	}
	if len(records) > 0 {
		return Resolution{
			Outcome:   database.OutcomeSuccess,
			Records:   records,
			FromCache: true,
		}
	}

	var matched []*database.Case
	for _, payload := range o.fixture.MatchParty(q.Court, fragment) {
		res := o.persist(payload, source.DemoSchema(), database.OutcomeFallbackDemo)
		if res.Outcome == database.OutcomeFallbackDemo {
			matched = append(matched, res.Records...)
		}
	}
	if len(matched) == 0 {
		return Resolution{Outcome: database.OutcomeNotFound}
	}

	// Ambiguous matches stay a list, most recent filing first.
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].FilingDate.Equal(matched[j].FilingDate) {
			return matched[i].CaseNumber < matched[j].CaseNumber
		}
		return matched[i].FilingDate.After(matched[j].FilingDate)
	})

	return Resolution{Outcome: database.OutcomeFallbackDemo, Records: matched}
}
