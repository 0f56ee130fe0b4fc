// Package normalize converts untyped source payloads into canonical case
// records. Nothing untyped leaves this package.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/casepulse/casepulse/internal/database"
	"github.com/casepulse/casepulse/internal/source"
	"github.com/casepulse/casepulse/pkg/logger"
)

// ErrNormalization means the payload lacks a resolvable case identity.
// A record without one cannot be cached or looked up later.
var ErrNormalization = errors.New("normalization failed")

// Normalizer maps raw payloads onto the canonical Case shape.
type Normalizer struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// Normalize maps a payload through its source schema into a Case.
// Missing case number or court is fatal.
func (n *Normalizer) Normalize(p *source.Payload, schema source.Schema) (*database.Case, error) {
	canonical := make(map[string]string, len(p.Fields))
	for label, value := range p.Fields {
		key, ok := schema.Resolve(label)
		if !ok {
			continue
		}
		if _, exists := canonical[key]; !exists {
			canonical[key] = strings.TrimSpace(value)
		}
	}

	caseNumber := canonical[source.FieldCaseNumber]
	court := canonical[source.FieldCourt]
	if court == "" {
		court = p.Source
	}
	if caseNumber == "" || court == "" {
		return nil, fmt.Errorf("%w: payload from %q has no case identity", ErrNormalization, p.Source)
	}

	c := &database.Case{
		CaseNumber: caseNumber,
		Court:      court,
		CaseType:   CoerceCaseType(canonical[source.FieldCaseType], n.log),
		Status:     CoerceStatus(canonical[source.FieldStatus]),
		Title:      canonical[source.FieldTitle],
		Judge:      canonical[source.FieldJudge],
		SourceURL:  canonical[source.FieldSourceURL],
		DataSource: database.DataSourceLive,
	}
	if p.Method == "demo" {
		c.DataSource = database.DataSourceDemo
	}

	if v := canonical[source.FieldFilingDate]; v != "" {
		if date, err := ParseDate(v); err == nil {
			c.FilingDate = date
		} else {
			n.log.Warn("Unparseable filing date", "value", v, "source", p.Source)
		}
	}
	if v := canonical[source.FieldNextHearing]; v != "" {
		if date, err := ParseDate(v); err == nil {
			c.NextHearing = date
		}
	}

	c.Parties = buildParties(canonical)
	c.Orders = n.buildOrders(p, schema)

	return c, nil
}

// buildOrders converts raw order rows, dropping entries without a
// parseable date, and returns them in chronological order.
func (n *Normalizer) buildOrders(p *source.Payload, schema source.Schema) []database.Order {
	var orders []database.Order
	for _, raw := range p.Orders {
		entry := make(map[string]string, len(raw))
		for label, value := range raw {
			if key, ok := schema.ResolveOrder(label); ok {
				entry[key] = strings.TrimSpace(value)
			}
		}

		date, err := ParseDate(entry[source.OrderFieldDate])
		if err != nil {
			n.log.Warn("Dropping order entry with unparseable date",
				"value", entry[source.OrderFieldDate], "source", p.Source)
			continue
		}
		if entry[source.OrderFieldDescription] == "" {
			continue
		}

		orders = append(orders, database.Order{
			OrderDate:   date,
			Description: entry[source.OrderFieldDescription],
			DocumentURL: entry[source.OrderFieldDocumentURL],
		})
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].OrderDate.Before(orders[j].OrderDate)
	})
	return orders
}

// Merge folds a freshly normalized record into the existing one sharing
// its (case number, court) identity. New order entries are appended in
// chronological order; exact duplicates are rejected. Returns whether
// anything changed.
func Merge(existing, fresh *database.Case) bool {
	changed := false

	if fresh.Status != database.CaseStatusUnknown && fresh.Status != existing.Status {
		existing.Status = fresh.Status
		changed = true
	}
	if !fresh.NextHearing.IsZero() && !fresh.NextHearing.Equal(existing.NextHearing) {
		existing.NextHearing = fresh.NextHearing
		changed = true
	}
	if existing.FilingDate.IsZero() && !fresh.FilingDate.IsZero() {
		existing.FilingDate = fresh.FilingDate
		changed = true
	}
	if fresh.Judge != "" && fresh.Judge != existing.Judge {
		existing.Judge = fresh.Judge
		changed = true
	}
	if fresh.Title != "" && existing.Title == "" {
		existing.Title = fresh.Title
		changed = true
	}
	if fresh.DataSource == database.DataSourceLive && existing.DataSource != database.DataSourceLive {
		existing.DataSource = database.DataSourceLive
		changed = true
	}

	for _, order := range fresh.Orders {
		if hasOrder(existing.Orders, order) {
			continue
		}
		order.CaseID = existing.ID
		existing.Orders = append(existing.Orders, order)
		changed = true
	}
	sort.SliceStable(existing.Orders, func(i, j int) bool {
		return existing.Orders[i].OrderDate.Before(existing.Orders[j].OrderDate)
	})

	return changed
}

func hasOrder(orders []database.Order, candidate database.Order) bool {
	for _, o := range orders {
		if sameDay(o.OrderDate, candidate.OrderDate) && o.Description == candidate.Description {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// CoerceCaseType maps free-text case type labels onto the fixed
// enumeration. Unrecognized values map to Other, never dropped silently.
func CoerceCaseType(raw string, log *logger.Logger) database.CaseType {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case lower == "":
		return database.CaseTypeOther
	case strings.Contains(lower, "civil") || strings.Contains(lower, "writ") ||
		strings.HasPrefix(lower, "cs") || strings.HasPrefix(lower, "rfa"):
		return database.CaseTypeCivil
	case strings.Contains(lower, "criminal") || strings.Contains(lower, "crl") ||
		strings.Contains(lower, "bail"):
		return database.CaseTypeCriminal
	case strings.Contains(lower, "family") || strings.Contains(lower, "matrimonial") ||
		strings.Contains(lower, "guardian") || strings.HasPrefix(lower, "mat"):
		return database.CaseTypeFamily
	case strings.Contains(lower, "commercial") || strings.Contains(lower, "company") ||
		strings.Contains(lower, "arbitration") || strings.Contains(lower, "insolvency"):
		return database.CaseTypeCommercial
	default:
		if log != nil {
			log.Info("Unrecognized case type mapped to Other", "value", raw)
		}
		return database.CaseTypeOther
	}
}

// CoerceStatus maps free-text status labels onto the fixed enumeration.
func CoerceStatus(raw string) database.CaseStatus {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case lower == "":
		return database.CaseStatusUnknown
	case strings.Contains(lower, "disposed") || strings.Contains(lower, "decided") ||
		strings.Contains(lower, "dismissed") || strings.Contains(lower, "concluded"):
		return database.CaseStatusDisposed
	case strings.Contains(lower, "pending") || strings.Contains(lower, "reserved") ||
		strings.Contains(lower, "notice issued") || strings.Contains(lower, "consideration"):
		return database.CaseStatusPending
	case strings.Contains(lower, "active") || strings.Contains(lower, "hearing") ||
		strings.Contains(lower, "arguments") || strings.Contains(lower, "trial"):
		return database.CaseStatusActive
	default:
		return database.CaseStatusUnknown
	}
}

var (
	partySeparator = regexp.MustCompile(`\s+(?:and|AND|And|&)\s+`)
	partyTrailer   = regexp.MustCompile(`\s*(?:etc\.?|\d+\.?)$`)
	multiSpace     = regexp.MustCompile(`\s+`)
)

func buildParties(canonical map[string]string) []database.Party {
	var parties []database.Party

	appendRole := func(role, namesField, advocate string) {
		for i, name := range splitPartyNames(canonical[namesField]) {
			p := database.Party{
				Role:     role,
				Name:     name,
				Position: i,
			}
			if i == 0 {
				p.Advocate = canonical[advocate]
			}
			parties = append(parties, p)
		}
	}

	appendRole("Petitioner", source.FieldPetitioner, source.FieldAdvocatePetitioner)
	appendRole("Respondent", source.FieldRespondent, source.FieldAdvocateRespondent)

	return parties
}

// splitPartyNames splits "A and B & C etc." into individual names,
// preserving order.
func splitPartyNames(text string) []string {
	text = strings.TrimSpace(multiSpace.ReplaceAllString(text, " "))
	if text == "" {
		return nil
	}

	var names []string
	for _, part := range partySeparator.Split(text, -1) {
		name := strings.TrimSpace(partyTrailer.ReplaceAllString(strings.TrimSpace(part), ""))
		if len(name) > 2 {
			names = append(names, name)
		}
	}
	return names
}

// dateFormats covers the calendar formats used across Indian court
// portals, most specific first.
var dateFormats = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"02.01.2006",
	"02-Jan-2006",
	"02-January-2006",
	"02 Jan 2006",
	"02 January 2006",
	"Jan 02, 2006",
	"January 02, 2006",
}

var dayNamePattern = regexp.MustCompile(`(?i)(Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday),?\s*`)

// ParseDate coerces the date formats used by court portals into a
// single calendar representation.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(multiSpace.ReplaceAllString(raw, " "))
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, format := range dateFormats {
		if date, err := time.Parse(format, raw); err == nil {
			return date, nil
		}
	}

	// Some portals prefix dates with the weekday.
	stripped := dayNamePattern.ReplaceAllString(raw, "")
	if stripped != raw {
		for _, format := range dateFormats {
			if date, err := time.Parse(format, stripped); err == nil {
				return date, nil
			}
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", raw)
}
