// Package source contains the adapters that fetch raw case data from
// external court data sources. Everything an adapter returns is an untyped
// key/value payload; typed case records exist only past the normalizer.
package source

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/casepulse/casepulse/internal/database"
)

var (
	// ErrNotFound means the source was reachable and the case genuinely
	// does not exist. Never retried.
	ErrNotFound = errors.New("case not found")

	// ErrSourceUnavailable covers network failures, timeouts and markup
	// changes that prevent a fetch. Retryable.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedResponse means the source answered with data the adapter
	// cannot parse. Treated as unavailable for retry purposes.
	ErrMalformedResponse = errors.New("malformed source response")

	// ErrUnsupportedCourt means no adapter is registered for the court.
	ErrUnsupportedCourt = errors.New("unsupported court")
)

// Canonical payload field names. Adapters emit source-specific labels;
// the schema maps those labels onto these keys.
const (
	FieldCaseNumber         = "case_number"
	FieldCourt              = "court"
	FieldCaseType           = "case_type"
	FieldStatus             = "status"
	FieldTitle              = "title"
	FieldFilingDate         = "filing_date"
	FieldNextHearing        = "next_hearing"
	FieldJudge              = "judge"
	FieldPetitioner         = "petitioner"
	FieldRespondent         = "respondent"
	FieldAdvocatePetitioner = "advocate_petitioner"
	FieldAdvocateRespondent = "advocate_respondent"
	FieldSourceURL          = "source_url"
)

// Canonical order entry field names.
const (
	OrderFieldDate        = "date"
	OrderFieldDescription = "description"
	OrderFieldDocumentURL = "document_url"
)

// Payload is the untyped result of one fetch: raw label/value pairs plus
// source metadata. It never crosses past the normalizer.
type Payload struct {
	Source    string
	Method    string // "portal" or "demo"
	FetchedAt time.Time
	Fields    map[string]string
	Orders    []map[string]string
}

// Schema maps a source's field labels onto canonical payload keys.
// Matching is by lowercase substring, the way court portals label their
// result tables.
type Schema struct {
	Source string
	Fields map[string][]string
	Orders map[string][]string
}

// Resolve returns the canonical key for a raw field label, if any alias
// matches.
func (s Schema) Resolve(label string) (string, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	if _, ok := s.Fields[label]; ok {
		return label, true
	}
	for canonical, aliases := range s.Fields {
		for _, alias := range aliases {
			if strings.Contains(label, alias) {
				return canonical, true
			}
		}
	}
	return "", false
}

// ResolveOrder returns the canonical key for a raw order column label.
func (s Schema) ResolveOrder(label string) (string, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	if _, ok := s.Orders[label]; ok {
		return label, true
	}
	for canonical, aliases := range s.Orders {
		for _, alias := range aliases {
			if strings.Contains(label, alias) {
				return canonical, true
			}
		}
	}
	return "", false
}

// Adapter fetches raw case data from one named external source.
// Implementations are stateless per call and must release any acquired
// session resource on every exit path.
type Adapter interface {
	Court() string
	Schema() Schema
	Fetch(ctx context.Context, q *database.Query) (*Payload, error)
}

// Registry maps court identifiers to their adapters.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(a Adapter) {
	r.adapters[strings.ToLower(a.Court())] = a
}

// ForCourt returns the adapter for a court identifier, case-insensitively.
func (r *Registry) ForCourt(court string) (Adapter, bool) {
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(court))]
	return a, ok
}

// Courts lists the registered court identifiers.
func (r *Registry) Courts() []string {
	courts := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		courts = append(courts, a.Court())
	}
	return courts
}
