package source

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/casepulse/casepulse/internal/database"
)

//go:embed fixture.yaml
var fixtureBytes []byte

type demoCase struct {
	CaseNumber         string              `yaml:"case_number"`
	Court              string              `yaml:"court"`
	CaseType           string              `yaml:"case_type"`
	Title              string              `yaml:"title"`
	Status             string              `yaml:"status"`
	Petitioner         string              `yaml:"petitioner"`
	Respondent         string              `yaml:"respondent"`
	Judge              string              `yaml:"judge"`
	AdvocatePetitioner string              `yaml:"advocate_petitioner"`
	AdvocateRespondent string              `yaml:"advocate_respondent"`
	FilingDate         string              `yaml:"filing_date"`
	NextHearing        string              `yaml:"next_hearing"`
	Orders             []map[string]string `yaml:"orders"`
}

type fixtureFile struct {
	Cases []demoCase `yaml:"cases"`
}

// Fixture is the bundled demo dataset. Loaded once at startup and
// read-only afterwards.
type Fixture struct {
	cases []demoCase
}

// LoadFixture parses the embedded demo dataset.
func LoadFixture() (*Fixture, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(fixtureBytes, &file); err != nil {
		return nil, fmt.Errorf("failed to parse demo fixture: %w", err)
	}
	if len(file.Cases) == 0 {
		return nil, fmt.Errorf("demo fixture contains no cases")
	}
	return &Fixture{cases: file.Cases}, nil
}

// DemoSchema returns the schema for fixture payloads, whose fields are
// already canonical.
func DemoSchema() Schema {
	return Schema{
		Source: "demo",
		Fields: map[string][]string{
			FieldCaseNumber:         nil,
			FieldCourt:              nil,
			FieldCaseType:           nil,
			FieldStatus:             nil,
			FieldTitle:              nil,
			FieldFilingDate:         nil,
			FieldNextHearing:        nil,
			FieldJudge:              nil,
			FieldPetitioner:         nil,
			FieldRespondent:         nil,
			FieldAdvocatePetitioner: nil,
			FieldAdvocateRespondent: nil,
			FieldSourceURL:          nil,
		},
		Orders: map[string][]string{
			OrderFieldDate:        nil,
			OrderFieldDescription: nil,
			OrderFieldDocumentURL: nil,
		},
	}
}

// Match finds the fixture entry for a query: exact case number first,
// then case type. Returns nil when nothing matches.
func (f *Fixture) Match(q *database.Query) *Payload {
	number := strings.ToUpper(strings.TrimSpace(q.CaseNumber))
	if number != "" {
		for i := range f.cases {
			if strings.ToUpper(f.cases[i].CaseNumber) == number {
				return f.payload(&f.cases[i])
			}
		}
	}
	if q.CaseType != "" {
		for i := range f.cases {
			if strings.EqualFold(f.cases[i].CaseType, q.CaseType) {
				return f.payload(&f.cases[i])
			}
		}
	}
	return nil
}

// MatchParty returns fixture entries in one court whose party names
// contain the fragment, case-insensitively.
func (f *Fixture) MatchParty(court, fragment string) []*Payload {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if fragment == "" {
		return nil
	}
	var matches []*Payload
	for i := range f.cases {
		dc := &f.cases[i]
		if !strings.EqualFold(strings.TrimSpace(dc.Court), strings.TrimSpace(court)) {
			continue
		}
		if strings.Contains(strings.ToLower(dc.Petitioner), fragment) ||
			strings.Contains(strings.ToLower(dc.Respondent), fragment) {
			matches = append(matches, f.payload(dc))
		}
	}
	return matches
}

func (f *Fixture) payload(dc *demoCase) *Payload {
	fields := map[string]string{
		FieldCaseNumber:         dc.CaseNumber,
		FieldCourt:              dc.Court,
		FieldCaseType:           dc.CaseType,
		FieldStatus:             dc.Status,
		FieldTitle:              dc.Title,
		FieldFilingDate:         dc.FilingDate,
		FieldNextHearing:        dc.NextHearing,
		FieldJudge:              dc.Judge,
		FieldPetitioner:         dc.Petitioner,
		FieldRespondent:         dc.Respondent,
		FieldAdvocatePetitioner: dc.AdvocatePetitioner,
		FieldAdvocateRespondent: dc.AdvocateRespondent,
	}
	for k, v := range fields {
		if strings.TrimSpace(v) == "" {
			delete(fields, k)
		}
	}

	orders := make([]map[string]string, 0, len(dc.Orders))
	for _, o := range dc.Orders {
		entry := make(map[string]string, len(o))
		for k, v := range o {
			entry[k] = v
		}
		orders = append(orders, entry)
	}

	return &Payload{
		Source:    "demo",
		Method:    "demo",
		FetchedAt: time.Now(),
		Fields:    fields,
		Orders:    orders,
	}
}

// DemoAdapter serves a court entirely from the fixture. Used in demo
// mode, where no browser is launched.
type DemoAdapter struct {
	court   string
	fixture *Fixture
}

func NewDemoAdapter(court string, fixture *Fixture) *DemoAdapter {
	return &DemoAdapter{court: court, fixture: fixture}
}

func (a *DemoAdapter) Court() string {
	return a.court
}

func (a *DemoAdapter) Schema() Schema {
	return DemoSchema()
}

func (a *DemoAdapter) Fetch(ctx context.Context, q *database.Query) (*Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if p := a.fixture.Match(q); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("%w: no demo entry for %q", ErrNotFound, q.CaseNumber)
}
