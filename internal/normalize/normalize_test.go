package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casepulse/casepulse/internal/database"
	"github.com/casepulse/casepulse/internal/source"
	"github.com/casepulse/casepulse/pkg/logger"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"iso", "2023-03-15", "2023-03-15"},
		{"dashed day first", "15-03-2023", "2023-03-15"},
		{"slashed", "15/03/2023", "2023-03-15"},
		{"dotted", "15.03.2023", "2023-03-15"},
		{"month abbreviation", "15-Mar-2023", "2023-03-15"},
		{"month name with spaces", "15 March 2023", "2023-03-15"},
		{"us style with comma", "Mar 15, 2023", "2023-03-15"},
		{"weekday prefix", "Friday, 15-03-2023", "2023-03-15"},
		{"extra whitespace", "  15-03-2023  ", "2023-03-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "   ", "next Tuesday", "15th of never"} {
		_, err := ParseDate(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestCoerceCaseType(t *testing.T) {
	tests := []struct {
		input string
		want  database.CaseType
	}{
		{"Civil Suit", database.CaseTypeCivil},
		{"CS(OS)", database.CaseTypeCivil},
		{"Writ Petition", database.CaseTypeCivil},
		{"Criminal Appeal", database.CaseTypeCriminal},
		{"CRL.A.", database.CaseTypeCriminal},
		{"Bail Application", database.CaseTypeCriminal},
		{"Matrimonial", database.CaseTypeFamily},
		{"MAT.APP", database.CaseTypeFamily},
		{"Company Petition", database.CaseTypeCommercial},
		{"Arbitration Petition", database.CaseTypeCommercial},
		{"", database.CaseTypeOther},
		{"Something Unrecognizable", database.CaseTypeOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CoerceCaseType(tt.input, nil), "input %q", tt.input)
	}
}

func TestCoerceStatus(t *testing.T) {
	tests := []struct {
		input string
		want  database.CaseStatus
	}{
		{"Disposed Off", database.CaseStatusDisposed},
		{"Dismissed", database.CaseStatusDisposed},
		{"Judgment Reserved", database.CaseStatusPending},
		{"Notice Issued", database.CaseStatusPending},
		{"Under Trial", database.CaseStatusActive},
		{"Final Hearing", database.CaseStatusActive},
		{"", database.CaseStatusUnknown},
		{"???", database.CaseStatusUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CoerceStatus(tt.input), "input %q", tt.input)
	}
}

func portalSchema() source.Schema {
	return source.Schema{
		Source: "Test Court",
		Fields: map[string][]string{
			source.FieldCaseNumber:  {"case number", "case no"},
			source.FieldCourt:       {"court"},
			source.FieldCaseType:    {"case type"},
			source.FieldStatus:      {"status"},
			source.FieldFilingDate:  {"filing date"},
			source.FieldNextHearing: {"next date"},
			source.FieldJudge:       {"coram"},
			source.FieldPetitioner:  {"petitioner"},
			source.FieldRespondent:  {"respondent"},
		},
		Orders: map[string][]string{
			source.OrderFieldDate:        {"date"},
			source.OrderFieldDescription: {"order", "detail"},
			source.OrderFieldDocumentURL: {"pdf"},
		},
	}
}

func TestNormalizeMapsSourceLabels(t *testing.T) {
	n := New(logger.NewNop())

	payload := &source.Payload{
		Source: "Test Court",
		Method: "portal",
		Fields: map[string]string{
			"Case No":     "CS(OS) 99/2023",
			"Case Type":   "Civil Suit",
			"Status":      "Judgment Reserved",
			"Filing Date": "15-03-2023",
			"Next Date":   "01/02/2025",
			"Coram":       "Hon. Justice Test",
			"Petitioner":  "Alpha Traders and Beta Industries",
			"Respondent":  "State of Delhi",
		},
		Orders: []map[string]string{
			{"Date": "10-12-2024", "Order Detail": "Arguments heard"},
			{"Date": "25-11-2024", "Order Detail": "Interim order"},
			{"Date": "garbage", "Order Detail": "Dropped entry"},
		},
	}

	record, err := n.Normalize(payload, portalSchema())
	require.NoError(t, err)

	assert.Equal(t, "CS(OS) 99/2023", record.CaseNumber)
	assert.Equal(t, "Test Court", record.Court)
	assert.Equal(t, database.CaseTypeCivil, record.CaseType)
	assert.Equal(t, database.CaseStatusPending, record.Status)
	assert.Equal(t, database.DataSourceLive, record.DataSource)
	assert.Equal(t, "2023-03-15", record.FilingDate.Format("2006-01-02"))
	assert.Equal(t, "2025-02-01", record.NextHearing.Format("2006-01-02"))

	require.Len(t, record.Parties, 3)
	assert.Equal(t, "Petitioner", record.Parties[0].Role)
	assert.Equal(t, "Alpha Traders", record.Parties[0].Name)
	assert.Equal(t, "Beta Industries", record.Parties[1].Name)
	assert.Equal(t, "State of Delhi", record.Parties[2].Name)

	// Unparseable order date dropped, remainder chronological.
	require.Len(t, record.Orders, 2)
	assert.Equal(t, "Interim order", record.Orders[0].Description)
	assert.Equal(t, "Arguments heard", record.Orders[1].Description)
}

func TestNormalizeDemoPayload(t *testing.T) {
	n := New(logger.NewNop())

	payload := &source.Payload{
		Source: "demo",
		Method: "demo",
		Fields: map[string]string{
			source.FieldCaseNumber: "CRL 45/2022",
			source.FieldCourt:      "District Court",
			source.FieldCaseType:   "Criminal",
			source.FieldStatus:     "Active",
		},
	}

	record, err := n.Normalize(payload, source.DemoSchema())
	require.NoError(t, err)
	assert.Equal(t, database.DataSourceDemo, record.DataSource)
	assert.Equal(t, "District Court", record.Court)
	assert.Equal(t, database.CaseTypeCriminal, record.CaseType)
}

func TestNormalizeFailsWithoutIdentity(t *testing.T) {
	n := New(logger.NewNop())

	payload := &source.Payload{
		Source: "",
		Fields: map[string]string{
			"Status": "Active",
		},
	}

	_, err := n.Normalize(payload, portalSchema())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNormalization))
}

func TestNormalizeCourtFallsBackToSource(t *testing.T) {
	n := New(logger.NewNop())

	payload := &source.Payload{
		Source: "Delhi High Court",
		Fields: map[string]string{
			"Case No": "W.P.(C) 1/2024",
		},
	}

	record, err := n.Normalize(payload, portalSchema())
	require.NoError(t, err)
	assert.Equal(t, "Delhi High Court", record.Court)
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMergeUpdatesMutableFields(t *testing.T) {
	existing := &database.Case{
		CaseNumber: "CS(OS) 1/2023",
		Court:      "Delhi High Court",
		Status:     database.CaseStatusActive,
		DataSource: database.DataSourceDemo,
		Orders: []database.Order{
			{OrderDate: day("2024-11-25"), Description: "Interim order"},
		},
	}
	fresh := &database.Case{
		CaseNumber:  "CS(OS) 1/2023",
		Court:       "Delhi High Court",
		Status:      database.CaseStatusDisposed,
		NextHearing: day("2025-02-15"),
		Judge:       "Hon. Justice New",
		DataSource:  database.DataSourceLive,
		Orders: []database.Order{
			{OrderDate: day("2024-11-25"), Description: "Interim order"},
			{OrderDate: day("2024-12-10"), Description: "Final judgment"},
		},
	}

	changed := Merge(existing, fresh)
	require.True(t, changed)

	assert.Equal(t, database.CaseStatusDisposed, existing.Status)
	assert.Equal(t, "Hon. Justice New", existing.Judge)
	assert.Equal(t, database.DataSourceLive, existing.DataSource)
	assert.Equal(t, day("2025-02-15"), existing.NextHearing)

	// Duplicate order rejected, new one appended in date order.
	require.Len(t, existing.Orders, 2)
	assert.Equal(t, "Interim order", existing.Orders[0].Description)
	assert.Equal(t, "Final judgment", existing.Orders[1].Description)
}

func TestMergeKeepsOrdersChronological(t *testing.T) {
	existing := &database.Case{
		Orders: []database.Order{
			{OrderDate: day("2024-12-10"), Description: "Later order"},
		},
	}
	fresh := &database.Case{
		Orders: []database.Order{
			{OrderDate: day("2024-01-05"), Description: "Earlier order"},
		},
	}

	Merge(existing, fresh)

	require.Len(t, existing.Orders, 2)
	assert.Equal(t, "Earlier order", existing.Orders[0].Description)
	assert.Equal(t, "Later order", existing.Orders[1].Description)
}

func TestMergeNoChanges(t *testing.T) {
	existing := &database.Case{
		Status: database.CaseStatusActive,
		Judge:  "Hon. Justice Same",
		Orders: []database.Order{
			{OrderDate: day("2024-11-25"), Description: "Interim order"},
		},
	}
	fresh := &database.Case{
		Status: database.CaseStatusActive,
		Judge:  "Hon. Justice Same",
		Orders: []database.Order{
			{OrderDate: day("2024-11-25"), Description: "Interim order"},
		},
	}

	assert.False(t, Merge(existing, fresh))
}

func TestMergeUnknownStatusDoesNotOverwrite(t *testing.T) {
	existing := &database.Case{Status: database.CaseStatusDisposed}
	fresh := &database.Case{Status: database.CaseStatusUnknown}

	Merge(existing, fresh)
	assert.Equal(t, database.CaseStatusDisposed, existing.Status)
}

func TestSplitPartyNames(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Rajesh Kumar", []string{"Rajesh Kumar"}},
		{"Alpha Traders and Beta Industries", []string{"Alpha Traders", "Beta Industries"}},
		{"A. B. Corp & C. D. Ltd", []string{"A. B. Corp", "C. D. Ltd"}},
		{"State of Delhi etc.", []string{"State of Delhi"}},
		{"", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, splitPartyNames(tt.input), "input %q", tt.input)
	}
}
