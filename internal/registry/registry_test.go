package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/casepulse/casepulse/internal/database"
	"github.com/casepulse/casepulse/pkg/logger"
)

func newTestRegistry(t *testing.T) (*Registry, *gorm.DB) {
	t.Helper()
	db, err := database.InMemory()
	require.NoError(t, err)
	return New(db, logger.NewNop()), db
}

func seedCase(t *testing.T, db *gorm.DB) *database.Case {
	t.Helper()
	record := &database.Case{
		CaseNumber: "CS(OS) 123/2023",
		Court:      "Delhi High Court",
		CaseType:   database.CaseTypeCivil,
		Status:     database.CaseStatusPending,
		Parties: []database.Party{
			{Role: "Petitioner", Name: "Rajesh Kumar", Advocate: "Adv. S.K. Jain"},
			{Role: "Respondent", Name: "State of Delhi"},
		},
		Orders: []database.Order{
			{OrderDate: time.Date(2024, 11, 25, 0, 0, 0, 0, time.UTC), Description: "Interim order"},
		},
	}
	require.NoError(t, db.Create(record).Error)
	return record
}

func TestGetLoadsAssociations(t *testing.T) {
	reg, db := newTestRegistry(t)
	seeded := seedCase(t, db)

	record, err := reg.Get(seeded.ID)
	require.NoError(t, err)

	assert.Equal(t, "CS(OS) 123/2023", record.CaseNumber)
	assert.Len(t, record.Parties, 2)
	assert.Len(t, record.Orders, 1)
}

func TestGetNotFound(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Get(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAttachSummary(t *testing.T) {
	reg, db := newTestRegistry(t)
	seeded := seedCase(t, db)

	require.NoError(t, reg.AttachSummary(seeded.ID, "  A property dispute pending judgment.  "))

	record, err := reg.Get(seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "A property dispute pending judgment.", record.AISummary)
}

func TestAttachSummaryRejectsEmpty(t *testing.T) {
	reg, db := newTestRegistry(t)
	seeded := seedCase(t, db)

	assert.Error(t, reg.AttachSummary(seeded.ID, "   "))
}

func TestAttachSummaryMissingCase(t *testing.T) {
	reg, _ := newTestRegistry(t)

	assert.ErrorIs(t, reg.AttachSummary(999, "summary text"), ErrNotFound)
}
