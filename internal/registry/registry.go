// Package registry is the read surface over case records consumed by
// rendering, export and summarization collaborators. The read path never
// triggers a scrape.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/casepulse/casepulse/internal/database"
	"github.com/casepulse/casepulse/pkg/logger"
)

// ErrNotFound is returned when no case exists for the identifier.
var ErrNotFound = errors.New("case not found")

type Registry struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(db *gorm.DB, log *logger.Logger) *Registry {
	return &Registry{db: db, log: log}
}

// Get returns the canonical record for a case identifier.
func (r *Registry) Get(caseID uint) (*database.Case, error) {
	var record database.Case
	err := r.db.Preload("Parties").Preload("Orders").First(&record, caseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load case %d: %w", caseID, err)
	}
	return &record, nil
}

// AttachSummary writes a generated summary onto an existing record
// without touching the scrape/normalize pipeline.
func (r *Registry) AttachSummary(caseID uint, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("refusing to attach empty summary to case %d", caseID)
	}

	result := r.db.Model(&database.Case{}).
		Where("id = ?", caseID).
		Update("ai_summary", text)
	if result.Error != nil {
		return fmt.Errorf("failed to attach summary to case %d: %w", caseID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	r.log.Info("Attached summary", "case_id", caseID, "length", len(text))
	return nil
}
