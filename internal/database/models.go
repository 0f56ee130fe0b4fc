package database

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// CaseType is the canonical case classification.
type CaseType string

const (
	CaseTypeCivil      CaseType = "Civil"
	CaseTypeCriminal   CaseType = "Criminal"
	CaseTypeFamily     CaseType = "Family"
	CaseTypeCommercial CaseType = "Commercial"
	CaseTypeOther      CaseType = "Other"
)

// CaseStatus is the canonical case status.
type CaseStatus string

const (
	CaseStatusActive   CaseStatus = "Active"
	CaseStatusDisposed CaseStatus = "Disposed"
	CaseStatusPending  CaseStatus = "Pending"
	CaseStatusUnknown  CaseStatus = "Unknown"
)

// DataSource records where a case record came from.
type DataSource string

const (
	DataSourceLive DataSource = "live"
	DataSourceDemo DataSource = "demo"
)

// Outcome is the resolution outcome recorded against a query.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeFallbackDemo Outcome = "fallback_demo"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeError        Outcome = "error"
)

// Case is the canonical normalized representation of one court case.
// Identity is the (case_number, court) pair; re-fetching the same case
// must never create a second row.
type Case struct {
	gorm.Model
	CaseNumber  string     `json:"case_number" gorm:"uniqueIndex:idx_case_identity"`
	Court       string     `json:"court" gorm:"uniqueIndex:idx_case_identity"`
	CaseType    CaseType   `json:"case_type"`
	Status      CaseStatus `json:"status"`
	Title       string     `json:"title" gorm:"type:text"`
	FilingDate  time.Time  `json:"filing_date"`
	NextHearing time.Time  `json:"next_hearing"`
	Judge       string     `json:"judge"`
	DataSource  DataSource `json:"data_source"`
	SourceURL   string     `json:"source_url"`
	AISummary   string     `json:"ai_summary" gorm:"type:text"`
	Parties     []Party    `json:"parties" gorm:"foreignKey:CaseID"`
	Orders      []Order    `json:"orders" gorm:"foreignKey:CaseID"`
}

// Party is one named party on a case, ordered by Position within its role.
type Party struct {
	gorm.Model
	CaseID   uint   `json:"case_id"`
	Role     string `json:"role"` // Petitioner or Respondent
	Name     string `json:"name"`
	Advocate string `json:"advocate"`
	Position int    `json:"position"`
}

// Order is one order/judgment entry on a case, kept in chronological order.
type Order struct {
	gorm.Model
	CaseID      uint      `json:"case_id"`
	OrderDate   time.Time `json:"order_date" gorm:"index"`
	Description string    `json:"description" gorm:"type:text"`
	DocumentURL string    `json:"document_url"`
	LocalPath   string    `json:"local_path"`
	Downloaded  bool      `json:"downloaded"`
}

// Query is one user-issued search request. Immutable once created.
type Query struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	CaseNumber    string    `json:"case_number"`
	CaseType      string    `json:"case_type"`
	Court         string    `json:"court" gorm:"index"`
	PartyFragment string    `json:"party_fragment"`
	ForceRefresh  bool      `json:"force_refresh"`
	SubmittedAt   time.Time `json:"submitted_at"`
	ClientIP      string    `json:"client_ip"`
	UserAgent     string    `json:"user_agent"`
}

// HistoryEntry links a query to its resolution. Created once, immutable.
// CaseID is a non-owning reference to the primary resolved Case.
type HistoryEntry struct {
	gorm.Model
	QueryID      string    `json:"query_id" gorm:"index"`
	Outcome      Outcome   `json:"outcome"`
	FromCache    bool      `json:"from_cache"`
	CaseID       *uint     `json:"case_id"`
	CaseIDs      string    `json:"case_ids"` // comma separated, for multi-match queries
	ErrorMessage string    `json:"error_message" gorm:"type:text"`
	ResponseMS   int64     `json:"response_ms"`
	ResolvedAt   time.Time `json:"resolved_at"`
}

// Clone returns a deep copy of the record. Cached records are handed
// out as copies so no two callers ever share mutable state.
func (c *Case) Clone() *Case {
	clone := *c
	clone.Parties = make([]Party, len(c.Parties))
	copy(clone.Parties, c.Parties)
	clone.Orders = make([]Order, len(c.Orders))
	copy(clone.Orders, c.Orders)
	return &clone
}

func (Case) TableName() string {
	return "cases"
}

func (Party) TableName() string {
	return "parties"
}

func (Order) TableName() string {
	return "orders"
}

func (Query) TableName() string {
	return "queries"
}

func (HistoryEntry) TableName() string {
	return "history_entries"
}

// CaseKey builds the canonical identity key for a (case number, court) pair.
func CaseKey(caseNumber, court string) string {
	return strings.ToUpper(strings.TrimSpace(caseNumber)) + "|" + strings.ToUpper(strings.TrimSpace(court))
}
