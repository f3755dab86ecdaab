package models

import (
	"strings"
	"time"

	id "docufind/pkg/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListQuery selects a page of live records of one kind.
type ListQuery struct {
	Kind           id.RecordKind
	DocumentTypeID int
	Search         string
	Limit          int
	Offset         int
	// Now decides which premium windows are still open when ordering lost records.
	Now time.Time
}

// Normalize clamps paging and trims the search term.
func (q *ListQuery) Normalize() {
	q.Search = strings.TrimSpace(q.Search)
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// MatchQuery describes the records a new record could pair with: the opposite
// kind, same document type, same name and same document number (case-insensitive).
type MatchQuery struct {
	Kind           id.RecordKind
	DocumentTypeID int
	Name           string
	DocumentNumber string
}

// MatchQueryFor builds the candidate query for r. ok is false when r has no
// document number and therefore cannot match anything.
func MatchQueryFor(r *Record) (MatchQuery, bool) {
	if !r.HasDocumentNumber() {
		return MatchQuery{}, false
	}
	return MatchQuery{
		Kind:           r.Kind.Opposite(),
		DocumentTypeID: r.DocumentTypeID,
		Name:           strings.TrimSpace(r.Name),
		DocumentNumber: strings.TrimSpace(r.DocumentNumber),
	}, true
}

// Matches reports whether candidate satisfies the query.
func (q MatchQuery) Matches(candidate *Record) bool {
	return candidate.Kind == q.Kind &&
		!candidate.Removed &&
		candidate.HasDocumentNumber() &&
		candidate.DocumentTypeID == q.DocumentTypeID &&
		strings.EqualFold(strings.TrimSpace(candidate.Name), q.Name) &&
		strings.EqualFold(strings.TrimSpace(candidate.DocumentNumber), q.DocumentNumber)
}

// Stats summarizes the registry for the landing page.
type Stats struct {
	TotalLost    int `json:"total_lost"`
	TotalFound   int `json:"total_found"`
	TotalMatched int `json:"total_matched"`
	// SuccessRate is the share of lost reports with at least one match, in percent.
	SuccessRate int `json:"success_rate"`
}
