package model

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is an article reference returned by a search provider.
// It is ephemeral: candidates are never persisted directly.
type Candidate struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Content     string    `json:"content,omitempty"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

// NewsRecord is a summarized article as persisted in the store.
// URL is the dedup key: at most one record exists per URL.
type NewsRecord struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Summary         string    `json:"summary"`
	URL             string    `json:"url"`
	Source          string    `json:"source"`
	OriginalContent string    `json:"original_content,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewNewsRecord creates a record with a fresh ID and timestamps.
func NewNewsRecord(title, summary, url, source, originalContent string) NewsRecord {
	now := time.Now().UTC()
	return NewsRecord{
		ID:              uuid.New(),
		Title:           title,
		Summary:         summary,
		URL:             url,
		Source:          source,
		OriginalContent: originalContent,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// NewsSummary is the API shape of a record: metadata without the
// original content payload.
type NewsSummary struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	URL       string    `json:"url"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Serialize strips the heavy content field for API responses.
func (r NewsRecord) Serialize() NewsSummary {
	return NewsSummary{
		ID:        r.ID,
		Title:     r.Title,
		Summary:   r.Summary,
		URL:       r.URL,
		Source:    r.Source,
		CreatedAt: r.CreatedAt,
	}
}
