package model

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus enumerates pipeline stages as observed by polling clients.
type TaskStatus string

const (
	StatusStarted             TaskStatus = "started"
	StatusFetchingArticles    TaskStatus = "fetching_articles"
	StatusFilteringArticles   TaskStatus = "filtering_articles"
	StatusFetchingContent     TaskStatus = "fetching_content"
	StatusGeneratingSummaries TaskStatus = "generating_summaries"
	StatusCompleted           TaskStatus = "completed"
	StatusError               TaskStatus = "error"
	StatusCancelled           TaskStatus = "cancelled"
)

// Terminal reports whether a task in this status will never change again.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}

// Task is one pipeline run's observable state. The registry mutates it
// in place at stage boundaries; clients read it via polling.
type Task struct {
	ID             uuid.UUID     `json:"task_id"`
	Query          string        `json:"query"`
	Status         TaskStatus    `json:"status"`
	Progress       int           `json:"progress"`
	Message        string        `json:"message"`
	Articles       []NewsSummary `json:"articles"`
	TotalFound     int           `json:"total_found"`
	TotalProcessed int           `json:"total_processed"`
	Error          string        `json:"error,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
