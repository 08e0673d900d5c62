package db

import (
	"time"

	"github.com/google/uuid"
)

// RunSummary is a lightweight view of a stored run for listing
type RunSummary struct {
	ID          uuid.UUID `json:"id"`
	TargetRole  string    `json:"target_role"`
	Model       string    `json:"model"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at"`
}
