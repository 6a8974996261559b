package model

import "time"

// Blob is the current value stored under a key.
type Blob struct {
	Key        string    `json:"key"`
	Value      string    `json:"value"`
	RevisionID string    `json:"revision_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Revision is one historical write of a key.
type Revision struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Value     string    `json:"value,omitempty"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
