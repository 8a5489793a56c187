package domain

import "time"

// Tag is a canonical entry in the tag directory. Tags are shared across
// all communities, with no ownership model.
// Key is the source of truth and is a pure function of the display text;
// Display keeps the casing and spacing of the first submission seen.
type Tag struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Display   string    `json:"display"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (t *Tag) Touch() {
	t.UpdatedAt = time.Now()
}
