package domain

import "time"

// Chat is a direct message between two users.
type Chat struct {
	ID     string `json:"id"`
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`

	Message string `json:"message"`

	ReadAt *time.Time `json:"read_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRead reports whether the recipient has read the message.
func (c *Chat) IsRead() bool {
	return c.ReadAt != nil
}

// MarkRead sets ReadAt if not already set. Returns true on first read.
func (c *Chat) MarkRead() bool {
	if c.ReadAt != nil {
		return false
	}
	now := time.Now()
	c.ReadAt = &now
	c.UpdatedAt = now
	return true
}
