package models

import "time"

// AccessToken is a single-use, time-limited credential for one (user, content)
// pair. Rows are never deleted; redemption flips IsUsed exactly once.
type AccessToken struct {
	Token     string
	UserID    int64
	ContentID int64
	IssuedAt  time.Time
	ExpiresAt time.Time
	IsUsed    bool
}

// ShortenerRequest records one attempt to shorten a token deep link.
type ShortenerRequest struct {
	ID        string
	ShortURL  string
	Token     string
	Status    string
	CreatedAt time.Time
}

// Shortener request statuses.
const (
	ShortenerStatusCreated   = "created"
	ShortenerStatusCompleted = "completed"
)
