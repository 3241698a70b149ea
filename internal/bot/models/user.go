package models

import "time"

// User is created implicitly on first password authentication or VIP grant
// and never deleted.
type User struct {
	ID         int64
	LastAuthAt *time.Time
	IsVIP      bool
}
