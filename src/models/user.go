package models

import "time"

// User is a journaling identity. Display names are unique across the known
// users; re-entering an existing name reuses its id and refreshes the
// last-login timestamp. Users are never deleted.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`
}
