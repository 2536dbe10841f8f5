package types

import "time"

// Token is an opaque bearer credential owned by exactly one user.
// The raw token string is returned to the client once at mint time and
// afterwards only ever compared, never retrieved.
type Token struct {
	ID int `json:"id" db:"id"`

	// AccessToken is the opaque random credential string.
	AccessToken string `json:"-" db:"access_token"`

	// UserID references the owning user.
	UserID int `json:"user_id" db:"user_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
