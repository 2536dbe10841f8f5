package types

import "time"

// User represents an account in the system.
type User struct {
	// ID is the unique identifier assigned by the store.
	ID int `json:"id" db:"id"`

	// UserIDStr is the unique handle chosen by the caller at registration.
	UserIDStr string `json:"user_id_str" db:"user_id_str"`

	// Email is the user's email address, unique across all accounts.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
