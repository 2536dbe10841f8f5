package types

import "time"

// Report is the metadata record for a stored report artifact. The report
// body itself lives in object storage; this row only points at it.
type Report struct {
	ID int `json:"id" db:"id"`

	// UserID references the owning user.
	UserID int `json:"-" db:"user_id"`

	// GCSURL is the locator (path or URL) of the stored artifact.
	GCSURL string `json:"gcs_url" db:"gcs_url"`

	// FileName is the display name of the originally uploaded file.
	FileName string `json:"file_name" db:"file_name"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
