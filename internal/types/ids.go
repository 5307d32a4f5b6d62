package types

import (
	"github.com/google/uuid"
)

// NewResponseID generates a UUIDv7 response identifier.
// Time-ordered IDs ensure sequential inserts cluster in B-tree pages.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewResponseID() ResponseID {
	return ResponseID(uuid.Must(uuid.NewV7()).String())
}

// NewSurveyID generates a UUIDv7 survey identifier.
func NewSurveyID() SurveyID {
	return SurveyID(uuid.Must(uuid.NewV7()).String())
}

// ParseResponseID validates and converts a string to ResponseID.
// Rejects malformed UUIDs to prevent invalid IDs from reaching the database.
func ParseResponseID(s string) (ResponseID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return ResponseID(s), nil
}
