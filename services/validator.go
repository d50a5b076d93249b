package services

import (
	"errors"
	"log"

	"creator-progress-system/models"
)

// ErrInvalidAward marks a malformed award request. These indicate a
// programming bug in a caller, not a user action failure — handlers log and
// swallow them rather than surfacing an error to the end user.
var ErrInvalidAward = errors.New("invalid award request")

// ValidateAward is a safety net in front of the calculator, not a security
// boundary: callers are trusted internal components, never network clients.
func ValidateAward(req models.AwardRequest) error {
	if req.UserID == "" {
		log.Printf("🚫 [AWARD] rejected: missing user_id (source_id=%q)", req.SourceID)
		return ErrInvalidAward
	}
	if req.SourceID == "" {
		log.Printf("🚫 [AWARD] rejected: missing source_id (user=%s)", req.UserID)
		return ErrInvalidAward
	}
	if req.PointsDelta < 0 {
		log.Printf("🚫 [AWARD] rejected: negative delta %d (user=%s, source=%s)",
			req.PointsDelta, req.UserID, req.SourceID)
		return ErrInvalidAward
	}
	return nil
}
