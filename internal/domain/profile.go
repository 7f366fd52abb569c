package domain

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

const placeholderAvatarBase = "https://api.dicebear.com/7.x/avataaars/svg"

type Profile struct {
	ID        uuid.UUID
	Username  string
	AvatarURL string
	Email     string
	CreatedAt time.Time
}

// ProfileUpdate carries an edit from a client. Avatar is optional.
type ProfileUpdate struct {
	Username string
	Email    string
	Avatar   *CapturedMedia
}

// PlaceholderAvatar returns the deterministic avatar image for a handle.
func PlaceholderAvatar(seed string) string {
	return placeholderAvatarBase + "?seed=" + url.QueryEscape(seed)
}
