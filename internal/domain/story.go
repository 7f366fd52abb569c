package domain

import (
	"time"

	"github.com/google/uuid"
)

// StoryTTL is the visibility window of every published story.
const StoryTTL = 24 * time.Hour

type Story struct {
	ID     uuid.UUID
	UserID uuid.UUID
	// ImageURL is the storage key inside the stories bucket, not a public URL.
	ImageURL  string
	MediaKind MediaKind
	Caption   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ActiveAt reports whether the story is still visible at now. A story whose
// expiry equals now is already expired.
func (s Story) ActiveAt(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

// StoryWithAuthor is a story row joined with its author profile and counters.
type StoryWithAuthor struct {
	Story
	AuthorUsername  string
	AuthorAvatarURL string
	LikeCount       int64
	CommentCount    int64
}

// FeedItem is what a client renders for one story.
type FeedItem struct {
	StoryWithAuthor
	MediaURL string
	// Deletable is true only for the viewer's own stories.
	Deletable bool
}
