package feedimpl

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/orgball2608/storyshare/internal/feed"
	"github.com/orgball2608/storyshare/internal/repositories/profile"
	"github.com/orgball2608/storyshare/internal/repositories/story"
	"github.com/orgball2608/storyshare/internal/storage"
	"github.com/orgball2608/storyshare/pkg/errors"
	"github.com/orgball2608/storyshare/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Stories  story.Repository
	Profiles profile.Repository
	Store    storage.ObjectStore
	Logger   logger.Logger
	Clock    clockwork.Clock
}

type FeedImpl struct {
	stories  story.Repository
	profiles profile.Repository
	store    storage.ObjectStore
	logger   logger.Logger
	clock    clockwork.Clock
}

var _ feed.Service = (*FeedImpl)(nil)

func New(opts Opts) *FeedImpl {
	return &FeedImpl{
		stories:  opts.Stories,
		profiles: opts.Profiles,
		store:    opts.Store,
		logger:   opts.Logger.WithComponent("Feed"),
		clock:    opts.Clock,
	}
}

func (f *FeedImpl) ListActiveStories(ctx context.Context, viewer uuid.UUID) ([]domain.FeedItem, error) {
	now := f.clock.Now()
	rows, err := f.stories.ListActive(ctx, now)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeRecord, "failed to load feed")
	}

	items := make([]domain.FeedItem, 0, len(rows))
	for _, row := range rows {
		// a row expiring exactly now is already expired
		if !row.ActiveAt(now) {
			continue
		}
		items = append(items, f.item(row, viewer))
	}
	return items, nil
}

func (f *FeedImpl) ListOwnStories(ctx context.Context, owner uuid.UUID) ([]domain.FeedItem, error) {
	rows, err := f.stories.ListByOwner(ctx, owner)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeRecord, "failed to load stories")
	}

	items := make([]domain.FeedItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, f.item(row, owner))
	}
	return items, nil
}

func (f *FeedImpl) item(row domain.StoryWithAuthor, viewer uuid.UUID) domain.FeedItem {
	row.AuthorAvatarURL = f.avatarURL(row.AuthorAvatarURL, row.AuthorUsername)
	return domain.FeedItem{
		StoryWithAuthor: row,
		MediaURL:        f.store.PublicURL(storage.BucketStories, row.ImageURL),
		Deletable:       viewer != uuid.Nil && viewer == row.UserID,
	}
}

// avatarURL turns a stored avatar reference into something a client can load.
// It is either an external URL already, a key in the avatars bucket, or empty.
func (f *FeedImpl) avatarURL(ref, username string) string {
	switch {
	case ref == "":
		return domain.PlaceholderAvatar(username)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref
	default:
		return f.store.PublicURL(storage.BucketAvatars, ref)
	}
}

func (f *FeedImpl) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	p, err := f.profiles.Get(ctx, id)
	return f.profile(p, err)
}

func (f *FeedImpl) FindProfile(ctx context.Context, username string) (*domain.Profile, error) {
	p, err := f.profiles.GetByUsername(ctx, strings.TrimPrefix(strings.TrimSpace(username), "@"))
	return f.profile(p, err)
}

func (f *FeedImpl) profile(p *domain.Profile, err error) (*domain.Profile, error) {
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, errors.WrapWithCode(err, errors.CodeNotFound, "profile not found")
		}
		return nil, errors.WrapWithCode(err, errors.CodeRecord, "failed to load profile")
	}
	out := *p
	out.AvatarURL = f.avatarURL(p.AvatarURL, p.Username)
	return &out, nil
}

func (f *FeedImpl) DeleteStory(ctx context.Context, owner, id uuid.UUID) error {
	if err := f.stories.Delete(ctx, owner, id); err != nil {
		switch {
		case errors.Is(err, story.ErrNotFound):
			return errors.WrapWithCode(err, errors.CodeNotFound, "story not found")
		case errors.Is(err, story.ErrNotOwner):
			return errors.WrapWithCode(err, errors.CodeForbidden, "only the author can delete a story")
		}
		return errors.WrapWithCode(err, errors.CodeRecord, "failed to delete story")
	}
	f.logger.Info("Story deleted", "Owner", owner, "StoryID", id)
	return nil
}

func (f *FeedImpl) Like(ctx context.Context, viewer, storyID uuid.UUID) error {
	if err := f.stories.Like(ctx, storyID, viewer); err != nil {
		if errors.Is(err, story.ErrNotFound) {
			return errors.WrapWithCode(err, errors.CodeNotFound, "story not found")
		}
		return errors.WrapWithCode(err, errors.CodeRecord, "failed to like story")
	}
	return nil
}
