package publishimpl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/orgball2608/storyshare/internal/publish"
	"github.com/orgball2608/storyshare/internal/repositories/profile"
	"github.com/orgball2608/storyshare/internal/repositories/story"
	"github.com/orgball2608/storyshare/internal/storage"
	"github.com/orgball2608/storyshare/pkg/errors"
	"github.com/orgball2608/storyshare/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Store      storage.ObjectStore
	Stories    story.Repository
	Profiles   profile.Repository
	Logger     logger.Logger
	Clock      clockwork.Clock
	Registerer prometheus.Registerer
}

type PublishImpl struct {
	store    storage.ObjectStore
	stories  story.Repository
	profiles profile.Repository
	clock    clockwork.Clock
	logger   logger.Logger
	metrics  *metrics
}

var _ publish.Pipeline = (*PublishImpl)(nil)

func New(opts Opts) (*PublishImpl, error) {
	m, err := newMetrics(opts.Registerer)
	if err != nil {
		return nil, err
	}

	return &PublishImpl{
		store:    opts.Store,
		stories:  opts.Stories,
		profiles: opts.Profiles,
		clock:    opts.Clock,
		logger:   opts.Logger.WithComponent("Publish"),
		metrics:  m,
	}, nil
}

func storyKey(owner uuid.UUID, now time.Time, contentType string) string {
	return fmt.Sprintf("%s/story-%d-%s%s", owner, now.UnixMilli(), uuid.New(), domain.Extension(contentType))
}

func avatarKey(owner uuid.UUID, now time.Time, contentType string) string {
	return fmt.Sprintf("avatar-%s-%d%s", owner, now.UnixMilli(), domain.Extension(contentType))
}

func (p *PublishImpl) Publish(ctx context.Context, media domain.CapturedMedia, owner uuid.UUID, caption string) (*domain.Story, error) {
	// A publish the caller walks away from still runs to completion.
	ctx = context.WithoutCancel(ctx)

	data, contentType, err := encode(media)
	if err != nil {
		p.metrics.published.WithLabelValues(resultInvalidMedia).Inc()
		return nil, err
	}

	now := p.clock.Now()
	key := storyKey(owner, now, contentType)
	if err := p.store.Put(ctx, storage.BucketStories, key, data, contentType); err != nil {
		p.metrics.published.WithLabelValues(resultUploadError).Inc()
		p.logger.Warn("Story upload failed", "Owner", owner, "Key", key, "Error", err)
		return nil, errors.WrapWithCode(err, errors.CodeUpload, "failed to upload story")
	}

	kind := media.Kind
	if kind == "" {
		kind = domain.KindForContentType(contentType)
	}
	record := domain.Story{
		ID:        uuid.New(),
		UserID:    owner,
		ImageURL:  key,
		MediaKind: kind,
		Caption:   strings.TrimSpace(caption),
		CreatedAt: now,
		ExpiresAt: now.Add(domain.StoryTTL),
	}
	if err := p.stories.Create(ctx, record); err != nil {
		p.metrics.published.WithLabelValues(resultRecordError).Inc()
		p.metrics.orphaned.Inc()
		p.logger.Error("Story record failed, object left orphaned",
			"Owner", owner,
			"Bucket", storage.BucketStories,
			"Key", key,
			"Error", err)
		return nil, errors.WrapWithCode(err, errors.CodeRecord, "failed to save story")
	}

	p.metrics.published.WithLabelValues(resultOK).Inc()
	p.logger.Info("Story published", "Owner", owner, "StoryID", record.ID, "Kind", record.MediaKind)
	return &record, nil
}

func (p *PublishImpl) UpdateProfile(ctx context.Context, owner uuid.UUID, update domain.ProfileUpdate) (*domain.Profile, error) {
	ctx = context.WithoutCancel(ctx)

	username := strings.TrimSpace(update.Username)
	if username == "" {
		return nil, errors.NewWithCode(errors.CodeInvalidInput, "username is required")
	}

	now := p.clock.Now()
	current, err := p.profiles.Get(ctx, owner)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		current = &domain.Profile{ID: owner, CreatedAt: now}
	case err != nil:
		return nil, errors.WrapWithCode(err, errors.CodeRecord, "failed to load profile")
	}

	next := *current
	next.Username = username
	if email := strings.TrimSpace(update.Email); email != "" {
		next.Email = email
	}
	if update.Avatar != nil {
		next.AvatarURL = p.publishAvatar(ctx, owner, username, *update.Avatar, now)
	}

	if err := p.profiles.Upsert(ctx, next); err != nil {
		if errors.Is(err, profile.ErrAlreadyExists) {
			return nil, errors.WrapWithCode(err, errors.CodeInvalidInput, "username is already taken")
		}
		return nil, errors.WrapWithCode(err, errors.CodeRecord, "failed to save profile")
	}

	p.logger.Info("Profile saved", "Owner", owner, "Username", username)
	return &next, nil
}

// publishAvatar returns the storage key of the uploaded avatar, or the
// placeholder avatar for username when the upload fails.
func (p *PublishImpl) publishAvatar(ctx context.Context, owner uuid.UUID, username string, media domain.CapturedMedia, now time.Time) string {
	data, contentType, err := encode(media)
	if err == nil {
		key := avatarKey(owner, now, contentType)
		if err = p.store.Put(ctx, storage.BucketAvatars, key, data, contentType); err == nil {
			return key
		}
	}

	p.metrics.avatarFallbacks.Inc()
	p.logger.Warn("Avatar upload failed, using placeholder", "Owner", owner, "Error", err)
	return domain.PlaceholderAvatar(username)
}
