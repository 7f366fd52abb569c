package publishimpl

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/orgball2608/storyshare/internal/repositories/profile"
	mock_profile "github.com/orgball2608/storyshare/internal/repositories/profile/mocks"
	mock_story "github.com/orgball2608/storyshare/internal/repositories/story/mocks"
	"github.com/orgball2608/storyshare/internal/storage"
	"github.com/orgball2608/storyshare/internal/storage/fsstore"
	mock_storage "github.com/orgball2608/storyshare/internal/storage/mocks"
	"github.com/orgball2608/storyshare/pkg/errors"
	"github.com/orgball2608/storyshare/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	photo = domain.CapturedMedia{Kind: domain.MediaPhoto, ContentType: domain.ContentTypeJPEG, Data: []byte{0xFF, 0xD8, 0xFF}}
)

type fixture struct {
	pipeline *PublishImpl
	store    *mock_storage.MockObjectStore
	stories  *mock_story.MockRepository
	profiles *mock_profile.MockRepository
	clock    *clockwork.FakeClock
}

func newFixture(t *testing.T, store storage.ObjectStore) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		store:    mock_storage.NewMockObjectStore(ctrl),
		stories:  mock_story.NewMockRepository(ctrl),
		profiles: mock_profile.NewMockRepository(ctrl),
		clock:    clockwork.NewFakeClockAt(start),
	}
	if store == nil {
		store = f.store
	}
	p, err := New(Opts{
		Store:      store,
		Stories:    f.stories,
		Profiles:   f.profiles,
		Logger:     logger.Nop(),
		Clock:      f.clock,
		Registerer: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	f.pipeline = p
	return f
}

func TestPublish_StoredObjectIsRetrievable(t *testing.T) {
	store, err := fsstore.New(t.TempDir(), "http://localhost")
	require.NoError(t, err)
	f := newFixture(t, store)
	owner := uuid.New()

	var created domain.Story
	f.stories.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, s domain.Story) error {
			created = s
			return nil
		})

	got, err := f.pipeline.Publish(context.Background(), photo, owner, "  sunset ")

	require.NoError(t, err)
	assert.Equal(t, created, *got)
	assert.Equal(t, owner, got.UserID)
	assert.Equal(t, "sunset", got.Caption)
	assert.Equal(t, domain.MediaPhoto, got.MediaKind)
	assert.Regexp(t, regexp.MustCompile(fmt.Sprintf(`^%s/story-%d-[0-9a-f-]{36}\.jpg$`, owner, start.UnixMilli())), got.ImageURL)

	data, ct, err := store.Get(context.Background(), storage.BucketStories, got.ImageURL)
	require.NoError(t, err)
	assert.Equal(t, photo.Data, data)
	assert.Equal(t, "image/jpeg", ct)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.pipeline.metrics.published.WithLabelValues(resultOK)))
}

func TestPublish_ExpiresExactlyOneDayLater(t *testing.T) {
	f := newFixture(t, nil)
	f.store.EXPECT().Put(gomock.Any(), storage.BucketStories, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)
	f.stories.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	for _, step := range []time.Duration{0, 1234 * time.Millisecond, 13 * time.Hour} {
		f.clock.Advance(step)
		got, err := f.pipeline.Publish(context.Background(), photo, uuid.New(), "")
		require.NoError(t, err)
		assert.Equal(t, f.clock.Now(), got.CreatedAt)
		assert.Equal(t, 24*time.Hour, got.ExpiresAt.Sub(got.CreatedAt))
	}
}

func TestPublish_UploadFailureCreatesNoRecord(t *testing.T) {
	f := newFixture(t, nil)
	f.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(fmt.Errorf("network down")).Times(1)
	// no Create expectation: any record write fails the test

	_, err := f.pipeline.Publish(context.Background(), photo, uuid.New(), "")

	assert.True(t, errors.IsUpload(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.pipeline.metrics.published.WithLabelValues(resultUploadError)))
}

func TestPublish_EmptyMedia(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.pipeline.Publish(context.Background(), domain.CapturedMedia{Kind: domain.MediaPhoto}, uuid.New(), "")

	assert.True(t, errors.IsInvalidInput(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.pipeline.metrics.published.WithLabelValues(resultInvalidMedia)))
}

func TestPublish_MalformedDataURIIsClientError(t *testing.T) {
	f := newFixture(t, nil)
	media := domain.CapturedMedia{Kind: domain.MediaPhoto, URI: "data:image/png;base64,@@@"}

	_, err := f.pipeline.Publish(context.Background(), media, uuid.New(), "")

	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.False(t, errors.IsUpload(err))
}

func TestPublish_RecordFailureOrphansObject(t *testing.T) {
	f := newFixture(t, nil)
	f.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.stories.EXPECT().Create(gomock.Any(), gomock.Any()).Return(fmt.Errorf("db down"))

	_, err := f.pipeline.Publish(context.Background(), photo, uuid.New(), "")

	assert.True(t, errors.IsRecord(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.pipeline.metrics.orphaned))
}

func TestPublish_DataURIVideo(t *testing.T) {
	f := newFixture(t, nil)
	media := domain.CapturedMedia{URI: "data:video/webm;base64,AAEC"}
	f.store.EXPECT().Put(gomock.Any(), storage.BucketStories, gomock.Any(), []byte{0, 1, 2}, "video/webm").
		DoAndReturn(func(_ context.Context, _, key string, _ []byte, _ string) error {
			assert.Regexp(t, `\.webm$`, key)
			return nil
		})
	f.stories.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	got, err := f.pipeline.Publish(context.Background(), media, uuid.New(), "")

	require.NoError(t, err)
	assert.Equal(t, domain.MediaVideo, got.MediaKind)
}

func TestPublish_OutlivesCallerCancellation(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _ string, _ []byte, _ string) error {
			return ctx.Err()
		})
	f.stories.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ domain.Story) error {
			return ctx.Err()
		})

	_, err := f.pipeline.Publish(ctx, photo, uuid.New(), "")

	assert.NoError(t, err)
}

func TestUpdateProfile_AvatarFailureFallsBackToPlaceholder(t *testing.T) {
	f := newFixture(t, nil)
	owner := uuid.New()
	f.profiles.EXPECT().Get(gomock.Any(), owner).Return(nil, profile.ErrNotFound)
	f.store.EXPECT().Put(gomock.Any(), storage.BucketAvatars, gomock.Any(), gomock.Any(), gomock.Any()).Return(fmt.Errorf("quota exceeded"))
	f.profiles.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil)

	got, err := f.pipeline.UpdateProfile(context.Background(), owner, domain.ProfileUpdate{
		Username: "alice",
		Avatar:   &domain.CapturedMedia{ContentType: "image/png", Data: []byte("png")},
	})

	require.NoError(t, err)
	assert.Equal(t, "https://api.dicebear.com/7.x/avataaars/svg?seed=alice", got.AvatarURL)
	assert.Equal(t, start, got.CreatedAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.pipeline.metrics.avatarFallbacks))
}

func TestUpdateProfile_UploadsAvatar(t *testing.T) {
	f := newFixture(t, nil)
	owner := uuid.New()
	f.profiles.EXPECT().Get(gomock.Any(), owner).Return(nil, profile.ErrNotFound)
	wantKey := fmt.Sprintf("avatar-%s-%d.png", owner, start.UnixMilli())
	f.store.EXPECT().Put(gomock.Any(), storage.BucketAvatars, wantKey, []byte("png"), "image/png").Return(nil)
	f.profiles.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil)

	got, err := f.pipeline.UpdateProfile(context.Background(), owner, domain.ProfileUpdate{
		Username: "bob",
		Avatar:   &domain.CapturedMedia{ContentType: "image/png", Data: []byte("png")},
	})

	require.NoError(t, err)
	assert.Equal(t, wantKey, got.AvatarURL)
}

func TestUpdateProfile_KeepsCreatedAtAndAvatar(t *testing.T) {
	f := newFixture(t, nil)
	owner := uuid.New()
	existing := &domain.Profile{ID: owner, Username: "old", AvatarURL: "avatar-x.png", Email: "a@b.io", CreatedAt: start.Add(-48 * time.Hour)}
	f.profiles.EXPECT().Get(gomock.Any(), owner).Return(existing, nil)
	f.profiles.EXPECT().Upsert(gomock.Any(), domain.Profile{
		ID: owner, Username: "new", AvatarURL: "avatar-x.png", Email: "a@b.io", CreatedAt: existing.CreatedAt,
	}).Return(nil)

	got, err := f.pipeline.UpdateProfile(context.Background(), owner, domain.ProfileUpdate{Username: " new "})

	require.NoError(t, err)
	assert.Equal(t, "new", got.Username)
}

func TestUpdateProfile_Errors(t *testing.T) {
	f := newFixture(t, nil)
	owner := uuid.New()

	_, err := f.pipeline.UpdateProfile(context.Background(), owner, domain.ProfileUpdate{Username: "  "})
	assert.True(t, errors.IsInvalidInput(err))

	f.profiles.EXPECT().Get(gomock.Any(), owner).Return(nil, profile.ErrNotFound).Times(2)
	f.profiles.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(profile.ErrAlreadyExists)
	_, err = f.pipeline.UpdateProfile(context.Background(), owner, domain.ProfileUpdate{Username: "taken"})
	assert.True(t, errors.IsInvalidInput(err))

	f.profiles.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(fmt.Errorf("db down"))
	_, err = f.pipeline.UpdateProfile(context.Background(), owner, domain.ProfileUpdate{Username: "carol"})
	assert.True(t, errors.IsRecord(err))
}
