package commandimpl

import (
	"context"
	"fmt"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyshare/internal/authflow"
	"github.com/orgball2608/storyshare/internal/domain"
	mock_feed "github.com/orgball2608/storyshare/internal/feed/mocks"
	"github.com/orgball2608/storyshare/internal/identity"
	mock_identity "github.com/orgball2608/storyshare/internal/identity/mocks"
	mock_publish "github.com/orgball2608/storyshare/internal/publish/mocks"
	"github.com/orgball2608/storyshare/internal/ratelimit"
	mock_telegram "github.com/orgball2608/storyshare/internal/telegram/mocks"
	"github.com/orgball2608/storyshare/pkg/errors"
	"github.com/orgball2608/storyshare/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
)

const chatID int64 = 42

var jpeg = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

type fixture struct {
	bot      *CommandImpl
	tg       *mock_telegram.MockClient
	identity *mock_identity.MockService
	publish  *mock_publish.MockPipeline
	feed     *mock_feed.MockService
	clock    *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		tg:       mock_telegram.NewMockClient(ctrl),
		identity: mock_identity.NewMockService(ctrl),
		publish:  mock_publish.NewMockPipeline(ctrl),
		feed:     mock_feed.NewMockService(ctrl),
		clock:    clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
	}
	f.bot = New(Opts{
		Telegram: f.tg,
		Identity: f.identity,
		Publish:  f.publish,
		Feed:     f.feed,
		Limiter:  ratelimit.NewInMemoryLimiter(1000, time.Second, 1000),
		Logger:   logger.Nop(),
		Clock:    f.clock,
	})
	return f
}

// signIn puts a session on the chat and lets every lookup resolve to owner.
func (f *fixture) signIn(owner uuid.UUID) {
	f.bot.chats.get(chatID).token = "tok"
	f.identity.EXPECT().CurrentUser(gomock.Any(), "tok").Return(owner, nil).AnyTimes()
}

func commandUpdate(text string) tgbotapi.Update {
	end := len(text)
	for i, r := range text {
		if r == ' ' {
			end = i
			break
		}
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: end}},
	}}
}

func textUpdate(id int, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{MessageID: id, Chat: &tgbotapi.Chat{ID: chatID}, Text: text}}
}

func photoUpdate(caption string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 7,
		Chat:      &tgbotapi.Chat{ID: chatID},
		Caption:   caption,
		Photo:     []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
	}}
}

func callbackUpdate(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 9, Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func cb(action, id string) string {
	return fmt.Sprintf(`{"action":%q,"id":%q}`, action, id)
}

func TestHelp(t *testing.T) {
	f := newFixture(t)
	f.tg.EXPECT().SendMessage(chatID, helpMessage).Return(1, nil)

	f.bot.processUpdate(context.Background(), commandUpdate("/help"))
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)
	f.tg.EXPECT().SendMessage(chatID, gomock.Any()).Return(1, nil)

	f.bot.processUpdate(context.Background(), commandUpdate("/dance"))
}

func TestSignup_FallsBackToSignUpThenCollectsProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	f.tg.EXPECT().SendWithKeyboard(chatID, credentialsPrompt, gomock.Any()).Return(1, nil)
	f.bot.processUpdate(ctx, commandUpdate("/signup"))

	f.tg.EXPECT().DeleteMessage(chatID, 2).Return(nil)
	f.identity.EXPECT().SignIn(gomock.Any(), "a@b.co", "secret1").Return(nil, errors.NewWithCode(errors.CodeAuth, "invalid login credentials"))
	f.identity.EXPECT().SignUp(gomock.Any(), "a@b.co", "secret1").Return(&domain.Credentials{UserID: owner, Token: "tok"}, nil)
	f.tg.EXPECT().SendWithKeyboard(chatID, gomock.Any(), singleButton("Continue", callbackData{Action: actionAck})).Return(2, nil)
	f.bot.processUpdate(ctx, textUpdate(2, "a@b.co secret1"))

	st := f.bot.chats.get(chatID)
	assert.Equal(t, "tok", st.token)
	assert.Equal(t, authflow.AwaitConfirmation, st.flow.Stage())

	f.tg.EXPECT().SendMessage(chatID, profilePrompt).Return(3, nil)
	f.tg.EXPECT().AnswerCallback("cb", "").Return(nil)
	f.bot.processUpdate(ctx, callbackUpdate(cb(actionAck, "")))
	assert.Equal(t, authflow.CollectProfile, st.flow.Stage())

	f.identity.EXPECT().CurrentUser(gomock.Any(), "tok").Return(owner, nil)
	f.publish.EXPECT().UpdateProfile(gomock.Any(), owner, domain.ProfileUpdate{Username: "alice"}).
		Return(&domain.Profile{ID: owner, Username: "alice"}, nil)
	f.tg.EXPECT().SendMessage(chatID, "Profile saved. Welcome, @alice!").Return(4, nil)
	f.bot.processUpdate(ctx, textUpdate(4, "@alice"))

	assert.Nil(t, st.flow)
}

func TestSignup_ExistingAccountWrongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bot.chats.get(chatID).flow = authflow.New()

	signInErr := errors.NewWithCode(errors.CodeAuth, "invalid login credentials")
	f.tg.EXPECT().DeleteMessage(chatID, 2).Return(nil)
	f.identity.EXPECT().SignIn(gomock.Any(), "a@b.co", "wrong12").Return(nil, signInErr)
	f.identity.EXPECT().SignUp(gomock.Any(), "a@b.co", "wrong12").
		Return(nil, errors.WrapWithCode(identity.ErrEmailTaken, errors.CodeAuth, "an account with this email already exists"))
	f.tg.EXPECT().SendMessage(chatID, "invalid login credentials").Return(3, nil)

	f.bot.processUpdate(ctx, textUpdate(2, "a@b.co wrong12"))

	st := f.bot.chats.get(chatID)
	assert.Empty(t, st.token)
	assert.Equal(t, authflow.CollectCredentials, st.flow.Stage())
}

func TestLogin_NeverSignsUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.tg.EXPECT().SendWithKeyboard(chatID, loginPrompt, gomock.Any()).Return(1, nil)
	f.bot.processUpdate(ctx, commandUpdate("/login"))

	f.tg.EXPECT().DeleteMessage(chatID, 2).Return(nil)
	f.identity.EXPECT().SignIn(gomock.Any(), "a@b.co", "nope123").Return(nil, errors.NewWithCode(errors.CodeAuth, "invalid login credentials"))
	f.tg.EXPECT().SendMessage(chatID, "invalid login credentials").Return(3, nil)
	f.bot.processUpdate(ctx, textUpdate(2, "a@b.co nope123"))

	f.tg.EXPECT().DeleteMessage(chatID, 3).Return(nil)
	f.identity.EXPECT().SignIn(gomock.Any(), "a@b.co", "right12").Return(&domain.Credentials{Token: "tok"}, nil)
	f.tg.EXPECT().SendMessage(chatID, gomock.Any()).Return(4, nil)
	f.bot.processUpdate(ctx, textUpdate(3, "a@b.co right12"))

	st := f.bot.chats.get(chatID)
	assert.Equal(t, "tok", st.token)
	assert.Nil(t, st.flow)
}

func TestSwitchButtonTogglesLogin(t *testing.T) {
	f := newFixture(t)
	f.bot.chats.get(chatID).flow = authflow.New()

	f.tg.EXPECT().SendWithKeyboard(chatID, loginPrompt, gomock.Any()).Return(1, nil)
	f.tg.EXPECT().AnswerCallback("cb", "").Return(nil)

	f.bot.processUpdate(context.Background(), callbackUpdate(cb(actionSwitch, "")))

	assert.Equal(t, authflow.LogIn, f.bot.chats.get(chatID).flow.Stage())
}

func TestMedia_RequiresSignIn(t *testing.T) {
	f := newFixture(t)
	f.tg.EXPECT().SendMessage(chatID, errors.GetMessage(errSignedOut)).Return(1, nil)

	f.bot.processUpdate(context.Background(), photoUpdate(""))
}

func TestMedia_PreviewShare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	f.signIn(owner)
	want := domain.CapturedMedia{Kind: domain.MediaPhoto, ContentType: domain.ContentTypeJPEG, Data: jpeg}

	f.tg.EXPECT().DownloadFile(gomock.Any(), "large").Return(jpeg, nil).Times(2)
	f.tg.EXPECT().SendMedia(chatID, want, gomock.Any(), gomock.Any()).Return(10, nil)
	f.bot.processUpdate(ctx, photoUpdate("sunset"))

	// a second capture does not replace the pending one
	f.tg.EXPECT().SendMessage(chatID, "You already have a story waiting. Tap Share or Retake on it first.").Return(11, nil)
	f.bot.processUpdate(ctx, photoUpdate("other"))

	f.publish.EXPECT().Publish(gomock.Any(), want, owner, "sunset").
		Return(&domain.Story{ID: uuid.New(), ExpiresAt: f.clock.Now().Add(24 * time.Hour)}, nil)
	f.tg.EXPECT().SendMessage(chatID, "Shared! Your story is live for the next 24h 0m.").Return(12, nil)
	f.tg.EXPECT().AnswerCallback("cb", "Shared").Return(nil)
	f.bot.processUpdate(ctx, callbackUpdate(cb(actionShare, "")))

	// the buffer is empty again
	f.tg.EXPECT().AnswerCallback("cb", "Nothing to share.").Return(nil)
	f.bot.processUpdate(ctx, callbackUpdate(cb(actionShare, "")))
}

func TestMedia_UploadFailureNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(uuid.New())

	f.tg.EXPECT().DownloadFile(gomock.Any(), "large").Return(jpeg, nil)
	f.tg.EXPECT().SendMedia(chatID, gomock.Any(), gomock.Any(), gomock.Any()).Return(10, nil)
	f.bot.processUpdate(ctx, photoUpdate(""))

	f.publish.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), "").
		Return(nil, errors.WrapWithCode(fmt.Errorf("timeout"), errors.CodeUpload, "failed to upload story"))
	f.tg.EXPECT().SendMessage(chatID, userNotice(errors.NewWithCode(errors.CodeUpload, ""))).Return(11, nil)
	f.tg.EXPECT().AnswerCallback("cb", "").Return(nil)
	f.bot.processUpdate(ctx, callbackUpdate(cb(actionShare, "")))
}

func TestMedia_RetakeAndCaption(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(uuid.New())

	f.tg.EXPECT().SendMessage(chatID, "Nothing to caption yet. Send a photo or video first.").Return(1, nil)
	f.bot.processUpdate(ctx, commandUpdate("/caption hi"))

	f.tg.EXPECT().DownloadFile(gomock.Any(), "large").Return(jpeg, nil)
	f.tg.EXPECT().SendMedia(chatID, gomock.Any(), gomock.Any(), gomock.Any()).Return(2, nil)
	f.bot.processUpdate(ctx, photoUpdate(""))

	f.tg.EXPECT().SendMessage(chatID, "Caption set.").Return(3, nil)
	f.bot.processUpdate(ctx, commandUpdate("/caption golden hour"))
	_, caption, _ := peekCaption(f.bot.chats.get(chatID))
	assert.Equal(t, "golden hour", caption)

	f.tg.EXPECT().SendMessage(chatID, "Discarded. Send another photo or video.").Return(4, nil)
	f.tg.EXPECT().AnswerCallback("cb", "Discarded").Return(nil)
	f.bot.processUpdate(ctx, callbackUpdate(cb(actionRetake, "")))

	_, ok := f.bot.chats.get(chatID).preview.Peek()
	assert.False(t, ok)
}

// peekCaption consumes the pending preview and puts it back.
func peekCaption(st *chat) (domain.CapturedMedia, string, error) {
	media, caption, err := st.preview.Consume()
	if err != nil {
		return media, caption, err
	}
	if err := st.preview.Hold(media); err != nil {
		return media, caption, err
	}
	return media, caption, st.preview.SetCaption(caption)
}

func TestFeed_FallsBackToLink(t *testing.T) {
	f := newFixture(t)
	viewer := uuid.New()
	f.signIn(viewer)
	item := domain.FeedItem{
		StoryWithAuthor: domain.StoryWithAuthor{
			Story: domain.Story{
				ID:        uuid.New(),
				UserID:    viewer,
				MediaKind: domain.MediaPhoto,
				Caption:   "beach",
				ExpiresAt: f.clock.Now().Add(90 * time.Minute),
			},
			AuthorUsername: "alice",
			LikeCount:      1500,
		},
		MediaURL:  "http://localhost:8080/media/stories/k.jpg",
		Deletable: true,
	}
	f.feed.EXPECT().ListActiveStories(gomock.Any(), viewer).Return([]domain.FeedItem{item}, nil)

	wantCaption := "@alice: beach\n♥ 1.5K  💬 0  ⏳ 1h 30m"
	kb := storyKeyboard(item)
	f.tg.EXPECT().SendMediaByURL(chatID, item.MediaURL, domain.MediaPhoto, wantCaption, &kb).Return(fmt.Errorf("wrong file identifier"))
	f.tg.EXPECT().SendWithKeyboard(chatID, wantCaption+"\n"+item.MediaURL, kb).Return(1, nil)

	f.bot.processUpdate(context.Background(), commandUpdate("/feed"))

	require.Len(t, kb.InlineKeyboard[0], 2)
}

func TestFeed_Empty(t *testing.T) {
	f := newFixture(t)
	f.signIn(uuid.New())
	f.feed.EXPECT().ListActiveStories(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.tg.EXPECT().SendMessage(chatID, gomock.Any()).Return(1, nil)

	f.bot.processUpdate(context.Background(), commandUpdate("/feed"))
}

func TestLikeCallback(t *testing.T) {
	f := newFixture(t)
	viewer, story := uuid.New(), uuid.New()
	f.signIn(viewer)
	f.feed.EXPECT().Like(gomock.Any(), viewer, story).Return(nil)
	f.tg.EXPECT().AnswerCallback("cb", "♥ Liked").Return(nil)

	f.bot.processUpdate(context.Background(), callbackUpdate(cb(actionLike, story.String())))
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, story := uuid.New(), uuid.New()
	f.signIn(owner)

	f.tg.EXPECT().SendMessage(chatID, gomock.Any()).Return(1, nil)
	f.bot.processUpdate(ctx, commandUpdate("/delete not-an-id"))

	f.feed.EXPECT().DeleteStory(gomock.Any(), owner, story).Return(nil)
	f.tg.EXPECT().SendMessage(chatID, "Story deleted.").Return(2, nil)
	f.bot.processUpdate(ctx, commandUpdate("/delete "+story.String()))

	f.feed.EXPECT().DeleteStory(gomock.Any(), owner, story).Return(errors.NewWithCode(errors.CodeNotFound, "story not found"))
	f.tg.EXPECT().SendMessage(chatID, "Not found. It may have been deleted.").Return(3, nil)
	f.bot.processUpdate(ctx, commandUpdate("/delete "+story.String()))
}

func TestProfile_Other(t *testing.T) {
	f := newFixture(t)
	f.feed.EXPECT().FindProfile(gomock.Any(), "bob").Return(&domain.Profile{
		Username:  "bob",
		Email:     "bob@example.com",
		AvatarURL: "https://example.com/a.png",
		CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}, nil)
	f.tg.EXPECT().SendMarkdown(chatID, "*@bob*\nJoined 2 Jan 2024\n[Avatar](https://example.com/a.png)").Return(1, nil)

	f.bot.processUpdate(context.Background(), commandUpdate("/profile @bob"))
}

func TestLogout_RevokesSession(t *testing.T) {
	f := newFixture(t)
	f.bot.chats.get(chatID).token = "tok"
	f.identity.EXPECT().SignOut(gomock.Any(), "tok").Return(nil)
	f.tg.EXPECT().SendMessage(chatID, "Signed out.").Return(1, nil)

	f.bot.processUpdate(context.Background(), commandUpdate("/logout"))

	assert.Empty(t, f.bot.chats.get(chatID).token)
}

func TestExpiredSessionIsDropped(t *testing.T) {
	f := newFixture(t)
	f.bot.chats.get(chatID).token = "old"
	f.identity.EXPECT().CurrentUser(gomock.Any(), "old").Return(uuid.Nil, errors.NewWithCode(errors.CodeAuth, "session expired"))
	f.tg.EXPECT().SendMessage(chatID, "Your session has expired. Use /login to sign in again.").Return(1, nil)

	f.bot.processUpdate(context.Background(), commandUpdate("/mystories"))

	assert.Empty(t, f.bot.chats.get(chatID).token)
}

func TestRateLimited(t *testing.T) {
	f := newFixture(t)
	f.bot.Limiter = ratelimit.NewInMemoryLimiter(1, time.Hour, 1)
	f.tg.EXPECT().SendMessage(chatID, helpMessage).Return(1, nil)
	f.tg.EXPECT().SendMessage(chatID, "You're going too fast. Please wait a moment and try again.").Return(2, nil)

	f.bot.processUpdate(context.Background(), commandUpdate("/help"))
	f.bot.processUpdate(context.Background(), commandUpdate("/help"))
}

func TestUserNotice(t *testing.T) {
	cases := map[string]error{
		"bad password":                            errors.NewWithCode(errors.CodeAuth, "bad password"),
		"Could not fetch the file you sent.":      errors.NewWithCode(errors.CodeAcquisition, "Could not fetch the file you sent."),
		"You can only change your own stories.":   errors.NewWithCode(errors.CodeForbidden, "nope"),
		"Something went wrong. Please try again.": fmt.Errorf("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, userNotice(err))
	}
}

// antsDefaultPool ignores the workers of ants' package level pool, which is
// started on import and lives for the whole test binary.
var antsDefaultPool = []goleak.Option{
	goleak.IgnoreAnyFunction("github.com/panjf2000/ants/v2.(*poolCommon).purgeStaleWorkers"),
	goleak.IgnoreAnyFunction("github.com/panjf2000/ants/v2.(*poolCommon).ticktock"),
}

func TestHandleCommand_DispatchesUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, antsDefaultPool...)

	f := newFixture(t)
	updates := make(chan tgbotapi.Update, 1)
	handled := make(chan struct{})
	f.tg.EXPECT().GetUpdatesChan(gomock.Any()).Return(tgbotapi.UpdatesChannel(updates))
	f.tg.EXPECT().SendMessage(chatID, helpMessage).DoAndReturn(func(int64, string) (int, error) {
		close(handled)
		return 1, nil
	})
	f.tg.EXPECT().StopReceivingUpdates()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.bot.HandleCommand(ctx) }()

	updates <- commandUpdate("/start")
	<-handled
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestHandleCommand_ClosedChannel(t *testing.T) {
	f := newFixture(t)
	updates := make(chan tgbotapi.Update)
	close(updates)
	f.tg.EXPECT().GetUpdatesChan(gomock.Any()).Return(tgbotapi.UpdatesChannel(updates))

	err := f.bot.HandleCommand(context.Background())

	assert.EqualError(t, err, "telegram updates channel closed")
}
