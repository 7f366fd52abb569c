package telegramimpl

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaMessage_PicksSendMethod(t *testing.T) {
	file := tgbotapi.FileBytes{Name: "m", Bytes: []byte("x")}
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("ok", "ok")))

	photo, ok := mediaMessage(1, file, domain.MediaPhoto, "image/jpeg", "cap", &kb).(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, "cap", photo.Caption)
	assert.Equal(t, kb, photo.ReplyMarkup)

	_, ok = mediaMessage(1, file, domain.MediaVideo, domain.ContentTypeMJPEG, "", nil).(tgbotapi.DocumentConfig)
	assert.True(t, ok)

	video, ok := mediaMessage(1, file, domain.MediaVideo, "video/mp4", "", nil).(tgbotapi.VideoConfig)
	require.True(t, ok)
	assert.Nil(t, video.ReplyMarkup)
}
