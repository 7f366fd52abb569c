package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/orgball2608/storyshare/internal/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=telegram.go -destination=mocks/mock.go
type Client interface {
	GetUpdatesChan(u tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()

	SendMessage(chatID int64, text string) (int, error)
	SendMarkdown(chatID int64, text string) (int, error)
	SendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (int, error)
	EditMessageText(chatID int64, messageID int, newText string) error
	DeleteMessage(chatID int64, messageID int) error
	AnswerCallback(callbackID, text string) error

	// SendMedia sends uploaded bytes back to a chat, e.g. a preview.
	SendMedia(chatID int64, media domain.CapturedMedia, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error)
	// SendMediaByURL lets Telegram fetch a public URL itself.
	SendMediaByURL(chatID int64, url string, kind domain.MediaKind, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) error

	DownloadFile(ctx context.Context, fileID string) ([]byte, error)

	// SendMessageToAdmin notifies the operator chat. Failures are logged only.
	SendMessageToAdmin(msg string)
}
