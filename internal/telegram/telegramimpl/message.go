package telegramimpl

import (
	"context"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/orgball2608/storyshare/pkg/logger"
)

// maxDownloadSize is the Bot API limit for getFile downloads.
const maxDownloadSize = 20 << 20

func (tg *TelegramImpl) GetUpdatesChan(u tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return tg.TgBot.GetUpdatesChan(u)
}

func (tg *TelegramImpl) StopReceivingUpdates() {
	tg.TgBot.StopReceivingUpdates()
}

// SendMessage sends a plain text message to a specific chat ID
func (tg *TelegramImpl) SendMessage(chatID int64, text string) (int, error) {
	return tg.send(chatID, tgbotapi.NewMessage(chatID, text))
}

// SendMarkdown sends a MarkdownV2 message. Callers escape user content.
func (tg *TelegramImpl) SendMarkdown(chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	return tg.send(chatID, msg)
}

func (tg *TelegramImpl) SendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	return tg.send(chatID, msg)
}

func (tg *TelegramImpl) send(chatID int64, c tgbotapi.Chattable) (int, error) {
	sentMsg, err := tg.TgBot.Send(c)
	if err != nil {
		tg.Logger.Error("Error sending message",
			"chatID", chatID,
			"error", err)
		return 0, fmt.Errorf("failed to send message: %w", err)
	}

	tg.Logger.Debug("Message sent",
		"chatID", chatID,
		"messageID", sentMsg.MessageID)
	return sentMsg.MessageID, nil
}

func (tg *TelegramImpl) EditMessageText(chatID int64, messageID int, newText string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, newText)
	if _, err := tg.TgBot.Request(edit); err != nil {
		tg.Logger.Error("Error editing message", "chatID", chatID, "messageID", messageID, "error", err)
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

func (tg *TelegramImpl) DeleteMessage(chatID int64, messageID int) error {
	if _, err := tg.TgBot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges a button press so the client stops the spinner
func (tg *TelegramImpl) AnswerCallback(callbackID, text string) error {
	// Request instead of Send: the answer is a bool, not a Message
	if _, err := tg.TgBot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

func (tg *TelegramImpl) SendMedia(chatID int64, media domain.CapturedMedia, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error) {
	file := tgbotapi.FileBytes{
		Name:  "media" + domain.Extension(media.ContentType),
		Bytes: media.Data,
	}
	return tg.send(chatID, mediaMessage(chatID, file, media.Kind, media.ContentType, caption, keyboard))
}

func (tg *TelegramImpl) SendMediaByURL(chatID int64, url string, kind domain.MediaKind, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	_, err := tg.send(chatID, mediaMessage(chatID, tgbotapi.FileURL(url), kind, "", caption, keyboard))
	return err
}

func mediaMessage(chatID int64, file tgbotapi.RequestFileData, kind domain.MediaKind, contentType, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) tgbotapi.Chattable {
	var markup interface{}
	if keyboard != nil {
		markup = *keyboard
	}

	switch {
	case kind == domain.MediaPhoto:
		msg := tgbotapi.NewPhoto(chatID, file)
		msg.Caption = caption
		msg.ReplyMarkup = markup
		return msg
	case contentType == domain.ContentTypeMJPEG:
		// Telegram cannot play motion JPEG, ship it as a document
		msg := tgbotapi.NewDocument(chatID, file)
		msg.Caption = caption
		msg.ReplyMarkup = markup
		return msg
	default:
		msg := tgbotapi.NewVideo(chatID, file)
		msg.Caption = caption
		msg.ReplyMarkup = markup
		return msg
	}
}

// DownloadFile fetches a file a user sent to the bot.
func (tg *TelegramImpl) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := tg.TgBot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := tg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer safeClose(resp.Body, tg.Logger)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("file exceeds %d bytes", maxDownloadSize)
	}
	return data, nil
}

// SendMessageToAdmin sends a text message to the configured admin chat
func (tg *TelegramImpl) SendMessageToAdmin(message string) {
	if tg.Config.Telegram.Admin == 0 {
		return
	}
	msg := tgbotapi.NewMessage(tg.Config.Telegram.Admin, message)
	if _, err := tg.TgBot.Send(msg); err != nil {
		tg.Logger.Error("Error sending message to admin",
			"adminID", tg.Config.Telegram.Admin,
			"error", err)
		return
	}

	tg.Logger.Info("Message sent to admin",
		"adminID", tg.Config.Telegram.Admin)
}

// safeClose safely closes an io.ReadCloser and logs any errors
func safeClose(closer io.ReadCloser, logger logger.Logger) {
	if err := closer.Close(); err != nil {
		logger.Error("Error closing response body", "error", err)
	}
}
