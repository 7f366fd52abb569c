package commandimpl

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/orgball2608/storyshare/internal/capture"
	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/orgball2608/storyshare/internal/preview"
	"github.com/orgball2608/storyshare/pkg/errors"
	"github.com/orgball2608/storyshare/pkg/formatter"
)

func hasMedia(msg *tgbotapi.Message) bool {
	return len(msg.Photo) > 0 || msg.Video != nil || msg.Document != nil
}

// downloadMedia is the picker route: whatever the user attached becomes
// captured media.
func (c *CommandImpl) downloadMedia(ctx context.Context, msg *tgbotapi.Message) (domain.CapturedMedia, error) {
	var fileID, contentType string
	switch {
	case len(msg.Photo) > 0:
		// sizes are ascending, Telegram always re-encodes photos as JPEG
		fileID = msg.Photo[len(msg.Photo)-1].FileID
		contentType = domain.ContentTypeJPEG
	case msg.Video != nil:
		fileID, contentType = msg.Video.FileID, msg.Video.MimeType
	case msg.Document != nil:
		fileID, contentType = msg.Document.FileID, msg.Document.MimeType
	default:
		return domain.CapturedMedia{}, errors.NewWithCode(errors.CodeInvalidInput, "Send a photo or a video.")
	}

	data, err := c.Telegram.DownloadFile(ctx, fileID)
	if err != nil {
		return domain.CapturedMedia{}, errors.WrapWithCode(err, errors.CodeAcquisition, "Could not fetch the file you sent.")
	}
	return capture.FromFile(contentType, data)
}

func (c *CommandImpl) handleMedia(ctx context.Context, st *chat, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	if _, err := c.currentUser(ctx, st); err != nil {
		return err
	}

	media, err := c.downloadMedia(ctx, msg)
	if err != nil {
		return err
	}
	if err := st.preview.Hold(media); err != nil {
		if errors.Is(err, preview.ErrOccupied) {
			c.reply(chatID, "You already have a story waiting. Tap Share or Retake on it first.")
			return nil
		}
		return err
	}
	if msg.Caption != "" {
		if err := st.preview.SetCaption(msg.Caption); err != nil {
			return err
		}
	}

	keyboard := previewKeyboard()
	_, err = c.Telegram.SendMedia(chatID, media, previewCaption(media, msg.Caption), &keyboard)
	return err
}

func previewCaption(media domain.CapturedMedia, caption string) string {
	text := fmt.Sprintf("Preview (%s, %s bytes). Use /caption to change the caption.", media.Kind, formatter.FormatCount(int64(len(media.Data))))
	if caption != "" {
		text = caption + "\n\n" + text
	}
	return text
}

func (c *CommandImpl) handleCaption(st *chat, chatID int64, caption string) error {
	if err := st.preview.SetCaption(caption); err != nil {
		if errors.Is(err, preview.ErrEmpty) {
			c.reply(chatID, "Nothing to caption yet. Send a photo or video first.")
			return nil
		}
		return err
	}
	if caption == "" {
		c.reply(chatID, "Caption cleared.")
		return nil
	}
	c.reply(chatID, "Caption set.")
	return nil
}

// shareStory publishes the pending preview. A failed publish is not retried:
// the user has to send the media again.
func (c *CommandImpl) shareStory(ctx context.Context, st *chat, chatID int64) (string, error) {
	owner, err := c.currentUser(ctx, st)
	if err != nil {
		return "", err
	}
	media, caption, err := st.preview.Consume()
	if err != nil {
		if errors.Is(err, preview.ErrEmpty) {
			return "Nothing to share.", nil
		}
		return "", err
	}

	story, err := c.Publish.Publish(ctx, media, owner, caption)
	if err != nil {
		return "", err
	}
	c.reply(chatID, fmt.Sprintf("Shared! Your story is live for the next %s.", formatter.FormatRemaining(c.Clock.Now(), story.ExpiresAt)))
	return "Shared", nil
}

func (c *CommandImpl) retake(st *chat, chatID int64) string {
	if err := st.preview.Discard(); err != nil {
		return "Nothing to retake."
	}
	c.reply(chatID, "Discarded. Send another photo or video.")
	return "Discarded"
}
