package commandimpl

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/orgball2608/storyshare/internal/authflow"
)

const (
	actionShare  = "share"
	actionRetake = "retake"
	actionLike   = "like"
	actionDelete = "del"
	actionSwitch = "switch"
	actionAck    = "ack"
)

// callbackData is the JSON carried by inline buttons. Telegram caps it at
// 64 bytes, which fits an action and one uuid.
type callbackData struct {
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
}

func button(text string, data callbackData) tgbotapi.InlineKeyboardButton {
	raw, _ := json.Marshal(data)
	return tgbotapi.NewInlineKeyboardButtonData(text, string(raw))
}

func singleButton(text string, data callbackData) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(button(text, data)))
}

func previewKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		button("✅ Share", callbackData{Action: actionShare}),
		button("🔄 Retake", callbackData{Action: actionRetake}),
	))
}

func (c *CommandImpl) handleCallback(ctx context.Context, callbackQuery *tgbotapi.CallbackQuery) {
	answer := ""
	defer func() {
		if r := recover(); r != nil {
			c.Logger.Error("Panic recovered while processing a callback", "panic", r, "stack", string(debug.Stack()))
		}
		// always acknowledge so the button stops spinning
		if err := c.Telegram.AnswerCallback(callbackQuery.ID, answer); err != nil {
			c.Logger.Warn("Failed to answer callback", "error", err)
		}
	}()

	if callbackQuery.Message == nil || callbackQuery.Message.Chat == nil {
		return
	}
	chatID := callbackQuery.Message.Chat.ID

	var data callbackData
	if err := json.Unmarshal([]byte(callbackQuery.Data), &data); err != nil {
		c.Logger.Error("Failed to unmarshal callback data", "error", err)
		return
	}

	if !c.Limiter.Allow(strconv.FormatInt(chatID, 10)) {
		answer = "Too many requests, slow down."
		return
	}

	st := c.chats.get(chatID)
	st.mu.Lock()
	defer st.mu.Unlock()

	var err error
	switch data.Action {
	case actionShare:
		answer, err = c.shareStory(ctx, st, chatID)
	case actionRetake:
		answer = c.retake(st, chatID)
	case actionLike:
		err = c.withStoryID(data.ID, func(id uuid.UUID) error { return c.likeStory(ctx, st, id) })
		answer = "♥ Liked"
	case actionDelete:
		err = c.withStoryID(data.ID, func(id uuid.UUID) error { return c.deleteStory(ctx, st, id) })
		answer = "Deleted"
	case actionSwitch, actionAck:
		err = c.advanceFlow(st, chatID, data.Action)
	default:
		c.Logger.Warn("Unknown callback action", "action", data.Action)
	}

	if err != nil {
		c.Logger.Error("Error processing callback", "chatID", chatID, "action", data.Action, "error", err)
		answer = ""
		c.reply(chatID, userNotice(err))
	}
}

func (c *CommandImpl) withStoryID(raw string, fn func(uuid.UUID) error) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		return err
	}
	return fn(id)
}

func (c *CommandImpl) advanceFlow(st *chat, chatID int64, action string) error {
	if st.flow == nil {
		c.reply(chatID, "That step has already finished. Type /help to see what you can do.")
		return nil
	}
	event := authflow.Switch
	if action == actionAck {
		event = authflow.Acknowledged
	}
	if err := st.flow.Fire(event); err != nil {
		// a stale button; repeat the current step instead
		c.Logger.Warn("Ignoring out-of-order auth step", "chatID", chatID, "error", err)
	}
	return c.promptStage(chatID, st.flow.Stage())
}
