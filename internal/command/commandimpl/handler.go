package commandimpl

import (
	"context"
	"errors"
	"runtime/debug"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/orgball2608/storyshare/internal/authflow"
	"github.com/panjf2000/ants/v2"
)

const helpMessage = `👋 Welcome to StoryShare!

Stories disappear 24 hours after you post them.

ACCOUNT:
/signup - Create an account (or sign in if you already have one).
/login - Sign in with your email and password.
/logout - Sign out of this chat.
/profile [username] - Show your profile or someone else's.
/editprofile - Change your username or avatar.
/cancel - Stop the current sign-in or profile step.

STORIES:
Send a photo or video to preview it, then tap Share or Retake.
/caption <text> - Set the caption of the pending preview.
/feed - Show everyone's active stories.
/mystories - List your stories, including expired ones.
/delete <id> - Delete one of your stories.

Type /help at any time to see this guide.`

const releaseTimeout = 5 * time.Second

func (c *CommandImpl) HandleCommand(ctx context.Context) error {
	pool, err := ants.NewPool(c.workers)
	if err != nil {
		return err
	}
	defer func() {
		if err := pool.ReleaseTimeout(releaseTimeout); err != nil {
			c.Logger.Warn("Worker pool did not drain in time", "error", err)
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := c.Telegram.GetUpdatesChan(u)
	c.Logger.Info("Command handler started, listening for updates.", "workers", c.workers)

	for {
		select {
		case <-ctx.Done():
			c.Logger.Info("Command handler shutting down.")
			c.Telegram.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				c.Logger.Warn("Telegram updates channel closed unexpectedly. Restarting handler...")
				return errors.New("telegram updates channel closed")
			}

			if err := pool.Submit(func() { c.processUpdate(ctx, update) }); err != nil {
				c.Logger.Error("Failed to dispatch update", "updateID", update.UpdateID, "error", err)
			}
		}
	}
}

func (c *CommandImpl) processUpdate(ctx context.Context, u tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			c.Logger.Error("Panic recovered while processing an update", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if u.CallbackQuery != nil {
		c.handleCallback(ctx, u.CallbackQuery)
		return
	}
	if u.Message == nil {
		return
	}

	msg := u.Message
	chatID := msg.Chat.ID
	if !c.Limiter.Allow(strconv.FormatInt(chatID, 10)) {
		c.reply(chatID, "You're going too fast. Please wait a moment and try again.")
		return
	}

	st := c.chats.get(chatID)
	st.mu.Lock()
	defer st.mu.Unlock()

	c.Logger.Debug("Message received", "chatID", chatID, "command", msg.Command())

	var err error
	switch {
	case msg.IsCommand():
		err = c.processCommand(ctx, st, msg)
	case st.flow != nil && !st.flow.Done():
		err = c.continueFlow(ctx, st, msg)
	case hasMedia(msg):
		err = c.handleMedia(ctx, st, msg)
	default:
		c.reply(chatID, "Send a photo or video to start a story, or type /help.")
	}
	if err != nil {
		c.Logger.Error("Error processing message",
			"chatID", chatID,
			"command", msg.Command(),
			"error", err)
		c.reply(chatID, userNotice(err))
	}
}

func (c *CommandImpl) processCommand(ctx context.Context, st *chat, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := msg.CommandArguments()

	switch msg.Command() {
	case "start", "help":
		c.reply(chatID, helpMessage)
		return nil
	case "signup":
		return c.startFlow(st, chatID, authflow.New())
	case "login":
		return c.startFlow(st, chatID, authflow.NewAt(authflow.LogIn))
	case "logout":
		return c.handleLogout(ctx, st, chatID)
	case "editprofile":
		if _, err := c.currentUser(ctx, st); err != nil {
			return err
		}
		return c.startFlow(st, chatID, authflow.NewAt(authflow.CollectProfile))
	case "profile":
		return c.handleProfile(ctx, st, chatID, args)
	case "feed":
		return c.handleFeed(ctx, st, chatID)
	case "mystories":
		return c.handleMyStories(ctx, st, chatID)
	case "delete":
		return c.handleDelete(ctx, st, chatID, args)
	case "caption":
		return c.handleCaption(st, chatID, args)
	case "cancel":
		st.flow = nil
		c.reply(chatID, "Cancelled.")
		return nil
	default:
		c.reply(chatID, "Unknown command. Type /help to see the list of available commands.")
		return nil
	}
}

// reply sends text and only logs failures; the caller has nothing left to do.
func (c *CommandImpl) reply(chatID int64, text string) {
	if _, err := c.Telegram.SendMessage(chatID, text); err != nil {
		c.Logger.Warn("Failed to reply", "chatID", chatID, "error", err)
	}
}
