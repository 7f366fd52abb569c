package commandimpl

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/orgball2608/storyshare/pkg/errors"
	"github.com/orgball2608/storyshare/pkg/formatter"
)

// feedPageSize caps how many stories one /feed sends.
const feedPageSize = 10

func (c *CommandImpl) handleFeed(ctx context.Context, st *chat, chatID int64) error {
	viewer, err := c.currentUser(ctx, st)
	if err != nil {
		return err
	}
	items, err := c.Feed.ListActiveStories(ctx, viewer)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		c.reply(chatID, "No active stories right now. Be the first: send a photo or video!")
		return nil
	}

	if len(items) > feedPageSize {
		c.reply(chatID, fmt.Sprintf("Showing the %d newest of %d active stories.", feedPageSize, len(items)))
		items = items[:feedPageSize]
	}

	now := c.Clock.Now()
	for _, item := range items {
		caption := storyCaption(item, now)
		keyboard := storyKeyboard(item)
		if err := c.Telegram.SendMediaByURL(chatID, item.MediaURL, item.MediaKind, caption, &keyboard); err != nil {
			// the disk store's URLs are often unreachable for Telegram
			c.Logger.Warn("Failed to send story media, falling back to link", "storyID", item.ID, "error", err)
			if _, err := c.Telegram.SendWithKeyboard(chatID, caption+"\n"+item.MediaURL, keyboard); err != nil {
				c.Logger.Error("Failed to send story", "storyID", item.ID, "error", err)
			}
		}
	}
	return nil
}

func storyCaption(item domain.FeedItem, now time.Time) string {
	var b strings.Builder
	author := item.AuthorUsername
	if author == "" {
		author = "unknown"
	}
	fmt.Fprintf(&b, "@%s", author)
	if item.Caption != "" {
		fmt.Fprintf(&b, ": %s", item.Caption)
	}
	fmt.Fprintf(&b, "\n♥ %s  💬 %s  ⏳ %s",
		formatter.FormatCount(item.LikeCount),
		formatter.FormatCount(item.CommentCount),
		formatter.FormatRemaining(now, item.ExpiresAt))
	return b.String()
}

func storyKeyboard(item domain.FeedItem) tgbotapi.InlineKeyboardMarkup {
	row := []tgbotapi.InlineKeyboardButton{
		button("♥ Like", callbackData{Action: actionLike, ID: item.ID.String()}),
	}
	if item.Deletable {
		row = append(row, button("🗑 Delete", callbackData{Action: actionDelete, ID: item.ID.String()}))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func (c *CommandImpl) handleMyStories(ctx context.Context, st *chat, chatID int64) error {
	owner, err := c.currentUser(ctx, st)
	if err != nil {
		return err
	}
	items, err := c.Feed.ListOwnStories(ctx, owner)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		c.reply(chatID, "You haven't shared any stories yet.")
		return nil
	}

	now := c.Clock.Now()
	var b strings.Builder
	fmt.Fprintf(&b, "*Your stories* \\(%d\\)\n", len(items))
	for _, item := range items {
		caption := item.Caption
		if caption == "" {
			caption = string(item.MediaKind)
		}
		fmt.Fprintf(&b, "\n`%s`\n%s · ♥ %s · %s\n",
			item.ID,
			formatter.EscapeMarkdownV2(caption),
			formatter.FormatCount(item.LikeCount),
			formatter.EscapeMarkdownV2(formatter.FormatRemaining(now, item.ExpiresAt)))
	}
	b.WriteString("\nDelete one with /delete followed by its id\\.")
	_, err = c.Telegram.SendMarkdown(chatID, b.String())
	return err
}

func (c *CommandImpl) handleDelete(ctx context.Context, st *chat, chatID int64, args string) error {
	id, err := uuid.Parse(strings.TrimSpace(args))
	if err != nil {
		c.reply(chatID, "Please provide a story id: /delete <id>. See /mystories for ids.")
		return nil
	}
	if err := c.deleteStory(ctx, st, id); err != nil {
		return err
	}
	c.reply(chatID, "Story deleted.")
	return nil
}

func (c *CommandImpl) deleteStory(ctx context.Context, st *chat, id uuid.UUID) error {
	owner, err := c.currentUser(ctx, st)
	if err != nil {
		return err
	}
	return c.Feed.DeleteStory(ctx, owner, id)
}

func (c *CommandImpl) likeStory(ctx context.Context, st *chat, id uuid.UUID) error {
	viewer, err := c.currentUser(ctx, st)
	if err != nil {
		return err
	}
	return c.Feed.Like(ctx, viewer, id)
}

func (c *CommandImpl) handleProfile(ctx context.Context, st *chat, chatID int64, args string) error {
	username := strings.TrimPrefix(strings.TrimSpace(args), "@")

	var (
		profile *domain.Profile
		own     bool
		err     error
	)
	if username == "" {
		var id uuid.UUID
		if id, err = c.currentUser(ctx, st); err != nil {
			return err
		}
		own = true
		profile, err = c.Feed.GetProfile(ctx, id)
		if errors.IsNotFound(err) {
			c.reply(chatID, "You don't have a profile yet. Use /editprofile to create one.")
			return nil
		}
	} else {
		profile, err = c.Feed.FindProfile(ctx, username)
	}
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*@%s*\n", formatter.EscapeMarkdownV2(profile.Username))
	if own && profile.Email != "" {
		fmt.Fprintf(&b, "%s\n", formatter.EscapeMarkdownV2(profile.Email))
	}
	fmt.Fprintf(&b, "Joined %s\n", formatter.EscapeMarkdownV2(profile.CreatedAt.Format("2 Jan 2006")))
	if profile.AvatarURL != "" {
		fmt.Fprintf(&b, "[Avatar](%s)", escapeLinkURL(profile.AvatarURL))
	}
	_, err = c.Telegram.SendMarkdown(chatID, strings.TrimRight(b.String(), "\n"))
	return err
}

// escapeLinkURL escapes the two characters MarkdownV2 reserves inside (...).
func escapeLinkURL(u string) string {
	return strings.NewReplacer(`\`, `\\`, ")", `\)`).Replace(u)
}
