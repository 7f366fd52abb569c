package commandimpl

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/orgball2608/storyshare/internal/authflow"
	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/orgball2608/storyshare/internal/identity"
	"github.com/orgball2608/storyshare/pkg/errors"
)

const (
	credentialsPrompt = "Send your email and password separated by a space.\nNo account yet? One is created for you."
	loginPrompt       = "Log in: send your email and password separated by a space."
	profilePrompt     = "Send the username you want. To add an avatar, send a photo with the username as its caption."
)

var errSignedOut = errors.NewWithCode(errors.CodeAuth, "You are not signed in. Use /login or /signup first.")

// currentUser resolves the chat's session. A stale token is dropped so the
// next command asks for a fresh sign-in.
func (c *CommandImpl) currentUser(ctx context.Context, st *chat) (uuid.UUID, error) {
	if st.token == "" {
		return uuid.Nil, errSignedOut
	}
	id, err := c.Identity.CurrentUser(ctx, st.token)
	if err != nil {
		if errors.IsAuth(err) {
			st.token = ""
			return uuid.Nil, errors.WrapWithCode(err, errors.CodeAuth, "Your session has expired. Use /login to sign in again.")
		}
		return uuid.Nil, err
	}
	return id, nil
}

func (c *CommandImpl) startFlow(st *chat, chatID int64, flow *authflow.Flow) error {
	st.flow = flow
	return c.promptStage(chatID, flow.Stage())
}

func (c *CommandImpl) promptStage(chatID int64, stage authflow.Stage) error {
	var err error
	switch stage {
	case authflow.CollectCredentials:
		_, err = c.Telegram.SendWithKeyboard(chatID, credentialsPrompt, singleButton("I already have an account", callbackData{Action: actionSwitch}))
	case authflow.LogIn:
		_, err = c.Telegram.SendWithKeyboard(chatID, loginPrompt, singleButton("Create an account instead", callbackData{Action: actionSwitch}))
	case authflow.AwaitConfirmation:
		_, err = c.Telegram.SendWithKeyboard(chatID, "Account created! Tap Continue to set up your profile.", singleButton("Continue", callbackData{Action: actionAck}))
	case authflow.CollectProfile:
		_, err = c.Telegram.SendMessage(chatID, profilePrompt)
	}
	return err
}

// continueFlow feeds a plain message into the running auth conversation.
func (c *CommandImpl) continueFlow(ctx context.Context, st *chat, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID

	switch st.flow.Stage() {
	case authflow.CollectCredentials, authflow.LogIn:
		// the message holds a password; keep it out of the chat history
		if err := c.Telegram.DeleteMessage(chatID, msg.MessageID); err != nil {
			c.Logger.Warn("Failed to delete credentials message", "chatID", chatID, "error", err)
		}
		email, password, ok := parseCredentials(msg.Text)
		if !ok {
			return c.promptStage(chatID, st.flow.Stage())
		}
		return c.submitCredentials(ctx, st, chatID, email, password)
	case authflow.AwaitConfirmation:
		return c.promptStage(chatID, authflow.AwaitConfirmation)
	case authflow.CollectProfile:
		return c.submitProfile(ctx, st, msg)
	}
	return nil
}

func parseCredentials(text string) (email, password string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return "", "", false
	}
	return fields[0], fields[1], true
}

// submitCredentials signs in. On the sign-up path a failed sign-in falls back
// to creating the account.
func (c *CommandImpl) submitCredentials(ctx context.Context, st *chat, chatID int64, email, password string) error {
	creds, err := c.Identity.SignIn(ctx, email, password)
	if err == nil {
		st.token = creds.Token
		if err := st.flow.Fire(authflow.SignedIn); err != nil {
			return err
		}
		st.flow = nil
		c.reply(chatID, "Signed in. Send a photo or video to share a story, or /feed to see what's new.")
		return nil
	}
	if st.flow.Stage() == authflow.LogIn || !errors.IsAuth(err) {
		return err
	}

	creds, signUpErr := c.Identity.SignUp(ctx, email, password)
	if signUpErr != nil {
		if errors.Is(signUpErr, identity.ErrEmailTaken) {
			// the account exists, so the password was wrong
			return err
		}
		return signUpErr
	}

	st.token = creds.Token
	if err := st.flow.Fire(authflow.SignedUp); err != nil {
		return err
	}
	c.Logger.Info("Account created from chat", "chatID", chatID, "userID", creds.UserID)
	return c.promptStage(chatID, st.flow.Stage())
}

func (c *CommandImpl) submitProfile(ctx context.Context, st *chat, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	owner, err := c.currentUser(ctx, st)
	if err != nil {
		st.flow = nil
		return err
	}

	update := domain.ProfileUpdate{Username: strings.TrimPrefix(strings.TrimSpace(msg.Text+msg.Caption), "@")}
	if update.Username == "" {
		return c.promptStage(chatID, authflow.CollectProfile)
	}
	if hasMedia(msg) {
		avatar, err := c.downloadMedia(ctx, msg)
		if err != nil {
			return err
		}
		update.Avatar = &avatar
	}

	profile, err := c.Publish.UpdateProfile(ctx, owner, update)
	if err != nil {
		return err
	}
	if err := st.flow.Fire(authflow.ProfileSaved); err != nil {
		return err
	}
	st.flow = nil
	c.reply(chatID, fmt.Sprintf("Profile saved. Welcome, @%s!", profile.Username))
	return nil
}

func (c *CommandImpl) handleLogout(ctx context.Context, st *chat, chatID int64) error {
	if st.token == "" {
		c.reply(chatID, "You are not signed in.")
		return nil
	}
	token := st.token
	st.token = ""
	st.flow = nil
	_ = st.preview.Discard()

	// an expired or already revoked session still counts as signed out
	if err := c.Identity.SignOut(ctx, token); err != nil && !errors.IsAuth(err) {
		return err
	}
	c.reply(chatID, "Signed out.")
	return nil
}
