package commandimpl

import (
	"sync"

	"github.com/orgball2608/storyshare/internal/authflow"
	"github.com/orgball2608/storyshare/internal/preview"
)

// chat is everything the bot remembers about one conversation. Updates for
// the same chat are handled under mu, one at a time.
type chat struct {
	mu sync.Mutex

	token string
	// flow is non-nil while a sign-in, sign-up or profile conversation runs.
	flow    *authflow.Flow
	preview *preview.Buffer
}

type chats struct {
	mu    sync.Mutex
	items map[int64]*chat
}

func newChats() *chats {
	return &chats{items: make(map[int64]*chat)}
}

func (c *chats) get(id int64) *chat {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.items[id]
	if !ok {
		ch = &chat{preview: preview.New()}
		c.items[id] = ch
	}
	return ch
}
