// Package channels is an in-memory chat board implementing the channel
// collaborator the notifier drives. It backs local runs and tests.
package channels

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/exambot/internal/domain/notify"
)

// MessageView is a read-only copy of a board message.
type MessageView struct {
	ID       string    `json:"id"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	Pinned   bool      `json:"pinned"`
	PostedAt time.Time `json:"postedAt"`
}

// Board holds named channels. All methods are safe for concurrent use.
type Board struct {
	mu         sync.RWMutex
	self       string
	channels   map[string]*channel
	autoCreate bool
	now        func() time.Time
}

// NewBoard creates a board where self is the bot's author identity.
func NewBoard(self string, opts ...Option) *Board {
	b := &Board{
		self:     self,
		channels: make(map[string]*channel),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Create adds empty channels, leaving existing ones untouched.
func (b *Board) Create(names ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range names {
		if _, ok := b.channels[n]; !ok {
			b.channels[n] = &channel{board: b, name: n}
		}
	}
}

// Names lists channel names in order.
func (b *Board) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.channels))
	for n := range b.channels {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Find implements notify.ChannelDirectory.
func (b *Board) Find(ctx context.Context, name string) (notify.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	ch, ok := b.channels[name]
	b.mu.RUnlock()
	if ok {
		return ch, nil
	}
	if !b.autoCreate {
		return nil, fmt.Errorf("%q: %w", name, notify.ErrChannelNotFound)
	}
	b.Create(name)
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.channels[name], nil
}

// Say posts a message as another author.
func (b *Board) Say(name, author, text string) error {
	b.mu.RLock()
	ch, ok := b.channels[name]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%q: %w", name, notify.ErrChannelNotFound)
	}
	ch.post(author, text)
	return nil
}

// Messages returns a copy of a channel's messages, oldest first.
func (b *Board) Messages(name string) ([]MessageView, error) {
	b.mu.RLock()
	ch, ok := b.channels[name]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, notify.ErrChannelNotFound)
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	out := make([]MessageView, 0, len(ch.messages))
	for _, m := range ch.messages {
		out = append(out, MessageView{ID: m.id, Author: m.author, Text: m.text, Pinned: m.pinned, PostedAt: m.at})
	}
	return out, nil
}

type channel struct {
	board    *Board
	name     string
	mu       sync.Mutex
	messages []*message
}

type message struct {
	ch     *channel
	id     string
	author string
	text   string
	pinned bool
	at     time.Time
}

func (c *channel) Name() string { return c.name }

func (c *channel) ListOwnMessages(ctx context.Context) ([]notify.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []notify.Message
	for _, m := range c.messages {
		if m.author == c.board.self {
			out = append(out, m)
		}
	}
	return out, nil
}

func (c *channel) Post(ctx context.Context, text string) (notify.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.post(c.board.self, text), nil
}

func (c *channel) post(author, text string) *message {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := &message{ch: c, id: uuid.NewString(), author: author, text: text, at: c.board.now()}
	c.messages = append(c.messages, m)
	return m
}

func (m *message) ID() string { return m.id }

// Delete removes the message. Deleting a message that is already gone is not
// an error, matching chat APIs that treat deletes as idempotent.
func (m *message) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.ch.mu.Lock()
	defer m.ch.mu.Unlock()
	for i, x := range m.ch.messages {
		if x == m {
			m.ch.messages = append(m.ch.messages[:i], m.ch.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *message) Pin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.ch.mu.Lock()
	defer m.ch.mu.Unlock()
	for _, x := range m.ch.messages {
		if x == m {
			m.pinned = true
			return nil
		}
	}
	return fmt.Errorf("pin %s: %w", m.id, ErrMessageGone)
}
