package chat

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned when a send is already in flight for a conversation.
var ErrBusy = errors.New("a message is already being sent in this conversation")

// Conversation is an ordered chat history bound to one completer.
// Only one Send may be in flight at a time; a failed Send leaves the
// history untouched.
type Conversation struct {
	completer Completer

	mu       sync.Mutex
	messages []Message
	sending  bool
	// gen is bumped by Reset so an in-flight Send does not write into the
	// cleared history.
	gen uint64
}

func NewConversation(c Completer) *Conversation {
	return &Conversation{completer: c, messages: make([]Message, 0)}
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Reset clears the history. It does not interrupt an in-flight send, but
// that send's turns are not recorded.
func (c *Conversation) Reset() {
	c.mu.Lock()
	c.messages = c.messages[:0]
	c.gen++
	c.mu.Unlock()
}

// Send appends text as a user turn, asks the completer with contextText
// injected, and records both turns once the reply arrives. The stored user
// turn keeps the original text; context is only part of the request.
func (c *Conversation) Send(ctx context.Context, text, contextText string) (Message, error) {
	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return Message{}, ErrBusy
	}
	c.sending = true
	gen := c.gen
	history := make([]Message, len(c.messages), len(c.messages)+1)
	copy(history, c.messages)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.sending = false
		c.mu.Unlock()
	}()

	user := Message{Role: RoleUser, Content: text}
	request := Assemble(append(history, user), contextText)

	reply, err := c.completer.Complete(ctx, request)
	if err != nil {
		return Message{}, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.messages = append(c.messages, user, reply)
	}
	c.mu.Unlock()

	return reply, nil
}
