package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	mu      sync.Mutex
	calls   [][]Message
	reply   Message
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeCompleter) Complete(_ context.Context, messages []Message) (Message, error) {
	f.mu.Lock()
	f.calls = append(f.calls, messages)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return f.reply, f.err
}

func TestConversationSendRecordsTurns(t *testing.T) {
	fc := &fakeCompleter{reply: Message{Role: RoleAssistant, Content: "done"}}
	conv := NewConversation(fc)

	reply, err := conv.Send(context.Background(), "summarize", "Notes (note)\n\nbody")
	require.NoError(t, err)
	assert.Equal(t, "done", reply.Content)

	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "summarize"},
		{Role: RoleAssistant, Content: "done"},
	}, conv.Messages())

	require.Len(t, fc.calls, 1)
	sent := fc.calls[0]
	require.Len(t, sent, 2)
	assert.Equal(t, RoleSystem, sent[0].Role)
	assert.Equal(t, InjectContext("Notes (note)\n\nbody", "summarize"), sent[1].Content)
}

func TestConversationFailureLeavesHistory(t *testing.T) {
	fc := &fakeCompleter{reply: Message{Role: RoleAssistant, Content: "first"}}
	conv := NewConversation(fc)
	_, err := conv.Send(context.Background(), "one", "")
	require.NoError(t, err)

	fc.err = errors.New("upstream down")
	_, err = conv.Send(context.Background(), "two", "")
	require.Error(t, err)

	assert.Len(t, conv.Messages(), 2)
}

func TestConversationRejectsConcurrentSend(t *testing.T) {
	fc := &fakeCompleter{
		reply:   Message{Role: RoleAssistant, Content: "ok"},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	conv := NewConversation(fc)

	done := make(chan error, 1)
	go func() {
		_, err := conv.Send(context.Background(), "slow", "")
		done <- err
	}()
	<-fc.entered

	_, err := conv.Send(context.Background(), "again", "")
	assert.ErrorIs(t, err, ErrBusy)

	close(fc.block)
	require.NoError(t, <-done)
	assert.Len(t, conv.Messages(), 2)
}

func TestConversationReset(t *testing.T) {
	fc := &fakeCompleter{reply: Message{Role: RoleAssistant, Content: "ok"}}
	conv := NewConversation(fc)
	_, _ = conv.Send(context.Background(), "hi", "")
	conv.Reset()
	assert.Empty(t, conv.Messages())
}

func TestConversationResetDuringSendDropsTurn(t *testing.T) {
	fc := &fakeCompleter{
		reply:   Message{Role: RoleAssistant, Content: "late"},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	conv := NewConversation(fc)

	done := make(chan error, 1)
	go func() {
		_, err := conv.Send(context.Background(), "before reset", "")
		done <- err
	}()
	<-fc.entered

	conv.Reset()
	close(fc.block)
	require.NoError(t, <-done)
	assert.Empty(t, conv.Messages())

	fc.block = nil
	fc.entered = nil
	_, err := conv.Send(context.Background(), "after", "")
	require.NoError(t, err)
	assert.Len(t, conv.Messages(), 2)
}
