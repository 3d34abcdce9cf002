package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemblePrependsSystemPrompt(t *testing.T) {
	in := []Message{{Role: RoleUser, Content: "hi"}}
	out := Assemble(in, "")

	require.Len(t, out, 2)
	assert.Equal(t, RoleSystem, out[0].Role)
	assert.Equal(t, SystemPrompt, out[0].Content)
	assert.Equal(t, in[0], out[1])
}

func TestAssembleKeepsExistingSystemMessage(t *testing.T) {
	in := []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleSystem, Content: "be brief"},
	}
	out := Assemble(in, "")

	require.Len(t, out, 2)
	system := 0
	for _, m := range out {
		if m.Role == RoleSystem {
			system++
		}
	}
	assert.Equal(t, 1, system)
	assert.Equal(t, in, out)
}

func TestAssembleInjectsIntoLastUserTurn(t *testing.T) {
	in := []Message{
		{Role: RoleUser, Content: "A"},
		{Role: RoleAssistant, Content: "B"},
		{Role: RoleUser, Content: "C"},
	}
	out := Assemble(in, "X")

	require.Len(t, out, 4)
	assert.Equal(t, "A", out[1].Content)
	assert.Equal(t, "B", out[2].Content)
	assert.Equal(t, "--- Context ---\nX\n--- End Context ---\n\nC", out[3].Content)
	assert.Equal(t, "C", in[2].Content, "input must not be mutated")
}

func TestAssembleInjectsPastTrailingAssistant(t *testing.T) {
	in := []Message{
		{Role: RoleUser, Content: "question"},
		{Role: RoleAssistant, Content: "answer"},
	}
	out := Assemble(in, "ctx")
	assert.Equal(t, InjectContext("ctx", "question"), out[1].Content)
	assert.Equal(t, "answer", out[2].Content)
}

func TestAssembleDropsContextWithoutUserTurn(t *testing.T) {
	in := []Message{{Role: RoleAssistant, Content: "hello"}}
	out := Assemble(in, "ctx")

	require.Len(t, out, 2)
	assert.Equal(t, SystemPrompt, out[0].Content)
	assert.Equal(t, "hello", out[1].Content)
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate(nil), ErrNoMessages)
	assert.ErrorIs(t, Validate([]Message{}), ErrNoMessages)
	assert.Error(t, Validate([]Message{{Role: "tool", Content: "x"}}))
	assert.NoError(t, Validate([]Message{{Role: RoleUser, Content: "x"}}))
}
