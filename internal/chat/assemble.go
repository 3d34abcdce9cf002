package chat

import (
	"errors"
	"fmt"
)

// Role of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ErrNoMessages is returned for an empty message list.
var ErrNoMessages = errors.New("messages are required and must be a non-empty array")

// SystemPrompt is prepended to conversations that carry no system message.
const SystemPrompt = `You are an intelligent, embedded assistant inside a Notion-style productivity workspace. Users rely on you to help write, organize, brainstorm, and plan, using both their direct input and contextual documents (such as meeting notes, task lists, and personal pages).

Your tone is focused, friendly, and efficient, like a helpful teammate rather than a chatbot. Always prioritize structure and clarity over long explanations.

---

IMPORTANT BEHAVIOR GUIDELINES:

- Assume you have access to relevant user documents and can reference their content directly.
- If the user refers to "this doc", "last meeting", or a page name, assume related content is provided via context injection.
- Never say "As an AI" or mention your model, its vendor, or any limitations unless explicitly asked.
- Be proactive in offering suggestions, especially when dealing with vague or open-ended prompts.
- Always keep answers concise, organized, and actionable.

---

IMPORTANT FORMATTING GUIDELINES:

- Use **bold** or *italic* for emphasis when needed.
- Use ` + "`inline code`" + ` for referencing commands, tags, or database properties.
- Use ` + "`-`" + ` for bullet points and ` + "`1.`" + ` for numbered lists.
- Use ` + "`##`" + ` and ` + "`###`" + ` for section titles and clear hierarchy.
- When sharing multi-line content or commands, wrap in triple backticks (` + "```" + `) for code blocks.
- Use Markdown tables when displaying structured data.
- Preserve line breaks and spacing for maximum readability.
- Respond in clean Markdown, compatible with Notion-style editors.

---

EXAMPLES OF HOW YOU CAN HELP:

- Summarize messy notes into clean sections
- Extract to-do lists or next actions
- Turn bullet points into formatted meeting agendas
- Reformat text into task tables or timelines
- Brainstorm ideas or next steps based on content
- Edit or rewrite documents with better clarity and flow

Always structure your output in a way that's easy for the user to read, copy, or paste into their workspace. Never add unnecessary explanations or preambles unless clarity requires it.

When unsure, ask a brief clarifying question instead of assuming.`

// Validate checks a client-supplied message list.
func Validate(messages []Message) error {
	if len(messages) == 0 {
		return ErrNoMessages
	}
	for i, m := range messages {
		if !m.Role.Valid() {
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
	}
	return nil
}

// Assemble returns the message list sent to the completion endpoint. The
// input slice is not modified.
//
// SystemPrompt is prepended unless a system message is already present.
// A non-empty contextText is wrapped around the content of the last user
// message; without any user message it is dropped.
func Assemble(messages []Message, contextText string) []Message {
	hasSystem := false
	for _, m := range messages {
		if m.Role == RoleSystem {
			hasSystem = true
			break
		}
	}

	out := make([]Message, 0, len(messages)+1)
	if !hasSystem {
		out = append(out, Message{Role: RoleSystem, Content: SystemPrompt})
	}
	out = append(out, messages...)

	if contextText == "" {
		return out
	}
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role == RoleUser {
			out[i].Content = InjectContext(contextText, out[i].Content)
			break
		}
	}
	return out
}

// InjectContext prefixes content with a delimited context block.
func InjectContext(contextText, content string) string {
	return "--- Context ---\n" + contextText + "\n--- End Context ---\n\n" + content
}
