package memory

import "time"

// DefaultMaxTokens is the estimated-token ceiling for one request's context.
const DefaultMaxTokens = 1000

// ContextBuilder assembles the ordered message list for one completion
// request: the persona system prompt, any prior turns, then the current user
// message.
//
// When the estimate exceeds MaxTokens everything between the first (system)
// and last (current user) message is dropped. There is no sliding window and
// no partial trim; the boundary messages are never removed, even if they
// alone are over the ceiling.
type ContextBuilder struct {
	systemPrompt string
	maxTokens    int
	now          func() time.Time
}

// NewContextBuilder returns a builder for the given system prompt. A
// maxTokens of zero or less selects DefaultMaxTokens.
func NewContextBuilder(systemPrompt string, maxTokens int) *ContextBuilder {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &ContextBuilder{
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SystemPrompt returns the prompt every context starts with.
func (b *ContextBuilder) SystemPrompt() string { return b.systemPrompt }

// MaxTokens returns the configured ceiling.
func (b *ContextBuilder) MaxTokens() int { return b.maxTokens }

// Build returns [system, history..., user]. userText must already be
// non-empty; rejecting empty input is the caller's job. Only the role and
// content of history entries are carried over.
func (b *ContextBuilder) Build(history []Message, userText string) []Message {
	now := b.now()

	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: RoleSystem, Content: b.systemPrompt, Timestamp: now})
	for _, h := range history {
		msgs = append(msgs, Message{Role: h.Role, Content: h.Content, Timestamp: h.Timestamp})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: userText, Timestamp: now})

	if EstimateMessages(msgs) > b.maxTokens {
		msgs = keepBoundaries(msgs)
	}
	return msgs
}

// keepBoundaries drops every element except the first and the last. Slices
// of length two or less come back unchanged.
func keepBoundaries(msgs []Message) []Message {
	if len(msgs) <= 2 {
		return msgs
	}
	return []Message{msgs[0], msgs[len(msgs)-1]}
}
