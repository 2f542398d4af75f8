package llm

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// History converts chat-log turns ({"user": …} / {"bot": …}) into model
// messages, oldest first, keeping the last n user/bot exchanges.
// Adjacent turns with the same role and content are collapsed.
func History(chatLog []map[string]any, n int) []*schema.Message {
	if n <= 0 {
		return nil
	}
	msgs := make([]*schema.Message, 0, len(chatLog))
	for _, turn := range chatLog {
		var m *schema.Message
		if v, ok := turn["user"].(string); ok {
			m = schema.UserMessage(strings.TrimSpace(v))
		} else if v, ok := turn["bot"].(string); ok {
			m = schema.AssistantMessage(strings.TrimSpace(v), nil)
		}
		if m == nil || m.Content == "" {
			continue
		}
		if last := len(msgs) - 1; last >= 0 && msgs[last].Role == m.Role && msgs[last].Content == m.Content {
			continue
		}
		msgs = append(msgs, m)
	}
	return trimTail(msgs, 2*n)
}

func trimTail(messages []*schema.Message, maxMessages int) []*schema.Message {
	if len(messages) <= maxMessages {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxMessages:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
