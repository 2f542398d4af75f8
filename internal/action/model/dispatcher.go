package model

import "sync"

type (
	// Button is a quick reply shown to the user.
	Button struct {
		Title   string `json:"title"`
		Payload string `json:"payload"`
	}

	// Dispatcher emits bot replies in-band while an action runs.
	Dispatcher interface {
		UtterText(text string)
		UtterJSON(payload any)
		UtterButtons(text string, buttons []Button)
		UtterTemplate(name string)
	}

	// BotMessage is one reply captured by a Collector.
	BotMessage struct {
		Text     string   `json:"text,omitempty"`
		Custom   any      `json:"custom,omitempty"`
		Buttons  []Button `json:"buttons,omitempty"`
		Template string   `json:"response,omitempty"`
	}

	// Collector is a Dispatcher that buffers replies for the webhook response.
	Collector struct {
		mu       sync.Mutex
		messages []BotMessage
	}

	discard struct{}
)

// Discard drops every reply.
var Discard Dispatcher = discard{}

func (c *Collector) UtterText(text string) { c.add(BotMessage{Text: text}) }

func (c *Collector) UtterJSON(payload any) { c.add(BotMessage{Custom: payload}) }

func (c *Collector) UtterButtons(text string, buttons []Button) {
	c.add(BotMessage{Text: text, Buttons: buttons})
}

func (c *Collector) UtterTemplate(name string) { c.add(BotMessage{Template: name}) }

// Messages returns a copy of the buffered replies.
func (c *Collector) Messages() []BotMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]BotMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Collector) add(m BotMessage) {
	c.mu.Lock()
	c.messages = append(c.messages, m)
	c.mu.Unlock()
}

func (discard) UtterText(string)              {}
func (discard) UtterJSON(any)                 {}
func (discard) UtterButtons(string, []Button) {}
func (discard) UtterTemplate(string)          {}
