// Chat platform client: REST API for moderation actions and a gateway
// websocket consumer for the event stream.
package platform

import (
	"time"
)

// Message is the wire shape of a channel message, trimmed to the fields
// moderation needs.
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	GuildID   string    `json:"guild_id,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Author    User      `json:"author"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot,omitempty"`
}

// Interaction is an inbound slash-command invocation.
type Interaction struct {
	ID        string          `json:"id"`
	Token     string          `json:"token"`
	GuildID   string          `json:"guild_id,omitempty"`
	ChannelID string          `json:"channel_id,omitempty"`
	Member    *Member         `json:"member,omitempty"`
	Data      InteractionData `json:"data"`
}

type Member struct {
	User User `json:"user"`
}

type InteractionData struct {
	Name    string              `json:"name"`
	Options []InteractionOption `json:"options,omitempty"`
}

type InteractionOption struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value,omitempty"`
}

// StringOption returns a named string option, or empty.
func (d InteractionData) StringOption(name string) string {
	for _, opt := range d.Options {
		if opt.Name == name {
			if s, ok := opt.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}

// IntOption returns a named integer option. JSON numbers decode as
// float64.
func (d InteractionData) IntOption(name string) (int, bool) {
	for _, opt := range d.Options {
		if opt.Name == name {
			if f, ok := opt.Value.(float64); ok {
				return int(f), true
			}
		}
	}
	return 0, false
}

// Command is a slash-command definition for registration.
type Command struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Options     []CommandOption `json:"options,omitempty"`
}

type CommandOption struct {
	Type        int    `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required,omitempty"`
}

// application command option types (subset)
const (
	OptionTypeString  = 3
	OptionTypeInteger = 4
	OptionTypeChannel = 7
)
