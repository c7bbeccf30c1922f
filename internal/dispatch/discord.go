package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pumpfun-alerts/internal/domain"
)

// discordGreen is the embed accent color for launch alerts.
const discordGreen = 0x00FF00

// DiscordChannel delivers alerts through a Discord incoming webhook as a
// rich embed with an ordered field list.
type DiscordChannel struct {
	httpChannel
	username string
}

// NewDiscordChannel creates a Discord webhook channel.
func NewDiscordChannel(webhookURL, username string, client *http.Client) *DiscordChannel {
	if username == "" {
		username = "Pump.fun Alert Bot"
	}
	return &DiscordChannel{
		httpChannel: newHTTPChannel(webhookURL, client),
		username:    username,
	}
}

// Name implements Channel.
func (c *DiscordChannel) Name() string { return "discord" }

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title     string         `json:"title"`
	Color     int            `json:"color"`
	Timestamp string         `json:"timestamp"`
	Fields    []discordField `json:"fields"`
	Footer    struct {
		Text string `json:"text"`
	} `json:"footer"`
}

type discordWebhook struct {
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds"`
}

// Render implements Channel with a structured embed.
func (c *DiscordChannel) Render(event *domain.CreationEvent, triggeredBy string) ([]byte, error) {
	embed := discordEmbed{
		Title:     "🚀 NEW PUMP.FUN TOKEN LAUNCH",
		Color:     discordGreen,
		Timestamp: event.ObservedAt.UTC().Format(time.RFC3339),
		Fields: []discordField{
			{Name: "📛 Token Name", Value: orPlaceholder(event.Name), Inline: true},
			{Name: "🏷 Symbol", Value: orPlaceholder(event.Symbol), Inline: true},
			{Name: "🎯 Trigger", Value: orPlaceholder(triggeredBy), Inline: true},
			{Name: "🆔 Mint Address", Value: codeBlock(event.Mint), Inline: false},
			{Name: "👤 Creator", Value: codeBlock(event.Creator), Inline: false},
			{
				Name:   "🔗 Quick Links",
				Value:  fmt.Sprintf("[View on Pump.fun](%s) • [Transaction](%s)", event.PumpFunURL(), event.SolscanURL()),
				Inline: false,
			},
		},
	}
	embed.Footer.Text = c.username

	return json.Marshal(discordWebhook{
		Username: c.username,
		Embeds:   []discordEmbed{embed},
	})
}

// Deliver implements Channel.
func (c *DiscordChannel) Deliver(ctx context.Context, payload []byte) (domain.Outcome, error) {
	return c.post(ctx, payload)
}

func codeBlock(s string) string {
	return "`" + orPlaceholder(s) + "`"
}
