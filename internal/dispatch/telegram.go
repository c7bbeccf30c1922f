package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"pumpfun-alerts/internal/domain"
)

// TelegramChannel delivers alerts through the Telegram bot sendMessage API.
type TelegramChannel struct {
	httpChannel
	chatID    string
	parseMode string
}

// NewTelegramChannel creates a Telegram channel for the given bot credentials.
func NewTelegramChannel(botToken, chatID string, client *http.Client) *TelegramChannel {
	return &TelegramChannel{
		httpChannel: newHTTPChannel("https://api.telegram.org/bot"+botToken+"/sendMessage", client),
		chatID:      chatID,
		parseMode:   "HTML",
	}
}

// Name implements Channel.
func (c *TelegramChannel) Name() string { return "telegram" }

// telegramMessage is the sendMessage request body.
type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Render implements Channel with a human-readable multi-line HTML message.
func (c *TelegramChannel) Render(event *domain.CreationEvent, triggeredBy string) ([]byte, error) {
	text := fmt.Sprintf(`🚀 <b>NEW PUMP.FUN TOKEN LAUNCH</b>

📛 <b>Name:</b> %s
🏷 <b>Symbol:</b> %s
🆔 <b>Mint:</b> <code>%s</code>
👤 <b>Creator:</b> <code>%s</code>
⏰ <b>Launch Time:</b> %s
🎯 <b>Trigger:</b> %s

🔗 <b>Links:</b>
• <a href="%s">View on Pump.fun</a>
• <a href="%s">Transaction on Solscan</a>

💎 <b>Bonding Curve:</b> <code>%s</code>
📊 <b>Associated Curve:</b> <code>%s</code>`,
		orPlaceholder(event.Name),
		orPlaceholder(event.Symbol),
		orPlaceholder(event.Mint),
		orPlaceholder(event.Creator),
		event.ObservedAt.UTC().Format("15:04:05 UTC"),
		orPlaceholder(triggeredBy),
		event.PumpFunURL(),
		event.SolscanURL(),
		orPlaceholder(event.BondingCurve),
		orPlaceholder(event.AssociatedBondingCurve),
	)

	return json.Marshal(telegramMessage{
		ChatID:                c.chatID,
		Text:                  text,
		ParseMode:             c.parseMode,
		DisableWebPagePreview: false,
	})
}

// Deliver implements Channel.
func (c *TelegramChannel) Deliver(ctx context.Context, payload []byte) (domain.Outcome, error) {
	return c.post(ctx, payload)
}
