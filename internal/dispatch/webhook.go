package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"pumpfun-alerts/internal/domain"
)

// WebhookChannel delivers alerts to a generic HTTP endpoint using the
// canonical creation_event JSON document. Field presence is fixed: absent
// upstream data renders as an empty string, never as a missing key.
type WebhookChannel struct {
	httpChannel
	name string
}

// NewWebhookChannel creates a generic webhook channel. The name defaults to
// "webhook" and distinguishes multiple endpoints in statistics.
func NewWebhookChannel(url, name string, client *http.Client) *WebhookChannel {
	if name == "" {
		name = "webhook"
	}
	return &WebhookChannel{
		httpChannel: newHTTPChannel(url, client),
		name:        name,
	}
}

// Name implements Channel.
func (c *WebhookChannel) Name() string { return c.name }

// webhookAlert is the canonical alert document.
type webhookAlert struct {
	AlertType string       `json:"alert_type"`
	Timestamp string       `json:"timestamp"`
	Token     webhookToken `json:"token"`
}

type webhookToken struct {
	Name                   string `json:"name"`
	Symbol                 string `json:"symbol"`
	MintAddress            string `json:"mint_address"`
	CreatorAddress         string `json:"creator_address"`
	BondingCurve           string `json:"bonding_curve"`
	AssociatedBondingCurve string `json:"associated_bonding_curve"`
	MetadataURI            string `json:"metadata_uri"`
	TransactionSignature   string `json:"transaction_signature"`
	LaunchTime             string `json:"launch_time"`
}

// Render implements Channel.
func (c *WebhookChannel) Render(event *domain.CreationEvent, _ string) ([]byte, error) {
	launchTime := event.ObservedAt.UTC().Format(time.RFC3339)

	return json.Marshal(webhookAlert{
		AlertType: "creation_event",
		Timestamp: launchTime,
		Token: webhookToken{
			Name:                   event.Name,
			Symbol:                 event.Symbol,
			MintAddress:            event.Mint,
			CreatorAddress:         event.Creator,
			BondingCurve:           event.BondingCurve,
			AssociatedBondingCurve: event.AssociatedBondingCurve,
			MetadataURI:            event.URI,
			TransactionSignature:   event.Signature,
			LaunchTime:             launchTime,
		},
	})
}

// Deliver implements Channel.
func (c *WebhookChannel) Deliver(ctx context.Context, payload []byte) (domain.Outcome, error) {
	return c.post(ctx, payload)
}
