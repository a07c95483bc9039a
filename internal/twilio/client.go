// Package twilio sends outbound WhatsApp replies and fetches inbound media
// through the Twilio REST API.
package twilio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/rdsxdev/misinfo-bot/internal/models"
)

// Client wraps the Twilio REST client plus an authenticated HTTP client for
// media downloads.
type Client struct {
	rest       *twilio.RestClient
	httpClient *http.Client
	accountSID string
	authToken  string
	from       string
	logger     *zap.Logger
}

// Config for the Twilio client. From is the full WhatsApp sender address,
// e.g. "whatsapp:+14155238886". Missing credentials are not rejected here;
// the first send or fetch surfaces them.
type Config struct {
	AccountSID string
	AuthToken  string
	From       string
}

// NewClient creates a new Twilio client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	logger.Info("Twilio client initialized", zap.String("from", cfg.From))

	return &Client{
		rest:       rest,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.From,
		logger:     logger,
	}
}

// SendWhatsApp delivers one outbound message to the given raw phone number.
func (c *Client) SendWhatsApp(to, body string) error {
	params := &twilioapi.CreateMessageParams{}
	params.SetFrom(c.from)
	params.SetTo("whatsapp:" + to)
	params.SetBody(body)

	if _, err := c.rest.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send whatsapp message: %w", err)
	}

	c.logger.Info("Sent WhatsApp message", zap.String("to_hash", models.PhoneHash(to)))
	return nil
}

// FetchMedia downloads a message attachment. Twilio media URLs require the
// account credentials as basic auth. Returns the payload and its content
// type.
func (c *Client) FetchMedia(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create media request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("media fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read media body: %w", err)
	}

	return data, resp.Header.Get("Content-Type"), nil
}
