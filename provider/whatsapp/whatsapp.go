package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/interactive-solutions/go-campaign"
)

const graphApi = "https://graph.facebook.com/v17.0"

// whatsapp sends text messages through the WhatsApp Business Cloud API.
// Delivery and read receipts are not surfaced, the provider message id is
// the only tracking handle.
type whatsapp struct {
	client *retryablehttp.Client

	phoneNumberId string
	accessToken   string
}

func NewWhatsappClient(phoneNumberId, accessToken string) campaign.Transport {
	return &whatsapp{
		client: retryablehttp.NewClient(),

		phoneNumberId: phoneNumberId,
		accessToken:   accessToken,
	}
}

type textPayload struct {
	Body string `json:"body"`
}

type messagePayload struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             textPayload `json:"text"`
}

func (w *whatsapp) Send(ctx context.Context, address, message string) (string, error) {
	body, err := json.Marshal(messagePayload{
		MessagingProduct: "whatsapp",
		To:               address,
		Type:             "text",
		Text:             textPayload{Body: message},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s/messages", graphApi, w.phoneNumberId)

	req, err := retryablehttp.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	req = req.WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+w.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", campaign.UserAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}

	defer resp.Body.Close()

	if resp.StatusCode >= 300 || resp.StatusCode <= 199 {
		return "", errors.Errorf("Unexpected response code %d received from whatsapp", resp.StatusCode)
	}

	payload := struct {
		Messages []struct {
			Id string `json:"id"`
		} `json:"messages"`
	}{}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errors.Wrap(err, "Failed to decode whatsapp response")
	}

	if len(payload.Messages) == 0 {
		return "", nil
	}

	return payload.Messages[0].Id, nil
}
