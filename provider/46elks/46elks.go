package elks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/interactive-solutions/go-campaign"
)

const elksApi = "https://api.46elks.com/a1/sms"

// Elks is an sms implementation for 46elks
type elks struct {
	client *retryablehttp.Client

	from string

	username string
	password string
}

func New46ElksClient(from, username, password string) campaign.Transport {
	return &elks{
		client: retryablehttp.NewClient(),

		from:     from,
		username: username,
		password: password,
	}
}

func (e *elks) Send(ctx context.Context, address, message string) (string, error) {
	body := url.Values{
		"from":    {e.from},
		"to":      {address},
		"message": {message},
	}.Encode()

	req, err := retryablehttp.NewRequest(http.MethodPost, elksApi, bytes.NewReader([]byte(body)))
	if err != nil {
		return "", err
	}

	req = req.WithContext(ctx)
	req.SetBasicAuth(e.username, e.password)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	req.Header.Set("User-Agent", campaign.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}

	defer resp.Body.Close()

	if resp.StatusCode >= 300 || resp.StatusCode <= 199 {
		return "", errors.Errorf("Unexpected response code %d received from 46elks", resp.StatusCode)
	}

	payload := struct {
		Id string `json:"id"`
	}{}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errors.Wrap(err, "Failed to decode 46elks response")
	}

	return payload.Id, nil
}
