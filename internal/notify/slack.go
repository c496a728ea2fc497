package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client posts upload notifications to a Slack-compatible chat webhook and
// retracts them again when the animation is removed. The message timestamp
// returned by the post is the handle used for deletion.
// Transport failures and non-200 statuses are retried; an ok:false API reply
// is not.
const maxDeliveryAttempts = 2

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type postMessageRequest struct {
	Channel     string       `json:"channel"`
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments,omitempty"`
}

type attachment struct {
	ImageURL string `json:"image_url,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	TS    string `json:"ts"`
	Error string `json:"error,omitempty"`
}

type deleteMessageRequest struct {
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

type deleteMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PostUpload delivers the upload notice with its preview image and returns
// the delivered message timestamp.
func (c *Client) PostUpload(token, channel, text, imageURL string) (string, error) {
	payload := postMessageRequest{
		Channel: channel,
		Text:    text,
	}
	if imageURL != "" {
		payload.Attachments = []attachment{{ImageURL: imageURL, Fallback: text}}
	}

	var result postMessageResponse
	err := c.RetryWithBackoff(func() error {
		return c.call("chat.postMessage", token, payload, &result)
	}, maxDeliveryAttempts)
	if err != nil {
		return "", err
	}
	if !result.OK {
		return "", fmt.Errorf("failed to post message: %s", result.Error)
	}

	return result.TS, nil
}

// Retract deletes a previously delivered message by its timestamp.
func (c *Client) Retract(token, channel, messageTS string) error {
	var result deleteMessageResponse
	err := c.RetryWithBackoff(func() error {
		return c.call("chat.delete", token, deleteMessageRequest{Channel: channel, TS: messageTS}, &result)
	}, maxDeliveryAttempts)
	if err != nil {
		return err
	}
	if !result.OK {
		return fmt.Errorf("failed to delete message: %s", result.Error)
	}
	return nil
}

func (c *Client) call(method, token string, payload, result interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+"/"+method, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if token == "" {
		token = c.token
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s failed: status %d, body: %s", method, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	return nil
}

// RetryWithBackoff retries fn with exponential backoff.
func (c *Client) RetryWithBackoff(fn func() error, maxRetries int) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt < maxRetries-1 {
			time.Sleep(time.Duration(1<<attempt) * time.Second)
		}
	}
	return err
}
