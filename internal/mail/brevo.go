package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultBrevoURL = "https://api.brevo.com/v3"

// BrevoClient sends mail through the Brevo transactional email API.
type BrevoClient struct {
	baseURL    string
	apiKey     string
	sender     Address
	httpClient *http.Client
}

func NewBrevoClient(baseURL, apiKey string, sender Address) *BrevoClient {
	if baseURL == "" {
		baseURL = DefaultBrevoURL
	}
	return &BrevoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		sender:     sender,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoAttachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type brevoEmail struct {
	Sender      brevoContact      `json:"sender"`
	To          []brevoContact    `json:"to"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	Attachment  []brevoAttachment `json:"attachment,omitempty"`
}

// SendError is a non-2xx answer from Brevo.
type SendError struct {
	Status  int
	Code    string
	Message string
}

func (e *SendError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("brevo: status %d", e.Status)
	}
	return fmt.Sprintf("brevo: status %d: %s: %s", e.Status, e.Code, e.Message)
}

func (c *BrevoClient) Send(ctx context.Context, msg Message) error {
	body := brevoEmail{
		Sender:      brevoContact{Email: c.sender.Email, Name: c.sender.Name},
		To:          []brevoContact{{Email: msg.To.Email, Name: msg.To.Name}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
	}
	for _, a := range msg.Attachments {
		body.Attachment = append(body.Attachment, brevoAttachment{
			Name:    a.Name,
			Content: base64.StdEncoding.EncodeToString(a.Content),
		})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/smtp/email", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	sendErr := &SendError{Status: resp.StatusCode}
	var failure struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&failure); err == nil {
		sendErr.Code = failure.Code
		sendErr.Message = failure.Message
	}
	return sendErr
}
