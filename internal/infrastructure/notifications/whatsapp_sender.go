package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/providers"
	"github.com/zatekoja/firstresponder/backend/pkg/config"
)

// WhatsAppSender alerts frontline workers through the WhatsApp Cloud API
type WhatsAppSender struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	template      string
	language      string
	appLink       string
	httpClient    *http.Client
}

var _ providers.ResponderAlerter = (*WhatsAppSender)(nil)

// NewWhatsAppSender creates a sender from the notify settings
func NewWhatsAppSender(cfg *config.NotifyConfig) (*WhatsAppSender, error) {
	if cfg == nil || !cfg.Enabled() {
		return nil, errors.New("WHATSAPP_ACCESS_TOKEN and WHATSAPP_PHONE_NUMBER_ID must be set")
	}

	return &WhatsAppSender{
		accessToken:   cfg.WhatsAppAccessToken,
		phoneNumberID: cfg.WhatsAppPhoneNumberID,
		baseURL:       strings.TrimRight(cfg.WhatsAppBaseURL, "/"),
		template:      cfg.WhatsAppTemplate,
		language:      cfg.WhatsAppLanguage,
		appLink:       cfg.AppLink,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type templateMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Template         templateBody `json:"template"`
}

type templateBody struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		PreviewURL bool   `json:"preview_url"`
		Body       string `json:"body"`
	} `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// AlertResponder tells a picked worker that an emergency is waiting. With a
// template configured it sends the approved template, otherwise plain text.
func (w *WhatsAppSender) AlertResponder(ctx context.Context, responder *entities.Profile, emergencyID string) error {
	if responder == nil || responder.Phone == "" {
		return errors.New("responder has no phone number")
	}

	var err error
	if w.template != "" {
		_, err = w.SendTemplate(ctx, responder.Phone, w.template, w.language, []string{responder.DisplayName(), shortID(emergencyID)})
	} else {
		_, err = w.SendText(ctx, responder.Phone, w.alertText(responder))
	}
	return err
}

func (w *WhatsAppSender) alertText(responder *entities.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s, a patient has raised an SOS and you have been notified as a responder.", responder.DisplayName())
	b.WriteString(" Open the responder dashboard to accept or decline.")
	if w.appLink != "" {
		b.WriteString(" ")
		b.WriteString(w.appLink)
	}
	return b.String()
}

// SendTemplate sends a template message and returns its message id
func (w *WhatsAppSender) SendTemplate(ctx context.Context, to, templateName, languageCode string, parameters []string) (string, error) {
	var components []templateComponent
	if len(parameters) > 0 {
		params := make([]templateParameter, len(parameters))
		for i, param := range parameters {
			params[i] = templateParameter{Type: "text", Text: param}
		}
		components = append(components, templateComponent{Type: "body", Parameters: params})
	}

	return w.send(ctx, templateMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               recipient(to),
		Type:             "template",
		Template: templateBody{
			Name:       templateName,
			Language:   templateLanguage{Code: languageCode},
			Components: components,
		},
	})
}

// SendText sends a text message and returns its message id
func (w *WhatsAppSender) SendText(ctx context.Context, to, body string) (string, error) {
	message := textMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               recipient(to),
		Type:             "text",
	}
	message.Text.PreviewURL = w.appLink != ""
	message.Text.Body = body

	return w.send(ctx, message)
}

func (w *WhatsAppSender) send(ctx context.Context, message interface{}) (string, error) {
	url := fmt.Sprintf("%s/%s/messages", w.baseURL, w.phoneNumberID)

	payload, err := json.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("WhatsApp API error (status %d): %s", resp.StatusCode, string(body))
	}

	var sent sendResponse
	if err := json.Unmarshal(body, &sent); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(sent.Messages) == 0 {
		return "", errors.New("no message ID in response")
	}
	return sent.Messages[0].ID, nil
}

// recipient strips formatting; the Cloud API wants digits with country code
func recipient(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
