package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fieldops/dispatch/internal/config"
)

// Sender delivers a text message to a phone number.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// WebhookClient posts text messages to a WhatsApp Cloud style endpoint.
type WebhookClient struct {
	url     string
	token   string
	timeout time.Duration
	client  *fasthttp.Client
	logger  *zap.Logger
}

// NewWebhookClient builds a client from cfg. With no URL configured the
// client only logs.
func NewWebhookClient(cfg config.NotificationConfig, logger *zap.Logger) *WebhookClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookClient{
		url:     strings.TrimSpace(cfg.WebhookURL),
		token:   strings.TrimSpace(cfg.AccessToken),
		timeout: cfg.Timeout(),
		client:  &fasthttp.Client{Name: "field-dispatch-notify"},
		logger:  logger,
	}
}

// Enabled reports whether messages actually leave the process.
func (w *WebhookClient) Enabled() bool {
	return w.url != ""
}

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

// Send normalises to and posts body. Delivery is attempted once.
func (w *WebhookClient) Send(ctx context.Context, to, body string) error {
	phone, err := NormalizePhone(to)
	if err != nil {
		return err
	}
	if !w.Enabled() {
		w.logger.Debug("notification webhook disabled", zap.String("to", phone))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(textMessage{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "text",
		Text:             textBody{Body: body},
	})
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(w.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if w.token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+w.token)
	}
	req.SetBody(payload)

	timeout := w.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if err := w.client.DoTimeout(req, resp, timeout); err != nil {
		return err
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("notification webhook error: status=%d body=%s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}
