package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"faceit-tracker/internal/config"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// DiscordWebhook delivers messages through a Discord webhook. Sending with
// ?wait=true makes the API return the created message, whose id becomes the
// edit handle.
type DiscordWebhook struct {
	url    string
	client *fasthttp.Client
	logger zerolog.Logger
}

func NewDiscordWebhook(cfg *config.Config, logger zerolog.Logger) *DiscordWebhook {
	return &DiscordWebhook{
		url: cfg.DiscordWebhookURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     4,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

type webhookEmbed struct {
	Title  string              `json:"title"`
	Color  int                 `json:"color"`
	Fields []webhookEmbedField `json:"fields"`
}

type webhookEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type webhookPayload struct {
	Embeds []webhookEmbed `json:"embeds"`
}

type webhookMessage struct {
	ID string `json:"id"`
}

func (d *DiscordWebhook) Send(ctx context.Context, msg Message) (string, error) {
	body, err := json.Marshal(toPayload(msg))
	if err != nil {
		return "", fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	status, respBody, err := d.do(ctx, fasthttp.MethodPost, d.url+"?wait=true", body)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("webhook send failed: %d", status)
	}

	var created webhookMessage
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", fmt.Errorf("failed to decode webhook response: %w", err)
	}
	d.logger.Debug().Str("message_id", created.ID).Msg("webhook message sent")
	return created.ID, nil
}

func (d *DiscordWebhook) Edit(ctx context.Context, handle string, msg Message) error {
	body, err := json.Marshal(toPayload(msg))
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	status, _, err := d.do(ctx, fasthttp.MethodPatch, fmt.Sprintf("%s/messages/%s", d.url, handle), body)
	if err != nil {
		return err
	}
	if status == fasthttp.StatusNotFound {
		return ErrMessageGone
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("webhook edit failed: %d", status)
	}
	return nil
}

func (d *DiscordWebhook) do(ctx context.Context, method, url string, body []byte) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := d.client.DoDeadline(req, resp, deadline); err != nil {
			return 0, nil, err
		}
	} else {
		if err := d.client.Do(req, resp); err != nil {
			return 0, nil, err
		}
	}

	respBody := make([]byte, len(resp.Body()))
	copy(respBody, resp.Body())
	return resp.StatusCode(), respBody, nil
}

func toPayload(msg Message) webhookPayload {
	fields := make([]webhookEmbedField, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		fields = append(fields, webhookEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return webhookPayload{Embeds: []webhookEmbed{{Title: msg.Title, Color: msg.Color, Fields: fields}}}
}
