package notify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	slackapi "github.com/slack-go/slack"
)

const maxRetries = 3

// SlackSink posts events to a Slack incoming webhook.
type SlackSink struct {
	webhookURL string
	post       func(ctx context.Context, url string, msg *slackapi.WebhookMessage) error
}

// NewSlackSink returns a sink for webhookURL.
func NewSlackSink(webhookURL string) (*SlackSink, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack: webhook url is required")
	}
	return &SlackSink{webhookURL: webhookURL, post: slackapi.PostWebhookContext}, nil
}

func (s *SlackSink) Name() string { return "slack" }

// Send posts ev as a single attachment.
func (s *SlackSink) Send(ctx context.Context, ev Event) error {
	msg := &slackapi.WebhookMessage{
		Text:        ev.Title,
		Attachments: []slackapi.Attachment{eventToAttachment(ev)},
	}
	return retryOnRateLimit(ctx, func() error {
		return s.post(ctx, s.webhookURL, msg)
	})
}

func eventToAttachment(ev Event) slackapi.Attachment {
	att := slackapi.Attachment{
		Title:    ev.Title,
		Text:     ev.Body,
		Color:    ev.Color(),
		Fallback: ev.Title,
	}
	for _, f := range ev.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: f.Short,
		})
	}
	return att
}

// retryOnRateLimit retries fn while Slack reports rate limiting, honoring
// RetryAfter when given.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) || attempt == maxRetries {
			return err
		}
		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
