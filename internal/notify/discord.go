package notify

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// webhookExecutor is the discordgo method the sink needs.
type webhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordSink posts events to a Discord webhook.
type DiscordSink struct {
	id          string
	token       string
	session     webhookExecutor
	baseBackoff time.Duration
}

// NewDiscordSink returns a sink for a webhook URL of the form
// https://discord.com/api/webhooks/{id}/{token}.
func NewDiscordSink(webhookURL string) (*DiscordSink, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	s, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord: session: %w", err)
	}
	return &DiscordSink{id: id, token: token, session: s, baseBackoff: time.Second}, nil
}

func parseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("discord: invalid webhook url %q", raw)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("discord: webhook url %q has no id/token", raw)
}

func (d *DiscordSink) Name() string { return "discord" }

// Send executes the webhook with ev as one embed.
func (d *DiscordSink) Send(ctx context.Context, ev Event) error {
	params := &discordgo.WebhookParams{
		Content: ev.Title,
		Embeds:  []*discordgo.MessageEmbed{eventToEmbed(ev)},
	}
	return d.retryOnRateLimit(ctx, func() error {
		_, err := d.session.WebhookExecute(d.id, d.token, false, params, discordgo.WithContext(ctx))
		return err
	})
}

func eventToEmbed(ev Event) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       ev.Title,
		Description: ev.Body,
		Color:       parseHexColor(ev.Color()),
	}
	for _, f := range ev.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Short,
		})
	}
	return embed
}

func (d *DiscordSink) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		restErr, ok := err.(*discordgo.RESTError)
		if !ok || restErr.Response == nil || restErr.Response.StatusCode != http.StatusTooManyRequests || attempt == maxRetries {
			return err
		}
		wait := time.Duration(math.Pow(2, float64(attempt))) * d.baseBackoff
		log.Printf("discord: rate limited (attempt %d/%d); retrying in %v", attempt+1, maxRetries, wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
