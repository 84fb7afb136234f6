package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/varoOP/vinime/internal/domain"
)

const (
	colorGreen  = 0x00ff00
	colorYellow = 0xffcc00
	colorRed    = 0xff0000
)

// DiscordService posts embeds to a Discord webhook
type DiscordService struct {
	log        zerolog.Logger
	webhookURL string
	client     *resty.Client
}

func NewDiscordService(log zerolog.Logger, webhookURL string) *DiscordService {
	return &DiscordService{
		log:        log.With().Str("module", "notification").Str("type", "discord").Logger(),
		webhookURL: webhookURL,
		client:     resty.New().SetTimeout(10 * time.Second),
	}
}

// SendSeedReport posts the outcome of a seeding run. Skipped runs are not
// reported.
func (s *DiscordService) SendSeedReport(ctx context.Context, report domain.SeedReport) error {
	if s.webhookURL == "" || report.Skipped {
		return nil
	}

	embed := discordEmbed{
		Title:       "Catalog seeding finished",
		Description: fmt.Sprintf("Seeded from %s", report.Source),
		Color:       colorGreen,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []discordField{
			{Name: "Added", Value: fmt.Sprintf("%d", report.Added), Inline: true},
			{Name: "Total", Value: fmt.Sprintf("%d", report.Total), Inline: true},
			{Name: "Duration", Value: report.Duration.Round(time.Millisecond).String(), Inline: true},
		},
	}
	if report.Added == 0 {
		embed.Color = colorYellow
		embed.Description = "Seeding added no entries"
	}

	return s.sendWebhook(ctx, discordWebhook{Embeds: []discordEmbed{embed}})
}

func (s *DiscordService) SendError(ctx context.Context, err error) error {
	if s.webhookURL == "" {
		return nil
	}

	embed := discordEmbed{
		Title:       "vinime error",
		Description: fmt.Sprintf("```%s```", err.Error()),
		Color:       colorRed,
		Timestamp:   time.Now().Format(time.RFC3339),
	}

	return s.sendWebhook(ctx, discordWebhook{Embeds: []discordEmbed{embed}})
}

func (s *DiscordService) sendWebhook(ctx context.Context, payload discordWebhook) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(s.webhookURL)
	if err != nil {
		return errors.Wrap(err, "failed to send webhook request")
	}

	if !resp.IsSuccess() {
		return errors.Errorf("webhook request failed with status %d", resp.StatusCode())
	}

	s.log.Debug().Msg("Discord notification sent successfully")
	return nil
}

type discordWebhook struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Fields      []discordField `json:"fields,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}
