package services

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"internboard/internal/models"
)

// InternshipAnnouncer publishes new listings to an external channel.
type InternshipAnnouncer interface {
	Announce(ctx context.Context, in *models.Internship) error
}

// telegramHTTPTimeout caps every Bot API call, including the getMe check at startup.
const telegramHTTPTimeout = 10 * time.Second

type telegramAnnouncer struct {
	bot       *tgbotapi.BotAPI
	channelID int64
}

func NewTelegramAnnouncer(botToken string, channelID int64) (InternshipAnnouncer, error) {
	return NewTelegramAnnouncerWithEndpoint(botToken, tgbotapi.APIEndpoint, channelID)
}

// NewTelegramAnnouncerWithEndpoint targets a custom Bot API endpoint in
// tgbotapi's "%s/%s" token/method format.
func NewTelegramAnnouncerWithEndpoint(botToken, endpoint string, channelID int64) (InternshipAnnouncer, error) {
	client := &http.Client{Timeout: telegramHTTPTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &telegramAnnouncer{bot: bot, channelID: channelID}, nil
}

func (a *telegramAnnouncer) Announce(ctx context.Context, in *models.Internship) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(a.channelID, announcementText(in))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	// bot.Send takes no context; the client timeout bounds the abandoned call.
	done := make(chan error, 1)
	go func() {
		_, err := a.bot.Send(msg)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram sendMessage failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("telegram sendMessage: %w", ctx.Err())
	}
}

func announcementText(in *models.Internship) string {
	return fmt.Sprintf(
		"<b>%s</b> is hiring interns (%s)\n%s\nApply by %s: %s",
		html.EscapeString(in.Company),
		html.EscapeString(in.Batch),
		html.EscapeString(in.Description),
		in.Deadline.Format("Jan 2, 2006"),
		html.EscapeString(in.Link),
	)
}

type noopAnnouncer struct{}

// NewNoopAnnouncer is used when no Telegram channel is configured.
func NewNoopAnnouncer() InternshipAnnouncer { return noopAnnouncer{} }

func (noopAnnouncer) Announce(context.Context, *models.Internship) error { return nil }
