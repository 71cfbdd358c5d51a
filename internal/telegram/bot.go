package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"go-jobpost-automation/internal/models"
)

type Bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewBot(token string, chatID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return &Bot{
		api:    api,
		chatID: chatID,
	}, nil
}

// NewBotWithEndpoint talks to a non-default Bot API server, e.g. a local one.
// endpoint follows tgbotapi.APIEndpoint: "https://host/bot%s/%s".
func NewBotWithEndpoint(token, endpoint string, chatID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return &Bot{api: api, chatID: chatID}, nil
}

func (b *Bot) Name() string {
	return "telegram"
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(",
		")", "\\)", "~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#",
		"+", "\\+", "-", "\\-", "=", "\\=", "|", "\\|", "{", "\\{",
		"}", "\\}", ".", "\\.", "!", "\\!",
	)
	return replacer.Replace(text)
}

// excerpt keeps message bodies well under Telegram's 4096 character limit.
func excerpt(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}

func formatListing(l models.JobListing) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "💼 *%s*\n", escapeMarkdown(l.Title))
	fmt.Fprintf(&sb, "🏢 %s\n", escapeMarkdown(l.Company))

	loc := l.Location
	if loc == "" {
		loc = "N/A"
	}
	fmt.Fprintf(&sb, "📍 %s\n", escapeMarkdown(loc))
	fmt.Fprintf(&sb, "📅 %s\n", escapeMarkdown(l.PostedDate.Format("2006-01-02")))

	if l.Description != models.DescriptionNotFound {
		fmt.Fprintf(&sb, "📄 %s\n", escapeMarkdown(excerpt(l.Description, 600)))
	}
	fmt.Fprintf(&sb, "🔖 Source: %s\n", escapeMarkdown(l.Source))
	return sb.String()
}

// Publish sends the listing to the configured chat.
func (b *Bot) Publish(_ context.Context, l models.JobListing) (bool, error) {
	msg := tgbotapi.NewMessage(b.chatID, formatListing(l))
	msg.ParseMode = "MarkdownV2"
	if l.URL != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🔗 View Job", l.URL)),
		)
	}

	if _, err := b.api.Send(msg); err != nil {
		return false, err
	}
	return true, nil
}

// Notify pings the chat when a run needs a human, e.g. to solve a captcha.
func (b *Bot) Notify(_ context.Context, message string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(b.chatID, "⚠️ "+message))
	return err
}

func (b *Bot) SendError(err error) error {
	msg := tgbotapi.NewMessage(b.chatID, fmt.Sprintf("❌ Error: %v", err))
	_, sendErr := b.api.Send(msg)
	return sendErr
}

func (b *Bot) SendStatus(message string) error {
	msg := tgbotapi.NewMessage(b.chatID, "ℹ️ "+message)
	_, err := b.api.Send(msg)
	return err
}
