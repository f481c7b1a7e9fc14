// Package telegram delivers notices through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"notice_relay/internal/delivery"
	"notice_relay/internal/domain"
)

type Config struct {
	Token   string
	APIURL  string
	Timeout time.Duration
}

type Transport struct {
	bot    *tele.Bot
	loc    *time.Location
	logger *slog.Logger
}

func New(cfg Config, loc *time.Location, logger *slog.Logger) (*Transport, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if loc == nil {
		loc = time.UTC
	}

	b, err := tele.NewBot(tele.Settings{
		URL:    cfg.APIURL,
		Token:  cfg.Token,
		Client: &http.Client{Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	logger = logger.With("component", "telegram")
	logger.Info("connected to telegram", "bot", b.Me.Username)

	return &Transport{bot: b, loc: loc, logger: logger}, nil
}

func (t *Transport) Resolve(ctx context.Context, dest domain.Destination) (delivery.Target, error) {
	if err := ctx.Err(); err != nil {
		return delivery.Target{}, err
	}

	id, err := strconv.ParseInt(dest.ID, 10, 64)
	if err != nil {
		return delivery.Target{}, fmt.Errorf("parse chat id: %w", err)
	}

	chat, err := t.bot.ChatByID(id)
	if err != nil {
		return delivery.Target{}, fmt.Errorf("get chat: %w", err)
	}

	target := delivery.Target{
		ID:     dest.ID,
		Kind:   dest.Kind,
		Name:   chatName(chat),
		Handle: chat,
	}

	if chat.Type == tele.ChatPrivate {
		target.CanPost = true
		return target, nil
	}

	member, err := t.bot.ChatMemberOf(chat, t.bot.Me)
	if err != nil {
		return delivery.Target{}, fmt.Errorf("get bot membership: %w", err)
	}
	target.CanPost = canPost(chat, member)
	return target, nil
}

func canPost(chat *tele.Chat, m *tele.ChatMember) bool {
	switch m.Role {
	case tele.Creator:
		return true
	case tele.Left, tele.Kicked:
		return false
	case tele.Restricted:
		return m.Rights.CanSendMessages
	}
	if chat.Type == tele.ChatChannel || chat.Type == tele.ChatChannelPrivate {
		return m.Role == tele.Administrator && m.Rights.CanPostMessages
	}
	return true
}

func (t *Transport) Send(ctx context.Context, target delivery.Target, n domain.Notice, sourceName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	chat, ok := target.Handle.(*tele.Chat)
	if !ok {
		return fmt.Errorf("target %s was not resolved by telegram", target.ID)
	}

	_, err := t.bot.Send(chat, FormatMessage(n, sourceName, t.loc), &tele.SendOptions{
		ParseMode: tele.ModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// FormatMessage renders a notice as Telegram HTML.
func FormatMessage(n domain.Notice, sourceName string, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(sourceName))
	b.WriteString("</b>\n")

	title := html.EscapeString(n.Title)
	if strings.HasPrefix(n.Link, "http://") || strings.HasPrefix(n.Link, "https://") {
		fmt.Fprintf(&b, `<a href="%s">%s</a>`, html.EscapeString(n.Link), title)
	} else {
		b.WriteString(title)
	}

	if !n.Published.IsZero() {
		b.WriteString("\n<i>")
		b.WriteString(n.Published.In(loc).Format("2006-01-02"))
		b.WriteString("</i>")
	}
	return b.String()
}

func chatName(chat *tele.Chat) string {
	if chat.Title != "" {
		return chat.Title
	}
	if chat.Username != "" {
		return chat.Username
	}
	return strings.TrimSpace(chat.FirstName + " " + chat.LastName)
}
