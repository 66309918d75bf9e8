// Package telegram plays quiz games through a Telegram bot.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/quizlabs/internal/game"
	"github.com/ashureev/quizlabs/internal/identity"
	"github.com/ashureev/quizlabs/internal/quiz"
	"github.com/ashureev/quizlabs/internal/store"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	channelName    = "telegram"
	quizPrefix     = "quiz:"
	answerPrefix   = "ans:"
	passMessage    = "Congratulations!"
	failMessage    = ":( Next time!"
	unknownCommand = "Unknown command. Use /start to pick a quiz."
)

// Sender is the part of the Telegram API the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot drives games from Telegram updates. Each chat is one game tab.
type Bot struct {
	api   Sender
	games *game.Registry
	repo  store.Repository
	delay time.Duration
	log   *slog.Logger
}

// NewBot creates a bot. delay is the pause between answer feedback and the
// next question.
func NewBot(api Sender, games *game.Registry, repo store.Repository, delay time.Duration, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	return &Bot{api: api, games: games, repo: repo, delay: delay, log: log}
}

// Run handles updates until ctx is done or the channel closes.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	b.log.Info("Telegram bot started")
	for {
		select {
		case <-ctx.Done():
			b.log.Info("Telegram bot shutting down", "reason", ctx.Err())
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate dispatches a single update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func keyFor(userID, chatID int64) game.Key {
	return game.Key{
		UserID:    "tg_" + strconv.FormatInt(userID, 10),
		SessionID: "chat_" + strconv.FormatInt(chatID, 10),
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	key := keyFor(m.From.ID, chatID)
	b.ensureUser(ctx, key.UserID, m.From)

	switch m.Command() {
	case "start":
		b.sendMenu(chatID)
	case "quit":
		if b.games.Discard(key) {
			b.sendText(chatID, "Game abandoned.")
		} else {
			b.sendText(chatID, "No game in progress.")
		}
	default:
		b.sendText(chatID, unknownCommand)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	key := keyFor(cb.From.ID, chatID)
	notice := ""
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, notice)); err != nil {
			b.log.Debug("Failed to answer callback", "error", err)
		}
	}()

	if n, ok := parseQuizCallback(cb.Data); ok {
		b.ensureUser(ctx, key.UserID, cb.From)
		titles := b.games.Catalog().Titles()
		if n >= len(titles) {
			notice = "This quiz is no longer available."
			return
		}
		view, err := b.games.Start(key, titles[n])
		if err != nil {
			notice = err.Error()
			return
		}
		b.sendView(chatID, view)
		return
	}

	pos, idx, ok := parseAnswerCallback(cb.Data)
	if !ok {
		notice = "Unknown action."
		return
	}

	view, err := b.games.View(key)
	if err != nil || view.Finished || view.Position != pos {
		notice = "This question was already answered."
		return
	}

	out, err := b.games.Answer(ctx, key, idx, channelName)
	if err != nil {
		notice = err.Error()
		return
	}

	b.sendText(chatID, feedbackText(out))
	b.after(func() { b.sendNext(key, chatID, out) })
}

func (b *Bot) after(fn func()) {
	if b.delay <= 0 {
		fn()
		return
	}
	time.AfterFunc(b.delay, fn)
}

func (b *Bot) sendNext(key game.Key, chatID int64, out game.Outcome) {
	if out.Finished {
		b.sendText(chatID, summaryText(*out.Summary))
		return
	}
	view, err := b.games.View(key)
	if err != nil {
		return
	}
	b.sendView(chatID, view)
}

func (b *Bot) sendMenu(chatID int64) {
	titles := b.games.Catalog().Titles()
	if len(titles) == 0 {
		b.sendText(chatID, "No quizzes available.")
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, len(titles))
	for i, t := range titles {
		rows[i] = tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(t, quizPrefix+strconv.Itoa(i)),
		)
	}

	msg := tgbotapi.NewMessage(chatID, "Choose a quiz:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.send(msg)
}

func (b *Bot) sendView(chatID int64, view game.View) {
	if view.Finished {
		b.sendText(chatID, summaryText(*view.Summary))
		return
	}
	b.send(questionMessage(chatID, view))
}

func (b *Bot) sendText(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Warn("Failed to send Telegram message", "error", err)
	}
}

func (b *Bot) ensureUser(ctx context.Context, userID string, from *tgbotapi.User) {
	if b.repo == nil {
		return
	}
	name := from.UserName
	if name == "" {
		name = strings.TrimSpace(from.FirstName + " " + from.LastName)
	}
	if name == "" {
		name = userID
	}
	if err := identity.EnsureUser(ctx, b.repo, userID, name); err != nil {
		b.log.Warn("Failed to ensure Telegram user", "error", err, "user_id", userID)
	}
}

func questionMessage(chatID int64, view game.View) tgbotapi.MessageConfig {
	q := view.Question
	rows := make([][]tgbotapi.InlineKeyboardButton, len(q.Answers))
	for i, a := range q.Answers {
		data := fmt.Sprintf("%s%d:%d", answerPrefix, view.Position, i)
		rows[i] = tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(a, data))
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("%s\nQuestion %d/%d\n\n%s", view.Title, q.Number, view.Total, q.Prompt))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	return msg
}

func feedbackText(out game.Outcome) string {
	if out.Correct {
		return fmt.Sprintf("Correct! Score: %d", out.Score)
	}
	return fmt.Sprintf("Wrong. Score: %d", out.Score)
}

func summaryText(s quiz.Summary) string {
	verdict := failMessage
	if s.Passed {
		verdict = passMessage
	}
	return fmt.Sprintf("%s finished: %d/%d\n%s", s.Title, s.Score, s.Total, verdict)
}

func parseQuizCallback(data string) (int, bool) {
	rest, ok := strings.CutPrefix(data, quizPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func parseAnswerCallback(data string) (pos, idx int, ok bool) {
	rest, found := strings.CutPrefix(data, answerPrefix)
	if !found {
		return 0, 0, false
	}
	p, i, found := strings.Cut(rest, ":")
	if !found {
		return 0, 0, false
	}
	pos, err := strconv.Atoi(p)
	if err != nil || pos < 0 {
		return 0, 0, false
	}
	idx, err = strconv.Atoi(i)
	if err != nil {
		return 0, 0, false
	}
	return pos, idx, true
}
