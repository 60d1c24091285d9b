package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"postbackbot/internal/domain"
	"postbackbot/pkg/logger"
	"postbackbot/pkg/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

const telegramAPI = "telegram"

// TelegramBot implements domain.Notifier and domain.CommandSource on top of the
// Bot API. Long polling and message sends share one BotAPI but use separate
// HTTP clients so a send is never held to the long-poll timeout.
type TelegramBot struct {
	bot         *tgbotapi.BotAPI
	logger      *logger.Logger
	metrics     *metrics.Metrics
	rateLimiter *rate.Limiter
	pollTimeout int
}

// routes getUpdates to the long-poll client and everything else to the send client
type splitClient struct {
	send *http.Client
	poll *http.Client
}

func (c splitClient) Do(req *http.Request) (*http.Response, error) {
	if strings.HasSuffix(req.URL.Path, "/getUpdates") {
		return c.poll.Do(req)
	}
	return c.send.Do(req)
}

// creates a bot and verifies the token with getMe
func NewTelegramBot(token, apiEndpoint string, timeout time.Duration, pollTimeout, ratePerSecond, burst int, logger *logger.Logger, metrics *metrics.Metrics) (*TelegramBot, error) {
	client := splitClient{
		send: &http.Client{Timeout: timeout},
		poll: &http.Client{Timeout: time.Duration(pollTimeout)*time.Second + timeout},
	}

	if err := tgbotapi.SetLogger(logger.WithField("component", "telegram")); err != nil {
		return nil, fmt.Errorf("failed to set telegram logger: %w", err)
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		metrics.RecordExternalAPIFailure(telegramAPI, "auth")
		return nil, fmt.Errorf("failed to initialise telegram bot: %w", err)
	}

	logger.WithField("bot", bot.Self.UserName).Info("Telegram bot authorised")

	return &TelegramBot{
		bot:         bot,
		logger:      logger,
		metrics:     metrics,
		rateLimiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		pollTimeout: pollTimeout,
	}, nil
}

// Username returns the bot's @name without the at sign.
func (b *TelegramBot) Username() string {
	return b.bot.Self.UserName
}

// Send delivers an HTML message to a numeric chat id or an @channel name.
func (b *TelegramBot) Send(ctx context.Context, destination, text string) error {
	start := time.Now()

	msg, err := newMessage(destination, text)
	if err != nil {
		b.metrics.RecordExternalAPIFailure(telegramAPI, "request_creation")
		return err
	}

	if err := b.rateLimiter.Wait(ctx); err != nil {
		b.metrics.RecordExternalAPIFailure(telegramAPI, "rate_limit")
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	// the Bot API client takes no context; the send client's timeout bounds
	// the goroutine after ctx is done
	done := make(chan error, 1)
	go func() {
		_, err := b.bot.Send(msg)
		done <- err
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		b.metrics.RecordExternalAPIFailure(telegramAPI, "timeout")
		return fmt.Errorf("telegram send aborted: %w", ctx.Err())
	}

	duration := time.Since(start)
	if err != nil {
		b.metrics.RecordExternalAPICall(telegramAPI, "error", duration)
		return fmt.Errorf("telegram send failed: %w", err)
	}

	b.metrics.RecordExternalAPICall(telegramAPI, "success", duration)
	return nil
}

// Commands long-polls for bot commands until ctx is cancelled. Messages that
// are not commands are dropped.
func (b *TelegramBot) Commands(ctx context.Context) <-chan domain.Command {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = b.pollTimeout
	config.AllowedUpdates = []string{"message", "channel_post"}

	updates := b.bot.GetUpdatesChan(config)
	out := make(chan domain.Command)

	go func() {
		defer close(out)
		defer b.bot.StopReceivingUpdates()

		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				cmd, ok := toCommand(update)
				if !ok {
					continue
				}
				select {
				case out <- cmd:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

func newMessage(destination, text string) (tgbotapi.MessageConfig, error) {
	var msg tgbotapi.MessageConfig
	if chatID, err := strconv.ParseInt(destination, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(chatID, text)
	} else if strings.HasPrefix(destination, "@") {
		msg = tgbotapi.NewMessageToChannel(destination, text)
	} else {
		return msg, fmt.Errorf("invalid telegram chat id %q", destination)
	}

	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return msg, nil
}

func toCommand(update tgbotapi.Update) (domain.Command, bool) {
	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return domain.Command{}, false
	}

	cmd := domain.Command{
		Name:      msg.Command(),
		Args:      msg.CommandArguments(),
		ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
		MessageID: msg.MessageID,
	}
	if msg.From != nil {
		cmd.From = msg.From.UserName
	}
	return cmd, true
}
