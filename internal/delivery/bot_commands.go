package delivery

import (
	"context"
	"sync"

	"postbackbot/internal/domain"
	"postbackbot/pkg/logger"

	"github.com/google/uuid"
)

// StatsCommand is the only command the bot answers.
const StatsCommand = "stats_7days"

// StatsRunner answers the stats command in the given chat.
type StatsRunner interface {
	RunStatsCommand(ctx context.Context, chatID string) error
}

// CommandRouter dispatches bot commands. Each command runs in its own
// goroutine so a slow reporting API never holds up the next command.
type CommandRouter struct {
	stats   StatsRunner
	allowed map[string]struct{}
	logger  *logger.Logger
	wg      sync.WaitGroup
}

// allowedChats restricts who may run commands; empty allows every chat.
func NewCommandRouter(stats StatsRunner, allowedChats []string, logger *logger.Logger) *CommandRouter {
	allowed := make(map[string]struct{}, len(allowedChats))
	for _, chatID := range allowedChats {
		allowed[chatID] = struct{}{}
	}
	return &CommandRouter{
		stats:   stats,
		allowed: allowed,
		logger:  logger,
	}
}

// Run consumes commands until the source closes, then waits for the commands
// still in flight.
func (r *CommandRouter) Run(ctx context.Context, source domain.CommandSource) error {
	r.logger.Info("Command listener started")

	for cmd := range source.Commands(ctx) {
		r.Handle(ctx, cmd)
	}

	r.wg.Wait()
	r.logger.Info("Command listener stopped")
	return nil
}

func (r *CommandRouter) Handle(ctx context.Context, cmd domain.Command) {
	ctx = context.WithValue(ctx, logger.RequestIDKey, uuid.New().String())
	ctx = context.WithValue(ctx, logger.ChatIDKey, cmd.ChatID)
	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"command": cmd.Name,
		"from":    cmd.From,
	})

	if !r.isAllowed(cmd.ChatID) {
		log.Warn("Command from chat outside the allow list ignored")
		return
	}

	switch cmd.Name {
	case StatsCommand:
		log.Info("Stats command received")
		r.wg.Go(func() {
			if err := r.stats.RunStatsCommand(ctx, cmd.ChatID); err != nil {
				log.WithError(err).Error("Stats command failed")
			}
		})
	default:
		log.Debug("Unknown command ignored")
	}
}

// Wait blocks until every command started by Handle has finished.
func (r *CommandRouter) Wait() {
	r.wg.Wait()
}

func (r *CommandRouter) isAllowed(chatID string) bool {
	if len(r.allowed) == 0 {
		return true
	}
	_, ok := r.allowed[chatID]
	return ok
}
