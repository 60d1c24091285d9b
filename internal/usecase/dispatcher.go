package usecase

import (
	"context"
	"fmt"
	"time"

	"postbackbot/internal/domain"
	"postbackbot/pkg/logger"
)

// Dispatcher delivers rendered messages. Each call is a single attempt bounded
// by timeout; failures come back as a DeliveryOutcome, never as an error or
// panic.
type Dispatcher struct {
	notifier    domain.Notifier
	destination string
	timeout     time.Duration
	logger      *logger.Logger
}

func NewDispatcher(notifier domain.Notifier, destination string, timeout time.Duration, logger *logger.Logger) *Dispatcher {
	return &Dispatcher{
		notifier:    notifier,
		destination: destination,
		timeout:     timeout,
		logger:      logger,
	}
}

// Destination is the process-wide chat postbacks are delivered to.
func (d *Dispatcher) Destination() string {
	return d.destination
}

// DeliverDefault sends message to the configured destination.
func (d *Dispatcher) DeliverDefault(ctx context.Context, message string) domain.DeliveryOutcome {
	return d.Deliver(ctx, d.destination, message)
}

func (d *Dispatcher) Deliver(ctx context.Context, destination, message string) (outcome domain.DeliveryOutcome) {
	log := d.logger.WithContext(ctx).WithField("destination", destination)

	defer func() {
		if recovered := recover(); recovered != nil {
			log.WithField("panic", recovered).Error("Notifier panicked")
			outcome = domain.DeliveryFailed(fmt.Sprintf("notifier panic: %v", recovered))
		}
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := d.notifier.Send(ctx, destination, message); err != nil {
		log.WithError(err).WithField("duration", time.Since(start)).Warn("Failed to deliver notification")
		return domain.DeliveryFailed(err.Error())
	}

	log.WithField("duration", time.Since(start)).Debug("Notification delivered")
	return domain.Delivered()
}
