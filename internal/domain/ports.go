package domain

import "context"

// interface for delivering a formatted message to a chat
type Notifier interface {
	Send(ctx context.Context, destination, text string) error
}

// interface for the tracker reporting API
type ReportClient interface {
	FetchReport(ctx context.Context, query ReportQuery) (*Report, error)
}

// interface for inbound bot commands
type CommandSource interface {
	Commands(ctx context.Context) <-chan Command
}
