package domain

// DeliveryOutcome is the result of a single delivery attempt.
type DeliveryOutcome struct {
	OK      bool
	Details string
}

func Delivered() DeliveryOutcome {
	return DeliveryOutcome{OK: true}
}

func DeliveryFailed(details string) DeliveryOutcome {
	if details == "" {
		details = "delivery failed"
	}
	return DeliveryOutcome{Details: details}
}

// Command is a bot command received on the chat channel.
type Command struct {
	Name      string
	Args      string
	ChatID    string
	MessageID int
	From      string
}
