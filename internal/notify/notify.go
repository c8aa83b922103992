package notify

import "context"

// Senders wrap the external delivery providers. Each call is synchronous and
// reports only success or failure; retry is the caller's business (and today
// nobody retries).

type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// VoiceCaller places a call that plays the prompt served at promptURL when
// the callee picks up.
type VoiceCaller interface {
	Call(ctx context.Context, to, promptURL string) error
}

// Outcome is the per-trigger delivery summary. Flags are OR-aggregated
// across contacts: true means at least one contact got that channel.
type Outcome struct {
	EmailSent     bool
	SMSSent       bool
	CallInitiated bool
}

func (o Outcome) Merge(other Outcome) Outcome {
	return Outcome{
		EmailSent:     o.EmailSent || other.EmailSent,
		SMSSent:       o.SMSSent || other.SMSSent,
		CallInitiated: o.CallInitiated || other.CallInitiated,
	}
}
