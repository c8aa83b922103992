package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/smartride/safety-alerts/internal/config"
)

// TwilioGateway covers both phone channels, SMS and voice, since they share
// one credential set. Construct it only when the config triple is complete.
type TwilioGateway struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioGateway(cfg config.TwilioConfig, timeout time.Duration) *TwilioGateway {
	base := &twilioclient.Client{
		Credentials: twilioclient.NewCredentials(cfg.AccountSID, cfg.AuthToken),
	}
	base.SetTimeout(timeout)

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
		Client:   base,
	})

	return &TwilioGateway{
		client: client,
		from:   cfg.FromNumber,
	}
}

func (g *TwilioGateway) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(g.from)
	params.SetBody(body)

	if _, err := g.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("sending SMS to %s: %w", to, err)
	}
	return nil
}

func (g *TwilioGateway) Call(ctx context.Context, to, promptURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioapi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(g.from)
	params.SetUrl(promptURL)

	if _, err := g.client.Api.CreateCall(params); err != nil {
		return fmt.Errorf("placing call to %s: %w", to, err)
	}
	return nil
}
