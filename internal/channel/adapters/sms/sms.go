// Package sms implements the ChannelAdapter contract for SMS via Twilio
// (§4.5): requires an E.164 recipient_ref; media_ref, if present, is appended
// to the body as a URL since SMS has no separate attachment slot in this
// contract.
package sms

import (
	"context"

	"github.com/chris-alexander-pop/system-design-library/internal/channel"
	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
	"github.com/chris-alexander-pop/system-design-library/pkg/validator"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Config holds the Twilio credentials this adapter needs.
type Config struct {
	AccountSID string `env:"SMS_TWILIO_ACCOUNT_SID" validate:"required"`
	AuthToken  string `env:"SMS_TWILIO_AUTH_TOKEN" validate:"required"`
	FromNumber string `env:"SMS_TWILIO_FROM_NUMBER" validate:"required,phone_e164"`
}

// Adapter implements channel.Adapter for SMS.
type Adapter struct {
	client *twilio.RestClient
	from   string
}

// New constructs an SMS Adapter backed by Twilio.
func New(cfg Config) (*Adapter, error) {
	if err := validator.New().ValidateStruct(cfg); err != nil {
		return nil, errors.InvalidArgument("invalid sms config", err)
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Adapter{client: client, from: cfg.FromNumber}, nil
}

func (a *Adapter) Channel() domain.ChannelKind { return domain.ChannelSMS }

func (a *Adapter) Send(ctx context.Context, req channel.SendRequest) (channel.SendResult, error) {
	if req.RecipientRef == "" {
		return channel.SendResult{Error: "sms requires a recipient_ref in E.164 format", Category: channel.ErrorCategoryValidation}, nil
	}

	body := req.Text
	if req.MediaRef != "" {
		body += " " + req.MediaRef
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(req.RecipientRef)
	params.SetFrom(a.from)
	params.SetBody(body)

	resp, err := a.client.Api.CreateMessage(params)
	if err != nil {
		return channel.SendResult{Error: err.Error(), Category: channel.ErrorCategoryTransport}, nil
	}

	ref := ""
	if resp.Sid != nil {
		ref = *resp.Sid
	}
	return channel.SendResult{Success: true, ExternalRef: ref}, nil
}

var _ channel.Adapter = (*Adapter)(nil)
