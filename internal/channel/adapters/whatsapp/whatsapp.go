// Package whatsapp implements the ChannelAdapter contract for WhatsApp via
// Twilio's WhatsApp Business API (§4.5): requires an E.164 recipient_ref,
// and sends text or an image-with-caption message when media_ref is set.
package whatsapp

import (
	"context"

	"github.com/chris-alexander-pop/system-design-library/internal/channel"
	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
	"github.com/chris-alexander-pop/system-design-library/pkg/validator"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

const whatsAppPrefix = "whatsapp:"

// Config holds the Twilio credentials this adapter needs.
type Config struct {
	AccountSID string `env:"WHATSAPP_TWILIO_ACCOUNT_SID" validate:"required"`
	AuthToken  string `env:"WHATSAPP_TWILIO_AUTH_TOKEN" validate:"required"`
	FromNumber string `env:"WHATSAPP_TWILIO_FROM_NUMBER" validate:"required,phone_e164"`
}

// Adapter implements channel.Adapter for WhatsApp.
type Adapter struct {
	client *twilio.RestClient
	from   string
}

// New constructs a WhatsApp Adapter backed by Twilio.
func New(cfg Config) (*Adapter, error) {
	if err := validator.New().ValidateStruct(cfg); err != nil {
		return nil, errors.InvalidArgument("invalid whatsapp config", err)
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Adapter{client: client, from: cfg.FromNumber}, nil
}

func (a *Adapter) Channel() domain.ChannelKind { return domain.ChannelWhatsApp }

func (a *Adapter) Send(ctx context.Context, req channel.SendRequest) (channel.SendResult, error) {
	if req.RecipientRef == "" {
		return channel.SendResult{Error: "whatsapp requires a recipient_ref in E.164 format", Category: channel.ErrorCategoryValidation}, nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(whatsAppPrefix + req.RecipientRef)
	params.SetFrom(whatsAppPrefix + a.from)
	params.SetBody(req.Text)
	if req.MediaRef != "" {
		params.SetMediaUrl([]string{req.MediaRef})
	}

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
