// Package email implements the ChannelAdapter contract for Email via
// SendGrid (§4.5): requires an RFC email recipient_ref and produces both a
// plain-text and an HTML body, the latter embedding media_ref when set.
package email

import (
	"fmt"

	"context"

	"github.com/chris-alexander-pop/system-design-library/internal/channel"
	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
	"github.com/chris-alexander-pop/system-design-library/pkg/validator"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Config holds the SendGrid credentials this adapter needs.
type Config struct {
	APIKey    string `env:"EMAIL_SENDGRID_API_KEY" validate:"required"`
	FromEmail string `env:"EMAIL_FROM" validate:"required,email"`
}

// Adapter implements channel.Adapter for Email.
type Adapter struct {
	apiKey string
	from   string
}

// New constructs an Email Adapter backed by SendGrid.
func New(cfg Config) (*Adapter, error) {
	if err := validator.New().ValidateStruct(cfg); err != nil {
		return nil, errors.InvalidArgument("invalid email config", err)
	}
	return &Adapter{apiKey: cfg.APIKey, from: cfg.FromEmail}, nil
}

func (a *Adapter) Channel() domain.ChannelKind { return domain.ChannelEmail }

func (a *Adapter) Send(ctx context.Context, req channel.SendRequest) (channel.SendResult, error) {
	if req.RecipientRef == "" {
		return channel.SendResult{Error: "email requires an RFC email recipient_ref", Category: channel.ErrorCategoryValidation}, nil
	}

	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail("", a.from))

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", req.RecipientRef))
	m.AddPersonalizations(p)
	m.Subject = "You have a new message"

	html := req.Text
	if req.MediaRef != "" {
		html = fmt.Sprintf("%s<br><img src=%q>", req.Text, req.MediaRef)
	}
	m.AddContent(mail.NewContent("text/plain", req.Text))
	m.AddContent(mail.NewContent("text/html", html))

	client := sendgrid.NewSendClient(a.apiKey)
	resp, err := client.Send(m)
	if err != nil {
		return channel.SendResult{Error: err.Error(), Category: channel.ErrorCategoryTransport}, nil
	}
	if resp.StatusCode >= 400 {
		return channel.SendResult{
			Error:    fmt.Sprintf("sendgrid status %d: %s", resp.StatusCode, resp.Body),
			Category: channel.ErrorCategoryTransport,
		}, nil
	}

	return channel.SendResult{Success: true}, nil
}

var _ channel.Adapter = (*Adapter)(nil)
