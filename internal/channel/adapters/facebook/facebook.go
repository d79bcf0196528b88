// Package facebook implements the ChannelAdapter contract for Facebook Page
// posts via the Graph API (§4.5): no recipient_ref needed (the page is
// configured), posts as a photo when media_ref is present, else as text.
package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/chris-alexander-pop/system-design-library/internal/channel"
	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/pkg/client/rest"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
)

const defaultGraphBaseURL = "https://graph.facebook.com/v19.0"

// Config holds the Graph API credentials this adapter needs.
type Config struct {
	PageID      string `env:"FACEBOOK_PAGE_ID" validate:"required"`
	AccessToken string `env:"FACEBOOK_ACCESS_TOKEN" validate:"required"`
	BaseURL     string `env:"FACEBOOK_GRAPH_BASE_URL"`
}

// Adapter implements channel.Adapter for Facebook.
type Adapter struct {
	client      *rest.Client
	pageID      string
	accessToken string
	baseURL     string
}

// New constructs a Facebook Adapter backed by the Graph API.
func New(cfg Config, httpCfg rest.Config) (*Adapter, error) {
	if cfg.PageID == "" || cfg.AccessToken == "" {
		return nil, errors.InvalidArgument("facebook requires a page_id and access_token", nil)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGraphBaseURL
	}
	return &Adapter{
		client:      rest.New(httpCfg),
		pageID:      cfg.PageID,
		accessToken: cfg.AccessToken,
		baseURL:     baseURL,
	}, nil
}

func (a *Adapter) Channel() domain.ChannelKind { return domain.ChannelFacebook }

func (a *Adapter) Send(ctx context.Context, req channel.SendRequest) (channel.SendResult, error) {
	endpoint := fmt.Sprintf("%s/%s/feed", a.baseURL, a.pageID)
	form := url.Values{"message": {req.Text}, "access_token": {a.accessToken}}

	if req.MediaRef != "" {
		endpoint = fmt.Sprintf("%s/%s/photos", a.baseURL, a.pageID)
		form.Set("url", req.MediaRef)
		form.Set("caption", req.Text)
		form.Del("message")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return channel.SendResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return channel.SendResult{Error: err.Error(), Category: channel.ErrorCategoryTransport}, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return channel.SendResult{
			Error:    fmt.Sprintf("graph api status %d: %s", resp.StatusCode, string(body)),
			Category: channel.ErrorCategoryTransport,
		}, nil
	}

	var decoded struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &decoded)

	return channel.SendResult{Success: true, ExternalRef: decoded.ID}, nil
}

var _ channel.Adapter = (*Adapter)(nil)
