// Package instagram implements the ChannelAdapter contract for Instagram
// via the Graph API (§4.5): media_ref is required; the adapter performs the
// two-step container-create-then-publish flow.
package instagram

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
	IGUserID    string `env:"INSTAGRAM_USER_ID" validate:"required"`
	AccessToken string `env:"INSTAGRAM_ACCESS_TOKEN" validate:"required"`
	BaseURL     string `env:"INSTAGRAM_GRAPH_BASE_URL"`
}

// Adapter implements channel.Adapter for Instagram.
type Adapter struct {
	client      *rest.Client
	igUserID    string
	accessToken string
	baseURL     string
}

// New constructs an Instagram Adapter backed by the Graph API.
func New(cfg Config, httpCfg rest.Config) (*Adapter, error) {
	if cfg.IGUserID == "" || cfg.AccessToken == "" {
		return nil, errors.InvalidArgument("instagram requires an ig_user_id and access_token", nil)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGraphBaseURL
	}
	return &Adapter{
		client:      rest.New(httpCfg),
		igUserID:    cfg.IGUserID,
		accessToken: cfg.AccessToken,
		baseURL:     baseURL,
	}, nil
}

func (a *Adapter) Channel() domain.ChannelKind { return domain.ChannelInstagram }

// Send performs the required two-step flow: create a media container, then
// publish it. Instagram without a media_ref is a local validation failure,
// not a transport call (§4.6).
func (a *Adapter) Send(ctx context.Context, req channel.SendRequest) (channel.SendResult, error) {
	if req.MediaRef == "" {
		return channel.SendResult{Error: "instagram requires a media_ref", Category: channel.ErrorCategoryValidation}, nil
	}

	containerID, err := a.createContainer(ctx, req.MediaRef, req.Text)
	if err != nil {
		return channel.SendResult{Error: err.Error(), Category: channel.ErrorCategoryTransport}, nil
	}

	mediaID, err := a.publishContainer(ctx, containerID)
	if err != nil {
		return channel.SendResult{Error: err.Error(), Category: channel.ErrorCategoryTransport}, nil
	}

	return channel.SendResult{Success: true, ExternalRef: mediaID}, nil
}

func (a *Adapter) createContainer(ctx context.Context, mediaRef, caption string) (string, error) {
	form := url.Values{
		"image_url":    {mediaRef},
		"caption":      {caption},
		"access_token": {a.accessToken},
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := a.post(ctx, fmt.Sprintf("%s/%s/media", a.baseURL, a.igUserID), form, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (a *Adapter) publishContainer(ctx context.Context, containerID string) (string, error) {
	form := url.Values{
		"creation_id":  {containerID},
		"access_token": {a.accessToken},
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := a.post(ctx, fmt.Sprintf("%s/%s/media_publish", a.baseURL, a.igUserID), form, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (a *Adapter) post(ctx context.Context, endpoint string, form url.Values, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("graph api status %d: %s", resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}

var _ channel.Adapter = (*Adapter)(nil)
