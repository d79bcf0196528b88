// Package linkedin implements the ChannelAdapter contract for LinkedIn via
// the UGC Posts API (§4.5): no recipient_ref needed, optional media_ref.
// The ChannelRouter's AI-augmented variant is expected to render a
// professional tone for this channel; the adapter itself just transmits.
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/chris-alexander-pop/system-design-library/internal/channel"
	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/pkg/client/rest"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
)

const defaultUGCBaseURL = "https://api.linkedin.com/v2/ugcPosts"

// Config holds the UGC API credentials this adapter needs.
type Config struct {
	OrganizationURN string `env:"LINKEDIN_ORGANIZATION_URN" validate:"required"`
	AccessToken     string `env:"LINKEDIN_ACCESS_TOKEN" validate:"required"`
	BaseURL         string `env:"LINKEDIN_UGC_BASE_URL"`
}

// Adapter implements channel.Adapter for LinkedIn.
type Adapter struct {
	client          *rest.Client
	organizationURN string
	accessToken     string
	baseURL         string
}

// New constructs a LinkedIn Adapter backed by the UGC Posts API.
func New(cfg Config, httpCfg rest.Config) (*Adapter, error) {
	if cfg.OrganizationURN == "" || cfg.AccessToken == "" {
		return nil, errors.InvalidArgument("linkedin requires an organization_urn and access_token", nil)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultUGCBaseURL
	}
	return &Adapter{
		client:          rest.New(httpCfg),
		organizationURN: cfg.OrganizationURN,
		accessToken:     cfg.AccessToken,
		baseURL:         baseURL,
	}, nil
}

func (a *Adapter) Channel() domain.ChannelKind { return domain.ChannelLinkedIn }

func (a *Adapter) Send(ctx context.Context, req channel.SendRequest) (channel.SendResult, error) {
	shareMediaCategory := "NONE"
	media := []map[string]interface{}{}
	if req.MediaRef != "" {
		shareMediaCategory = "IMAGE"
		media = append(media, map[string]interface{}{
			"status":      "READY",
			"description": map[string]string{"text": req.Text},
			"media":       req.MediaRef,
		})
	}

	payload := map[string]interface{}{
		"author":         a.organizationURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": map[string]interface{}{
				"shareCommentary":    map[string]string{"text": req.Text},
				"shareMediaCategory": shareMediaCategory,
				"media":              media,
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return channel.SendResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return channel.SendResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.accessToken)
	httpReq.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return channel.SendResult{Error: err.Error(), Category: channel.ErrorCategoryTransport}, nil
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return channel.SendResult{
			Error:    fmt.Sprintf("ugc api status %d: %s", resp.StatusCode, string(respBody)),
			Category: channel.ErrorCategoryTransport,
		}, nil
	}

	return channel.SendResult{Success: true, ExternalRef: resp.Header.Get("X-RestLi-Id")}, nil
}

var _ channel.Adapter = (*Adapter)(nil)
