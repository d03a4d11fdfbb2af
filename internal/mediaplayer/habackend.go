package mediaplayer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// HomeAssistantBackend calls the Home Assistant REST API's service
// endpoints, grounded on the resty client shape of
// other_examples/glebovdev-somafm-cli's SomaFMClient (base URL + typed
// request builder) but pointed at HA's `/api/services/<domain>/<service>`
// and `/api/states/<entity_id>` routes instead of SomaFM's station list.
type HomeAssistantBackend struct {
	client *resty.Client
}

// NewHomeAssistantBackend builds a client against a Home Assistant
// instance at baseURL, authenticating with a long-lived access token.
func NewHomeAssistantBackend(baseURL, token string) *HomeAssistantBackend {
	return &HomeAssistantBackend{
		client: resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(token).
			SetHeader("Content-Type", "application/json"),
	}
}

func (b *HomeAssistantBackend) callService(ctx context.Context, domain, service string, body map[string]any) error {
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(fmt.Sprintf("/api/services/%s/%s", domain, service))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("home assistant service call failed: %s", resp.Status())
	}
	return nil
}

// CallPlayMedia issues media_player.play_media.
func (b *HomeAssistantBackend) CallPlayMedia(ctx context.Context, entityID, content, contentType string) error {
	return b.callService(ctx, "media_player", "play_media", map[string]any{
		"entity_id":          entityID,
		"media_content_id":   content,
		"media_content_type": contentType,
	})
}

// CallStop issues media_player.media_stop.
func (b *HomeAssistantBackend) CallStop(ctx context.Context, entityID string) error {
	return b.callService(ctx, "media_player", "media_stop", map[string]any{"entity_id": entityID})
}

// CallSetVolume issues media_player.volume_set.
func (b *HomeAssistantBackend) CallSetVolume(ctx context.Context, entityID string, level float64) error {
	return b.callService(ctx, "media_player", "volume_set", map[string]any{
		"entity_id":    entityID,
		"volume_level": level,
	})
}

// State queries /api/states/<entity_id> and reports whether the
// entity is reachable (state != "unavailable").
func (b *HomeAssistantBackend) State(ctx context.Context, entityID string) (bool, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/api/states/%s", entityID))
	if err != nil {
		return false, err
	}
	if resp.IsError() {
		return false, fmt.Errorf("home assistant state query failed: %s", resp.Status())
	}

	var payload struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return false, err
	}
	return payload.State != "" && payload.State != "unavailable", nil
}

var _ Backend = (*HomeAssistantBackend)(nil)
