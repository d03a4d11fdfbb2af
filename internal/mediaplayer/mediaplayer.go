// Package mediaplayer routes song playback to a platform-specific
// backend, grounded on the connect/load/play state-machine shape of
// the teacher's Player (backend/music-service/main.go) but replacing
// its LiveKit/GStreamer audio pipeline with platform-tagged playback
// calls per spec.md §4.4 — this service never touches audio bytes.
package mediaplayer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Platform tags carried on a configured player entity (spec.md §4.4).
const (
	PlatformMusicAssistant = "music_assistant"
	PlatformSonos          = "sonos"
	PlatformAlexaMedia     = "alexa_media"
)

// Provider tags used by the alexa_media text-search route.
const (
	ProviderSpotify     = "SPOTIFY"
	ProviderAppleMusic  = "APPLE_MUSIC"
)

// ErrUnsupportedPlatform is returned by PlaySong when the configured
// player's platform tag has no routing rule (spec.md §4.4).
var ErrUnsupportedPlatform = errors.New("UNSUPPORTED_PLATFORM")

// Song is the minimal playback request shape MediaPlayer needs; it is
// deliberately decoupled from internal/playlist.Song to avoid an
// import cycle back from the internal/game package.
type Song struct {
	URI             string
	URIAppleMusic   string
	URIYouTubeMusic string
	Title           string
	Artist          string
	AlbumArt        string
}

// Metadata is the now-playing summary returned by Metadata (spec.md §4.4).
type Metadata struct {
	Artist   string
	Title    string
	AlbumArt string
}

// Backend performs the actual platform call. Production code wires a
// Home-Assistant-style service-call client here; tests use a fake.
type Backend interface {
	// CallPlayMedia issues a platform play-media service call.
	// contentType is the HA media_content_type equivalent ("music",
	// "SPOTIFY", "APPLE_MUSIC", ...).
	CallPlayMedia(ctx context.Context, entityID, content, contentType string) error
	CallStop(ctx context.Context, entityID string) error
	CallSetVolume(ctx context.Context, entityID string, level float64) error
	// State returns whether the entity currently looks reachable, and
	// any reported error message.
	State(ctx context.Context, entityID string) (available bool, err error)
}

// Player is the MediaPlayer capability set of spec.md §4.4, routed by
// platform tag.
type Player struct {
	mu       sync.RWMutex
	entityID string
	platform string
	backend  Backend
	log      *zap.Logger

	current *Song

	// onFailure, when set, is invoked (off the lock) after any backend
	// call returns an error, letting Bootstrap count platform failures
	// without mediaplayer importing the metrics package.
	onFailure func(platform string)
}

// New constructs a Player bound to one configured entity and platform.
func New(entityID, platform string, backend Backend, log *zap.Logger) *Player {
	return &Player{entityID: entityID, platform: platform, backend: backend, log: log}
}

// SetFailureHook registers a callback invoked with the platform tag
// whenever PlaySong, Stop, or SetVolume fails. Bootstrap wires this to
// internal/metrics.
func (p *Player) SetFailureHook(hook func(platform string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFailure = hook
}

// notifyFailureLocked must be called with p.mu already held (for
// writing or reading) so the platform tag it reports is consistent.
func (p *Player) notifyFailureLocked() {
	if p.onFailure != nil {
		p.onFailure(p.platform)
	}
}

// PlaySong routes playback by platform tag (spec.md §4.4). All
// operations log and return success/failure; the caller (GameState)
// decides whether a failure is fatal for the round.
func (p *Player) PlaySong(ctx context.Context, song Song) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	switch p.platform {
	case PlatformMusicAssistant:
		err = p.backend.CallPlayMedia(ctx, p.entityID, song.URI, "music")
	case PlatformSonos:
		err = p.backend.CallPlayMedia(ctx, p.entityID, song.URI, "music")
	case PlatformAlexaMedia:
		query := fmt.Sprintf("%s by %s", song.Title, song.Artist)
		err = p.backend.CallPlayMedia(ctx, p.entityID, query, alexaContentType(song))
	default:
		err = ErrUnsupportedPlatform
	}

	if err != nil {
		p.log.Warn("play_song failed",
			zap.String("entity_id", p.entityID),
			zap.String("platform", p.platform),
			zap.Error(err),
		)
		p.notifyFailureLocked()
		return err
	}

	p.current = &song
	p.log.Info("play_song", zap.String("entity_id", p.entityID), zap.String("uri", song.URI))
	return nil
}

// alexaContentType picks SPOTIFY vs APPLE_MUSIC by which URI the song
// carries, defaulting to SPOTIFY (spec.md §4.4).
func alexaContentType(song Song) string {
	if song.URIAppleMusic != "" && song.URI == "" {
		return ProviderAppleMusic
	}
	if strings.Contains(song.URI, "apple") {
		return ProviderAppleMusic
	}
	return ProviderSpotify
}

// Stop halts playback (best-effort, per spec.md §4.7 reveal procedure).
func (p *Player) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.backend.CallStop(ctx, p.entityID); err != nil {
		p.log.Warn("stop failed", zap.String("entity_id", p.entityID), zap.Error(err))
		p.notifyFailureLocked()
		return err
	}
	p.current = nil
	return nil
}

// SetVolume clamps level to [0,1] then issues the platform call.
func (p *Player) SetVolume(ctx context.Context, level float64) error {
	if level < 0 {
		level = 0
	} else if level > 1 {
		level = 1
	}

	p.mu.RLock()
	entityID := p.entityID
	p.mu.RUnlock()

	if err := p.backend.CallSetVolume(ctx, entityID, level); err != nil {
		p.log.Warn("set_volume failed", zap.String("entity_id", entityID), zap.Error(err))
		p.mu.RLock()
		p.notifyFailureLocked()
		p.mu.RUnlock()
		return err
	}
	return nil
}

// Metadata returns the now-playing summary, or zero value if idle.
func (p *Player) Metadata() Metadata {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.current == nil {
		return Metadata{}
	}
	return Metadata{Artist: p.current.Artist, Title: p.current.Title, AlbumArt: p.current.AlbumArt}
}

// IsAvailable reports whether the entity currently looks reachable.
func (p *Player) IsAvailable(ctx context.Context) bool {
	ok, _ := p.backend.State(ctx, p.entityID)
	return ok
}

// VerifyResponsive polls State until it reports available or timeout
// elapses, returning a reason string on failure (spec.md §4.4).
func (p *Player) VerifyResponsive(ctx context.Context, timeout time.Duration) (bool, string) {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := p.backend.State(ctx, p.entityID)
		if ok {
			return true, ""
		}
		if time.Now().After(deadline) {
			reason := "timed out waiting for player"
			if err != nil {
				reason = err.Error()
			}
			return false, reason
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err().Error()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// Platform returns the configured routing tag, used by internal/httpapi's
// /api/status handler to report ma_configured (spec.md §6.2 /api/status).
func (p *Player) Platform() string { return p.platform }

// EntityID returns the configured backend entity identifier.
func (p *Player) EntityID() string { return p.entityID }
