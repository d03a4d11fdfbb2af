package mediaplayer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBackend struct {
	playErr    error
	stopErr    error
	volumeErr  error
	available  bool
	stateErr   error
	lastURI    string
	lastVolume float64
	lastType   string
}

func (f *fakeBackend) CallPlayMedia(ctx context.Context, entityID, content, contentType string) error {
	f.lastURI = content
	f.lastType = contentType
	return f.playErr
}

func (f *fakeBackend) CallStop(ctx context.Context, entityID string) error { return f.stopErr }

func (f *fakeBackend) CallSetVolume(ctx context.Context, entityID string, level float64) error {
	f.lastVolume = level
	return f.volumeErr
}

func (f *fakeBackend) State(ctx context.Context, entityID string) (bool, error) {
	return f.available, f.stateErr
}

func TestPlaySongRoutesByPlatform(t *testing.T) {
	cases := []struct {
		platform     string
		song         Song
		wantContent  string
		wantContType string
	}{
		{PlatformMusicAssistant, Song{URI: "spotify:track:1"}, "spotify:track:1", "music"},
		{PlatformSonos, Song{URI: "spotify:track:1"}, "spotify:track:1", "music"},
		{PlatformAlexaMedia, Song{Title: "Thriller", Artist: "Michael Jackson", URI: "spotify:track:1"}, "Thriller by Michael Jackson", ProviderSpotify},
	}

	for _, tc := range cases {
		backend := &fakeBackend{}
		p := New("media_player.test", tc.platform, backend, zap.NewNop())
		err := p.PlaySong(context.Background(), tc.song)
		require.NoError(t, err)
		assert.Equal(t, tc.wantContent, backend.lastURI)
		assert.Equal(t, tc.wantContType, backend.lastType)
	}
}

func TestPlaySongUnsupportedPlatform(t *testing.T) {
	backend := &fakeBackend{}
	p := New("media_player.test", "chromecast", backend, zap.NewNop())
	err := p.PlaySong(context.Background(), Song{URI: "u"})
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestPlaySongBackendFailure(t *testing.T) {
	backend := &fakeBackend{playErr: errors.New("boom")}
	p := New("media_player.test", PlatformSonos, backend, zap.NewNop())
	err := p.PlaySong(context.Background(), Song{URI: "u"})
	assert.Error(t, err)
}

func TestSetVolumeClamps(t *testing.T) {
	backend := &fakeBackend{}
	p := New("media_player.test", PlatformSonos, backend, zap.NewNop())

	require.NoError(t, p.SetVolume(context.Background(), 1.5))
	assert.Equal(t, 1.0, backend.lastVolume)

	require.NoError(t, p.SetVolume(context.Background(), -0.5))
	assert.Equal(t, 0.0, backend.lastVolume)
}

func TestMetadataReflectsCurrentSong(t *testing.T) {
	backend := &fakeBackend{}
	p := New("media_player.test", PlatformSonos, backend, zap.NewNop())

	assert.Equal(t, Metadata{}, p.Metadata())

	require.NoError(t, p.PlaySong(context.Background(), Song{Title: "Song", Artist: "Artist", AlbumArt: "art.png"}))
	assert.Equal(t, Metadata{Artist: "Artist", Title: "Song", AlbumArt: "art.png"}, p.Metadata())

	require.NoError(t, p.Stop(context.Background()))
	assert.Equal(t, Metadata{}, p.Metadata())
}

func TestVerifyResponsiveSucceedsImmediately(t *testing.T) {
	backend := &fakeBackend{available: true}
	p := New("media_player.test", PlatformSonos, backend, zap.NewNop())

	ok, reason := p.VerifyResponsive(context.Background(), time.Second)
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestVerifyResponsiveTimesOut(t *testing.T) {
	backend := &fakeBackend{available: false}
	p := New("media_player.test", PlatformSonos, backend, zap.NewNop())

	ok, reason := p.VerifyResponsive(context.Background(), 50*time.Millisecond)
	assert.False(t, ok)
	assert.NotEmpty(t, reason)
}

func TestFailureHookFiresOnBackendErrors(t *testing.T) {
	backend := &fakeBackend{playErr: errors.New("boom"), stopErr: errors.New("boom"), volumeErr: errors.New("boom")}
	p := New("media_player.test", PlatformSonos, backend, zap.NewNop())

	var failures []string
	p.SetFailureHook(func(platform string) { failures = append(failures, platform) })

	_ = p.PlaySong(context.Background(), Song{URI: "u"})
	_ = p.Stop(context.Background())
	_ = p.SetVolume(context.Background(), 0.5)

	assert.Equal(t, []string{PlatformSonos, PlatformSonos, PlatformSonos}, failures)
}

func TestFailureHookSilentOnSuccess(t *testing.T) {
	backend := &fakeBackend{}
	p := New("media_player.test", PlatformSonos, backend, zap.NewNop())

	var calls int
	p.SetFailureHook(func(string) { calls++ })

	require.NoError(t, p.PlaySong(context.Background(), Song{URI: "u"}))
	assert.Zero(t, calls)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	backend := &fakeBackend{}
	p := New("media_player.a", PlatformSonos, backend, zap.NewNop())

	r.Register("media_player.a", p)
	got, ok := r.Get("media_player.a")
	assert.True(t, ok)
	assert.Same(t, p, got)

	assert.Equal(t, []string{"media_player.a"}, r.EntityIDs())

	r.Remove("media_player.a")
	_, ok = r.Get("media_player.a")
	assert.False(t, ok)
}
