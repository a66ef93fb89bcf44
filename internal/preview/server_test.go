package preview

import (
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/mediastream/internal/capture"
	"github.com/lanikai/mediastream/internal/codec"
	"github.com/lanikai/mediastream/internal/media/h264"
	"github.com/lanikai/mediastream/internal/pipeline"
)

// Emits an IDR access unit when forced, otherwise a P slice.
type fakeEncoder struct {
	force bool
}

func (e *fakeEncoder) EncodeFrame(dst []byte, img image.Image) (int, error) {
	if e.force {
		e.force = false
		return copy(dst, []byte{0, 0, 0, 1, 0x65, 0x88, 0x84}), nil
	}
	return copy(dst, []byte{0, 0, 0, 1, 0x41, 0x9a}), nil
}

func (e *fakeEncoder) ForceIntraFrame() error { e.force = true; return nil }
func (e *fakeEncoder) Close() error           { return nil }

var fakeH264 = &codec.Codec{
	Name:         "h264",
	MimeType:     "video/H264",
	PayloadType:  96,
	ClockRate:    90000,
	New:          func(codec.Params) (codec.VideoEncoder, error) { return &fakeEncoder{}, nil },
	NewPayloader: func() rtp.Payloader { return &codecs.H264Payloader{} },
	IsKeyFrame:   h264.IsKeyFrame,
}

// Starts a running pipeline behind a test HTTP server.
func startServer(t *testing.T) (*httptest.Server, *pipeline.Pipeline) {
	session, err := capture.NewSession(capture.NewTestPattern(),
		capture.VideoProperty{Width: 32, Height: 16, FrameRate: 100}, nil)
	require.NoError(t, err)

	p, err := pipeline.New(session, fakeH264, pipeline.Config{Bitrate: 100000})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	srv := httptest.NewServer(New("", p).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		assert.NoError(t, <-done)
		p.Close()
		session.Close()
	})
	return srv, p
}

func TestHealth(t *testing.T) {
	srv, p := startServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var h health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, p.Session().ID.String(), h.Session)
	assert.Equal(t, "h264", h.Codec)
	assert.Contains(t, h.Format, "32x16")
}

func TestMJPEG(t *testing.T) {
	srv, _ := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/?q=50", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/x-mixed-replace", mediaType)

	mr := multipart.NewReader(resp.Body, params["boundary"])
	for i := 0; i < 2; i++ {
		part, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", part.Header.Get("Content-Type"))
		img, err := jpeg.Decode(part)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 32, 16), img.Bounds())
	}
}

func TestMJPEGBadRequest(t *testing.T) {
	srv, _ := startServer(t)

	resp, err := http.Get(srv.URL + "/?q=500")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/nothing-here")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebsocketFeed(t *testing.T) {
	srv, p := startServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	var header StreamHeader
	require.NoError(t, ws.ReadJSON(&header))
	assert.Equal(t, StreamHeader{
		Codec:     "h264",
		MimeType:  "video/H264",
		Width:     32,
		Height:    16,
		FrameRate: 100,
	}, header)

	// Subscribing requests a key frame. A frame already in flight may arrive
	// ahead of it.
	var keyAt int
	for keyAt = 0; keyAt < 5; keyAt++ {
		mt, data, err := ws.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.BinaryMessage, mt)
		if h264.IsKeyFrame(data) {
			break
		}
	}
	assert.Less(t, keyAt, 5)

	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.False(t, h264.IsKeyFrame(data))

	before := p.Stats().KeyFrames
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("keyframe")))
	for {
		_, data, err = ws.ReadMessage()
		require.NoError(t, err)
		if h264.IsKeyFrame(data) {
			break
		}
	}
	assert.Greater(t, p.Stats().KeyFrames, before)
}
