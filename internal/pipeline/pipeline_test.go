package pipeline

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/mediastream/internal/capture"
	"github.com/lanikai/mediastream/internal/codec"
	"github.com/lanikai/mediastream/internal/format"
	"github.com/lanikai/mediastream/internal/media"
	"github.com/lanikai/mediastream/internal/media/h264"
)

// fakeEncoder emits an IDR access unit when forced (and for the first frame),
// otherwise a P slice. Every skipEvery'th frame is skipped.
type fakeEncoder struct {
	frames    int
	force     bool
	skipEvery int
	sizes     []image.Point
	closed    bool
}

func (e *fakeEncoder) EncodeFrame(dst []byte, img image.Image) (int, error) {
	e.frames++
	e.sizes = append(e.sizes, img.Bounds().Size())
	if e.skipEvery > 0 && e.frames%e.skipEvery == 0 && !e.force {
		return 0, nil
	}
	if e.frames == 1 || e.force {
		e.force = false
		return copy(dst, []byte{0, 0, 0, 1, 0x67, 0x42, 0xc0, 0x0b, 0, 0, 0, 1, 0x68, 0xce, 0x3c, 0x80, 0, 0, 0, 1, 0x65, 0x88}), nil
	}
	return copy(dst, []byte{0, 0, 0, 1, 0x41, 0x9a, byte(e.frames)}), nil
}

func (e *fakeEncoder) ForceIntraFrame() error { e.force = true; return nil }
func (e *fakeEncoder) Close() error           { e.closed = true; return nil }

func fakeCodec(enc *fakeEncoder) *codec.Codec {
	return &codec.Codec{
		Name:         "fake",
		MimeType:     "video/H264",
		PayloadType:  96,
		ClockRate:    90000,
		New:          func(codec.Params) (codec.VideoEncoder, error) { return enc, nil },
		NewPayloader: func() rtp.Payloader { return &codecs.H264Payloader{} },
		IsKeyFrame:   h264.IsKeyFrame,
	}
}

func newTestPipeline(t *testing.T, enc *fakeEncoder, limit int, cfg Config) *Pipeline {
	tp := capture.NewTestPattern()
	tp.Limit = limit
	i420, _ := format.I420.FourCC()
	s, err := capture.NewSession(tp, capture.VideoProperty{PixelFormat: i420, Width: 32, Height: 16, FrameRate: 500}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	if cfg.Bitrate == 0 {
		cfg.Bitrate = 100000
	}
	p, err := New(s, fakeCodec(enc), cfg)
	require.NoError(t, err)
	return p
}

// sample builds an all-black I420 sample for direct encode calls.
func sample(seq uint64) *capture.SampleBuffer {
	buf := capture.NewSampleBuffer(make([]byte, 32*16*3/2), time.Duration(seq)*time.Millisecond, nil)
	buf.Sequence = seq
	return buf
}

func TestRunUntilCaptureEnds(t *testing.T) {
	enc := &fakeEncoder{}
	p := newTestPipeline(t, enc, 10, Config{})
	ch := p.Subscribe(100)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Run(ctx))
	require.NoError(t, p.Close())
	assert.True(t, enc.closed)

	var packets []*media.Packet
	for pkt := range ch {
		packets = append(packets, pkt)
	}
	require.NotEmpty(t, packets)
	assert.True(t, packets[0].KeyFrame)

	stats := p.Stats()
	assert.EqualValues(t, 10, stats.Captured)
	assert.LessOrEqual(t, stats.Encoded+stats.Missed, stats.Captured)
	assert.Zero(t, stats.Failed)
	assert.EqualValues(t, len(packets), stats.Encoded)
	for _, size := range enc.sizes {
		assert.Equal(t, image.Pt(32, 16), size)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	p := newTestPipeline(t, &fakeEncoder{}, 0, Config{})
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestKeyFrameInterval(t *testing.T) {
	enc := &fakeEncoder{}
	p := newTestPipeline(t, enc, 0, Config{KeyFrameInterval: 3})
	ch := p.Subscribe(100)

	for seq := uint64(1); seq <= 7; seq++ {
		require.NoError(t, p.encode(sample(seq)))
	}

	var keys []bool
	for i := 0; i < 7; i++ {
		keys = append(keys, (<-ch).KeyFrame)
	}
	// Subscribe requested a key frame for frame 1.
	assert.Equal(t, []bool{true, false, false, true, false, false, true}, keys)
	assert.EqualValues(t, 3, p.Stats().KeyFrames)
}

func TestRequestKeyFrame(t *testing.T) {
	enc := &fakeEncoder{}
	p := newTestPipeline(t, enc, 0, Config{})
	ch := p.Subscribe(10)

	require.NoError(t, p.encode(sample(1)))
	require.NoError(t, p.encode(sample(2)))
	p.RequestKeyFrame()
	require.NoError(t, p.encode(sample(3)))

	assert.True(t, (<-ch).KeyFrame)
	assert.False(t, (<-ch).KeyFrame)
	assert.True(t, (<-ch).KeyFrame)
}

func TestSkippedFrames(t *testing.T) {
	enc := &fakeEncoder{skipEvery: 2}
	p := newTestPipeline(t, enc, 0, Config{})
	ch := p.Subscribe(10)

	for seq := uint64(1); seq <= 4; seq++ {
		require.NoError(t, p.encode(sample(seq)))
	}

	stats := p.Stats()
	assert.EqualValues(t, 2, stats.Skipped)
	assert.EqualValues(t, 2, stats.Encoded)
	assert.Len(t, ch, 2)
}

type recordingSink struct {
	packets []*media.Packet
	closed  chan struct{}
	onKey   func()
}

func (s *recordingSink) WritePacket(p *media.Packet) error {
	s.packets = append(s.packets, p)
	return nil
}

func (s *recordingSink) Close() error             { close(s.closed); return nil }
func (s *recordingSink) OnKeyFrameRequest(f func()) { s.onKey = f }

func TestAddSink(t *testing.T) {
	enc := &fakeEncoder{}
	p := newTestPipeline(t, enc, 0, Config{})
	sink := &recordingSink{closed: make(chan struct{})}
	p.AddSink(sink)
	require.NotNil(t, sink.onKey)

	require.NoError(t, p.encode(sample(1)))
	require.NoError(t, p.encode(sample(2)))
	sink.onKey()
	require.NoError(t, p.encode(sample(3)))
	require.NoError(t, p.Close())

	<-sink.closed
	require.Len(t, sink.packets, 3)
	assert.True(t, sink.packets[2].KeyFrame)
	assert.EqualValues(t, 3, sink.packets[2].Sequence)
}
