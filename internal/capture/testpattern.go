package capture

import (
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/lanikai/mediastream/internal/format"
)

// TestPattern is a synthetic Device producing scrolling colour bars.
type TestPattern struct {
	// Stop after this many frames and report io.EOF. Zero means unlimited.
	Limit int

	p    VideoProperty
	pool sync.Pool

	mu   sync.Mutex
	quit chan struct{}
	done chan struct{}
}

// NewTestPattern returns a synthetic capture device.
func NewTestPattern() *TestPattern {
	return &TestPattern{}
}

// BT.601 studio range Y, Cb, Cr of the classic eight bars.
var bars = [8][3]byte{
	{235, 128, 128}, // white
	{210, 16, 146},  // yellow
	{170, 166, 16},  // cyan
	{145, 54, 34},   // green
	{106, 202, 222}, // magenta
	{81, 90, 240},   // red
	{41, 240, 110},  // blue
	{16, 128, 128},  // black
}

func (tp *TestPattern) Configure(p VideoProperty) (VideoProperty, error) {
	if p.Width == 0 {
		p.Width = 640
	}
	if p.Height == 0 {
		p.Height = 480
	}
	if p.FrameRate <= 0 {
		p.FrameRate = 30
	}
	if p.PixelFormat == 0 {
		p.PixelFormat, _ = format.I420.FourCC()
	}
	if p.Width%2 != 0 || p.Height%2 != 0 || p.Width < 0 || p.Height < 0 {
		return p, errors.Errorf("testpattern: invalid frame size %dx%d", p.Width, p.Height)
	}
	switch pf, _ := p.PixelFormat.PixelFormat(); pf {
	case format.I420, format.NV12, format.YUY2, format.UYVY:
	default:
		return p, errors.Errorf("testpattern: unsupported pixel format %v", p.PixelFormat)
	}

	tp.p = p
	size := p.BufferSize()
	tp.pool.New = func() interface{} {
		b := make([]byte, size)
		return &b
	}
	return p, nil
}

func (tp *TestPattern) Start(out Output) error {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if tp.quit != nil {
		return errors.New("testpattern: already started")
	}
	if tp.p.Width == 0 {
		return errors.New("testpattern: not configured")
	}
	tp.quit = make(chan struct{})
	tp.done = make(chan struct{})
	go tp.run(out, tp.quit, tp.done)
	return nil
}

func (tp *TestPattern) run(out Output, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := time.Duration(float64(time.Second) / tp.p.FrameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 0; ; n++ {
		if tp.Limit > 0 && n >= tp.Limit {
			out.Fail(io.EOF)
			return
		}

		bp := tp.pool.Get().(*[]byte)
		tp.draw(*bp, n)
		out.WriteSample(NewSampleBuffer(*bp, time.Duration(n)*interval, func() { tp.pool.Put(bp) }))

		select {
		case <-quit:
			return
		case <-ticker.C:
		}
	}
}

// Draw frame n. Bars scroll left by two pixels per frame.
func (tp *TestPattern) draw(buf []byte, n int) {
	w, h := tp.p.Width, tp.p.Height
	bar := func(x int) [3]byte {
		return bars[((x+2*n)%w)*len(bars)/w]
	}

	pf, _ := tp.p.PixelFormat.PixelFormat()
	switch pf {
	case format.I420, format.NV12:
		cw, ch := w/2, h/2
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				buf[y*w+x] = bar(x)[0]
			}
		}
		chroma := buf[w*h:]
		for y := 0; y < ch; y++ {
			for x := 0; x < cw; x++ {
				c := bar(2 * x)
				if pf == format.I420 {
					chroma[y*cw+x] = c[1]
					chroma[cw*ch+y*cw+x] = c[2]
				} else {
					chroma[2*(y*cw+x)] = c[1]
					chroma[2*(y*cw+x)+1] = c[2]
				}
			}
		}
	case format.YUY2, format.UYVY:
		for y := 0; y < h; y++ {
			row := buf[2*w*y:]
			for x := 0; x < w; x += 2 {
				c := bar(x)
				p := row[2*x : 2*x+4]
				if pf == format.YUY2 {
					p[0], p[1], p[2], p[3] = c[0], c[1], bar(x + 1)[0], c[2]
				} else {
					p[0], p[1], p[2], p[3] = c[1], c[0], c[2], bar(x + 1)[0]
				}
			}
		}
	}
}

func (tp *TestPattern) Stop() error {
	tp.mu.Lock()
	quit, done := tp.quit, tp.done
	tp.quit, tp.done = nil, nil
	tp.mu.Unlock()

	if quit != nil {
		close(quit)
		<-done
	}
	return nil
}

func (tp *TestPattern) Close() error {
	return tp.Stop()
}
