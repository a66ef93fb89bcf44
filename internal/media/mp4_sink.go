package media

import (
	"os"
	"time"

	"github.com/nareix/joy4/av"
	"github.com/nareix/joy4/codec/h264parser"
	"github.com/nareix/joy4/format/mp4"
	"github.com/pkg/errors"

	"github.com/lanikai/mediastream/internal/media/h264"
)

// MP4Sink muxes an H.264 stream into an MP4 file. Packets before the first
// key frame carrying SPS and PPS are discarded.
type MP4Sink struct {
	file  *os.File
	muxer *mp4.Muxer

	started bool
	start   time.Duration
	skipped int
}

func NewMP4Sink(filename string) (*MP4Sink, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	log.Info("Writing MP4 to %s", filename)
	return &MP4Sink{file: f, muxer: mp4.NewMuxer(f)}, nil
}

func (s *MP4Sink) WritePacket(p *Packet) error {
	if !s.started {
		if !p.KeyFrame {
			s.skipped++
			return nil
		}
		sps, pps := h264.ParameterSets(p.Data)
		if sps == nil || pps == nil {
			s.skipped++
			return nil
		}
		cd, err := h264parser.NewCodecDataFromSPSAndPPS(sps, pps)
		if err != nil {
			return errors.Wrap(err, "mp4")
		}
		if err := s.muxer.WriteHeader([]av.CodecData{cd}); err != nil {
			return errors.Wrap(err, "mp4 header")
		}
		log.Debug("MP4 stream %dx%d, skipped %d packets", cd.Width(), cd.Height(), s.skipped)
		s.started = true
		s.start = p.Timestamp
	}

	return s.muxer.WritePacket(av.Packet{
		IsKeyFrame: p.KeyFrame,
		Idx:        0,
		Time:       p.Timestamp - s.start,
		Data:       h264.ToAVCC(p.Data, true),
	})
}

// Close writes the MP4 index and closes the file.
func (s *MP4Sink) Close() error {
	var err error
	if s.started {
		err = s.muxer.WriteTrailer()
	}
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func init() {
	RegisterSinkType("mp4", func(target string, info StreamInfo) (Sink, error) {
		if info.Codec != nil && info.Codec.Name != "h264" {
			return nil, errors.Wrapf(errNotSupported, "mp4 with codec %s", info.Codec.Name)
		}
		return NewMP4Sink(target)
	})
}
