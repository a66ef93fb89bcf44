//////////////////////////////////////////////////////////////////////////////
//
// File media sink
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package media

import (
	"io"
	"os"
	"strings"
)

// FileSink writes the raw elementary stream to a file, or to stdout for "-".
type FileSink struct {
	w io.WriteCloser
}

func NewFileSink(filename string) (*FileSink, error) {
	if filename == "-" {
		return &FileSink{w: nopCloser{os.Stdout}}, nil
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	log.Info("Writing to %s", filename)
	return &FileSink{w: f}, nil
}

// Write packet data to file
func (s *FileSink) WritePacket(p *Packet) error {
	_, err := s.w.Write(p.Data)
	return err
}

// Close file sink
func (s *FileSink) Close() error {
	return s.w.Close()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func init() {
	RegisterSinkType("file", func(target string, info StreamInfo) (Sink, error) {
		return NewFileSink(strings.TrimPrefix(target, "file://"))
	})
}
