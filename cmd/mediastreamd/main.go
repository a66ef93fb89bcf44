package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"

	"github.com/lanikai/mediastream/internal/capture"
	"github.com/lanikai/mediastream/internal/codec"
	"github.com/lanikai/mediastream/internal/format"
	"github.com/lanikai/mediastream/internal/logging"
	"github.com/lanikai/mediastream/internal/media"
	"github.com/lanikai/mediastream/internal/pipeline"
	"github.com/lanikai/mediastream/internal/preview"
	"github.com/lanikai/mediastream/internal/v4l2"

	// Codecs and sinks register themselves.
	_ "github.com/lanikai/mediastream/internal/codec/openh264"
	_ "github.com/lanikai/mediastream/internal/codec/vpx"
	_ "github.com/lanikai/mediastream/internal/rtp"
)

// Populated via -ldflags="-X ...".
var GitRevisionId string
var GitTag string

var log = logging.DefaultLogger.WithTag("mediastreamd")

// version displays information and exits successfully (GNU convention)
func version() {
	fmt.Println("mediastreamd", GitTag, GitRevisionId)
	fmt.Println("Codecs:", strings.Join(codec.Names(), ", "))
}

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}
	if flagVersion {
		version()
		os.Exit(0)
	}

	if flagLogLevel != "" {
		level, err := logging.ParseLevel(flagLogLevel)
		if err != nil {
			log.Fatal(err)
		}
		logging.SetLevel(level)
	}

	if err := run(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

func run() error {
	c, err := codec.Lookup(flagCodec)
	if err != nil {
		return err
	}

	prop := capture.VideoProperty{
		Width:     flagWidth,
		Height:    flagHeight,
		FrameRate: flagFrameRate,
	}
	if flagFormat != "" {
		f, ok := format.PixelFormat(flagFormat).FourCC()
		if !ok {
			return errors.Errorf("unknown pixel format %q", flagFormat)
		}
		prop.PixelFormat = f
	}

	dev, err := openDevice(flagInput)
	if err != nil {
		return err
	}
	session, err := capture.NewSession(dev, prop, nil)
	if err != nil {
		dev.Close()
		return err
	}
	defer session.Close()

	p, err := pipeline.New(session, c, pipeline.Config{
		Bitrate:          flagBitrate * 1000,
		KeyFrameInterval: flagKeyFrameInterval,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	for _, target := range flagOutputs {
		sink, err := media.OpenSink(target, p.StreamInfo())
		if err != nil {
			return errors.Wrapf(err, "output %s", target)
		}
		log.Info("Writing %s to %s", c.Name, target)
		p.AddSink(sink)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if flagListen != "" {
		srv := preview.New(flagListen, p)
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				log.Error("%v", err)
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	} else if len(flagOutputs) == 0 {
		log.Warn("No --out or --listen given; frames will be encoded and discarded")
	}

	err = p.Run(ctx)
	s := p.Stats()
	log.Info("Captured %d frames, encoded %d (%d key, %d skipped, %d failed), %d bytes",
		s.Captured, s.Encoded, s.KeyFrames, s.Skipped, s.Failed, s.Bytes)
	return err
}

func openDevice(input string) (capture.Device, error) {
	if input == "testsrc" {
		return capture.NewTestPattern(), nil
	}
	return v4l2.Open(input, v4l2.Config{
		HFlip: flagHorizontalFlip,
		VFlip: flagVerticalFlip,
	})
}
