//////////////////////////////////////////////////////////////////////////////
//
// Media sink interfaces and registry
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package media

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/lanikai/mediastream/internal/codec"
)

// Sink consumes encoded packets, e.g. a file or a network peer.
type Sink interface {
	WritePacket(p *Packet) error
	Close() error
}

// StreamInfo describes the packets a sink will receive.
type StreamInfo struct {
	Codec         *codec.Codec
	Width, Height int
	FrameRate     float64
}

// A function used to open a specific sink type.
type OpenFunc func(target string, info StreamInfo) (Sink, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]OpenFunc{}
)

// Register a sink type, identified by URL scheme ("rtp") or file extension
// ("mp4").
func RegisterSinkType(tag string, open OpenFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[tag] = open
}

// Open a sink from its target string. URLs are dispatched on their scheme,
// paths on their extension, and any other path is written as a raw
// elementary stream.
func OpenSink(target string, info StreamInfo) (Sink, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	// Log known sink types, for debug purposes.
	var tags []string
	for t := range registry {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	log.Debug("Registered sink types: %v", tags)

	tag := "file"
	if i := strings.Index(target, "://"); i > 0 {
		tag = target[:i]
	} else if ext := strings.TrimPrefix(filepath.Ext(target), "."); ext != "" {
		if _, found := registry[strings.ToLower(ext)]; found {
			tag = strings.ToLower(ext)
		}
	}

	open, found := registry[tag]
	if !found {
		return nil, errors.Errorf("Sink type '%s' not registered", tag)
	}
	return open(target, info)
}

// Pump writes packets from ch to sink until ch is closed, then closes the
// sink. Write errors are logged and the packet dropped.
func Pump(ch <-chan *Packet, sink Sink) error {
	for p := range ch {
		if err := sink.WritePacket(p); err != nil {
			log.Warn("Sink write failed: %v", err)
		}
	}
	return sink.Close()
}

// KeyFrameRequester is implemented by sinks whose receivers can ask for a key
// frame, e.g. after packet loss.
type KeyFrameRequester interface {
	OnKeyFrameRequest(f func())
}
