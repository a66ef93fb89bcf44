// Package preview serves a live view of a running pipeline over HTTP.
//
//	/         multipart MJPEG of the raw captured frames
//	/ws       websocket feed of encoded access units
//	/healthz  pipeline statistics as JSON
package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/lanikai/mediastream/internal/logging"
	"github.com/lanikai/mediastream/internal/pipeline"
	"github.com/lanikai/mediastream/internal/video"
)

var log = logging.DefaultLogger.WithTag("preview")

// StreamHeader is the first (text) message on every websocket connection.
// Binary messages that follow each carry one encoded access unit.
type StreamHeader struct {
	Codec     string  `json:"codec"`
	MimeType  string  `json:"mimeType"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FrameRate float64 `json:"frameRate"`
}

type Server struct {
	pipeline *pipeline.Pipeline
	server   *http.Server
	upgrader websocket.Upgrader
}

func New(addr string, p *pipeline.Pipeline) *Server {
	router := http.NewServeMux()
	s := &Server{
		pipeline: p,
		server: &http.Server{
			Addr:    addr,
			Handler: router,
		},
	}

	router.HandleFunc("/", s.handleMJPEG)
	router.HandleFunc("/ws", s.handleWebsocket)
	router.HandleFunc("/healthz", s.handleHealth)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// ListenAndServe blocks until the server is shut down, in which case it
// returns nil.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return errors.Wrap(err, "preview")
	}
	return s.Serve(ln)
}

func (s *Server) Serve(ln net.Listener) error {
	log.Info("Preview at http://%s/", ln.Addr())
	if err := s.server.Serve(ln); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Stream raw frames as JPEG images until the client goes away. An optional
// `q` query parameter sets the JPEG quality.
func (s *Server) handleMJPEG(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	opts := &jpeg.Options{Quality: jpeg.DefaultQuality}
	if q := r.URL.Query().Get("q"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 100 {
			http.Error(w, "invalid quality", http.StatusBadRequest)
			return
		}
		opts.Quality = n
	}

	session := s.pipeline.Session()
	prop := session.Property()

	mw := multipart.NewWriter(w)
	w.Header().Set("Content-Type", "multipart/x-mixed-replace;boundary="+mw.Boundary())
	w.Header().Set("Cache-Control", "no-cache")
	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Type", "image/jpeg")

	flusher, _ := w.(http.Flusher)
	var last uint64
	for {
		buf, err := session.NextSample(r.Context(), last)
		if err != nil {
			log.Debug("MJPEG client %s: %v", r.RemoteAddr, err)
			return
		}
		last = buf.Sequence

		err = func() error {
			defer buf.Release()
			img, release, err := video.Decode(prop.PixelFormat, buf.Bytes(), prop.Width, prop.Height)
			if err != nil {
				return err
			}
			defer release()

			part, err := mw.CreatePart(partHeader)
			if err != nil {
				return err
			}
			return jpeg.Encode(part, img, opts)
		}()
		if err != nil {
			log.Warn("MJPEG client %s: %v", r.RemoteAddr, err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade: %v", err)
		return
	}
	defer ws.Close()

	info := s.pipeline.StreamInfo()
	header := StreamHeader{
		Codec:     info.Codec.Name,
		MimeType:  info.Codec.MimeType,
		Width:     info.Width,
		Height:    info.Height,
		FrameRate: info.FrameRate,
	}
	if err := ws.WriteJSON(header); err != nil {
		log.Warn("Failed to send stream header: %v", err)
		return
	}

	ch := s.pipeline.Subscribe(0)
	defer s.pipeline.Unsubscribe(ch)
	log.Info("Websocket client %s subscribed", r.RemoteAddr)

	// The client may send the text message "keyframe". Anything else is
	// ignored. A read error means the connection is gone.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			mt, msg, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.TextMessage && string(msg) == "keyframe" {
				s.pipeline.RequestKeyFrame()
			}
		}
	}()

	for {
		select {
		case pkt, ok := <-ch:
			if !ok {
				ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream ended"))
				return
			}
			if err := ws.WriteMessage(websocket.BinaryMessage, pkt.Data); err != nil {
				log.Debug("Websocket client %s: %v", r.RemoteAddr, err)
				return
			}
		case <-gone:
			log.Info("Websocket client %s disconnected", r.RemoteAddr)
			return
		}
	}
}

type health struct {
	Session string         `json:"session"`
	Format  string         `json:"format"`
	Codec   string         `json:"codec"`
	Stats   pipeline.Stats `json:"stats"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	session := s.pipeline.Session()
	h := health{
		Session: session.ID.String(),
		Format:  session.Property().String(),
		Codec:   s.pipeline.Codec().Name,
		Stats:   s.pipeline.Stats(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h); err != nil {
		http.Error(w, fmt.Sprint(err), http.StatusInternalServerError)
	}
}
