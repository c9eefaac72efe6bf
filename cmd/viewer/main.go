// Command backdrop-viewer shows the desktop thumbnail streamed by a host,
// either from its /stream endpoint or over WebRTC via a signaling server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/junsooki/Backdrop/internal/config"
	"github.com/junsooki/Backdrop/internal/decoder"
	"github.com/junsooki/Backdrop/internal/display"
	"github.com/junsooki/Backdrop/internal/logger"
	"github.com/junsooki/Backdrop/internal/peer"
	"github.com/junsooki/Backdrop/internal/signaling"
	"github.com/junsooki/Backdrop/internal/transport"
)

const reconnectDelay = 2 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Error("viewer exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.ParseViewerFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	logger.SetVerbose(cfg.Verbose)
	log := logger.DefaultLogger

	store := &display.FrameStore{}
	dec := decoder.NewPNGDecoder()
	onFrame := func(data []byte) {
		img, err := dec.Decode(data)
		if err != nil {
			log.Warn("decode frame", "error", err, "bytes", len(data))
			return
		}
		store.SetFrame(img)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if cfg.UseSignaling() {
		log.Info("backdrop viewer starting", "id", cfg.ViewerID, "signaling", cfg.SignalingURL, "publisher", cfg.PublisherID)
		g.Go(func() error { return runWebRTC(ctx, cfg, onFrame, log) })
	} else {
		log.Info("backdrop viewer starting", "id", cfg.ViewerID, "stream", cfg.StreamURL)
		g.Go(func() error { return runStream(ctx, cfg.StreamURL, onFrame, log) })
	}

	// Ebitengine RunGame must be on the main goroutine (macOS requirement).
	disp := display.NewEbitenDisplay(store, "Backdrop")
	runErr := disp.Run()
	cancel()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return runErr
}

// runStream keeps a /stream connection up until ctx ends or another viewer
// takes over.
func runStream(ctx context.Context, url string, onFrame func([]byte), log *slog.Logger) error {
	client := transport.NewStreamClient(url, log)
	client.OnFrame(onFrame)
	for {
		err := client.Run(ctx)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, transport.ErrSuperseded) {
			log.Warn("another viewer took over the stream")
			return nil
		}
		log.Warn("stream disconnected", "error", err, "retry", reconnectDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func runWebRTC(ctx context.Context, cfg *config.ViewerConfig, onFrame func([]byte), log *slog.Logger) error {
	var (
		v   *peer.Viewer
		sig *signaling.Client
	)
	ready := make(chan error, 1)

	sig = signaling.NewViewerClient(cfg.SignalingURL, cfg.ViewerID, signaling.ViewerHandler{
		OnRegistered: func() {
			log.Info("registered with signaling server")
			var err error
			v, err = peer.NewViewer(sig, cfg.PublisherID, log)
			if err == nil {
				v.Transport().OnFrame(onFrame)
				err = v.Connect()
			}
			ready <- err
		},
		OnAnswer: func(from string, payload json.RawMessage) {
			if v == nil {
				return
			}
			if err := v.HandleAnswer(payload); err != nil {
				log.Warn("handle answer", "error", err)
			}
		},
		OnICECandidate: func(from string, payload json.RawMessage) {
			if v == nil {
				return
			}
			if err := v.HandleICECandidate(payload); err != nil {
				log.Warn("handle ICE candidate", "error", err)
			}
		},
		OnPublisherLeft: func(id string) {
			if id == cfg.PublisherID {
				log.Warn("publisher disconnected", "publisher", id)
			}
		},
		OnError: func(msg string) {
			log.Warn("signaling error", "message", msg)
		},
	}, log)

	if err := sig.Connect(ctx); err != nil {
		return err
	}
	defer sig.Close()

	select {
	case err := <-ready:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return nil
	}
	defer v.Close()

	select {
	case <-ctx.Done():
	case <-sig.Done():
		log.Warn("signaling connection lost")
	}
	return nil
}
