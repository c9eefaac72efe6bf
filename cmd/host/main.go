// Command backdrop-host polls the desktop background and streams a PNG
// thumbnail to one subscriber whenever it changes.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/junsooki/Backdrop/internal/capture"
	"github.com/junsooki/Backdrop/internal/config"
	"github.com/junsooki/Backdrop/internal/logger"
	"github.com/junsooki/Backdrop/internal/metrics"
	"github.com/junsooki/Backdrop/internal/permissions"
	"github.com/junsooki/Backdrop/internal/pipeline"
	"github.com/junsooki/Backdrop/internal/server"
	"github.com/junsooki/Backdrop/internal/subscription"
)

func main() {
	if err := run(); err != nil {
		logger.Error("host exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.ParseHostFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	logger.SetVerbose(cfg.Verbose)
	log := logger.DefaultLogger

	log.Info("backdrop host starting",
		"id", cfg.PublisherID,
		"listen", cfg.Listen,
		"signaling", cfg.SignalingURL,
		"capture", cfg.Facility)

	if !permissions.HasScreenRecording() {
		permissions.RequestScreenRecording()
		log.Warn("screen recording permission not granted; captures will fail until it is granted and the host restarted")
	}

	facility, err := capture.OpenFacility(cfg.Facility)
	if err != nil {
		return err
	}
	sourceOpts := []capture.SourceOption{capture.WithSourceLogger(log)}
	if len(cfg.AllowList) > 0 {
		sourceOpts = append(sourceOpts, capture.WithAllowList(cfg.AllowList...))
	}
	source := capture.NewContentSource(facility, sourceOpts...)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	pipeOpts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithObserver(metrics.NewCollector(reg)),
	}
	if cfg.SkipOverlap {
		pipeOpts = append(pipeOpts, pipeline.WithSkipOverlapping())
	}
	pipe := pipeline.New(source, pipeOpts...)
	defer pipe.Close()

	hub := subscription.NewHub(pipe, log)
	srv := server.New(hub, pipe, server.WithLogger(log), server.WithGatherer(reg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", "addr", cfg.Listen)
		return srv.ListenAndServe(ctx, cfg.Listen)
	})

	if cfg.SignalingURL != "" {
		rtc := newRTCPublisher(hub, log)
		sig, err := rtc.connect(ctx, cfg.SignalingURL, cfg.PublisherID)
		if err != nil {
			return err
		}
		g.Go(func() error {
			select {
			case <-ctx.Done():
			case <-sig.Done():
				log.Warn("signaling connection lost; WebRTC viewers can no longer connect")
			}
			return nil
		})
		defer func() {
			sig.Close()
			rtc.closeAll()
		}()
	}

	err = g.Wait()
	log.Info("shutting down")
	return err
}
