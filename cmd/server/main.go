package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/engine"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/infrastructure/storage"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/network"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/replication"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/server"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/version"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/facility"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/logger"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/utils"
)

func init() {
	logger.Init()
}

func main() {
	// 1. Флаги
	var (
		port       string
		layoutPath string
		envFile    string
		seedName   string
		queueSize  int
		capture    string
	)
	flag.StringVar(&port, "port", "", "HTTP port (overrides LIGHTS_PORT)")
	flag.StringVar(&layoutPath, "layout", "", "Path to facility layout (.json or .mpk); generated when empty")
	flag.StringVar(&envFile, "env", ".env", "Optional env file with LIGHTS_* settings")
	flag.StringVar(&seedName, "seed-name", "", "Human readable seed for the generated facility")
	flag.IntVar(&queueSize, "queue", network.DefaultQueueSize, "Outbound frame queue size per client")
	flag.StringVar(&capture, "capture", "", "Record outgoing replication frames to this .lmcap file")
	flag.Parse()

	logger.Log.Info("Starting lights mirror...")
	logger.Log.Info(version.String())

	// 2. Конфиг
	cfg, err := engine.LoadConfig(envFile)
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid configuration")
	}
	if port == "" {
		port = os.Getenv("LIGHTS_PORT")
	}
	if port == "" {
		port = "8080"
	}
	if layoutPath == "" {
		layoutPath = os.Getenv("LIGHTS_LAYOUT")
	}

	// 3. Комплекс
	fac, err := buildFacility(cfg, layoutPath, seedName)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to build facility")
	}
	for _, issue := range fac.Issues {
		logger.Log.WithError(issue).Warn("Fixture disabled")
	}

	// 4. Ядро
	hub := network.NewHub(queueSize)
	var (
		transport replication.Transport = hub
		recorder  *storage.Recorder
	)
	if capture != "" {
		recorder = storage.NewRecorder(hub, cfg.Seed, storage.DefaultLimit)
		transport = recorder
	}
	eng := engine.New(cfg, fac.Graph, transport)
	spawned, errs := fac.Populate(eng, eng.Registry())
	for _, err := range errs {
		logger.Log.WithError(err).Warn("Fixture object disabled")
	}
	logger.Log.WithFields(logrus.Fields{
		"facility": fac.Name,
		"rooms":    fac.Graph.Len(),
		"objects":  spawned,
	}).Info("Facility populated")

	// 5. Сервер и graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(eng, hub, server.NewAuthenticator(os.Getenv("LIGHTS_JWT_SECRET")), port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.WithError(err).Fatal("Server stopped with error")
	}

	if recorder != nil {
		if err := recorder.Save(capture); err != nil {
			logger.Log.WithError(err).Error("Failed to save capture")
		} else {
			logger.Log.WithField("path", capture).Info("Capture saved")
		}
	}
	logger.Log.Info("Done.")
}

func buildFacility(cfg engine.Config, layoutPath, seedName string) (*facility.Facility, error) {
	if layoutPath != "" {
		layout, err := facility.LoadLayout(layoutPath)
		if err != nil {
			return nil, err
		}
		if layout.FarRadius == 0 {
			layout.FarRadius = cfg.FarRadius
		}
		logger.Log.WithField("path", layoutPath).Info("Layout loaded")
		return layout.Build()
	}

	seed := cfg.Seed
	if seedName != "" {
		seed = utils.StringToSeed(seedName)
	}
	opts := facility.DefaultGenOptions()
	opts.FarRadius = cfg.FarRadius
	logger.Log.Infof("Using facility seed: %d", seed)
	return facility.Generate(seed, opts).Build()
}
