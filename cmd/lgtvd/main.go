// lgtvd: keeps a session open to an LG webOS TV and forwards volume and
// mute commands from a named pipe while the TV is the active audio output.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-lgtv/internal/config"
	"github.com/teslashibe/go-lgtv/internal/log"
	"github.com/teslashibe/go-lgtv/pkg/arp"
	"github.com/teslashibe/go-lgtv/pkg/audiogate"
	"github.com/teslashibe/go-lgtv/pkg/credential"
	"github.com/teslashibe/go-lgtv/pkg/intake"
	"github.com/teslashibe/go-lgtv/pkg/supervisor"
	"github.com/teslashibe/go-lgtv/pkg/web"
	"github.com/teslashibe/go-lgtv/pkg/webos"
)

// stdinPath selects stdin instead of the named pipe.
const stdinPath = "-"

func main() {
	cfg, err := config.Load(os.Getenv("LGTV_CONFIG"))
	if err != nil {
		log.Init("info")
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("lgtvd stopped", "error", err)
		os.Exit(1)
	}
	log.Info("lgtvd stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := log.With("service", "lgtvd")
	queue := intake.NewQueue(cfg.QueueSize)

	if cfg.PipePath == stdinPath {
		go (&intake.Reader{R: os.Stdin, Logger: logger}).Run(ctx, queue)
	} else {
		if err := intake.EnsurePipe(cfg.PipePath); err != nil {
			return err
		}
		src := intake.NewPipeSource(cfg.PipePath, logger)
		src.RetryDelay = cfg.IntakeRetry
		go src.Run(ctx, queue)
	}

	dialer := webos.NewDialer(cfg.Port,
		webos.WithRequestTimeout(cfg.RequestTimeout),
		webos.WithPairTimeout(cfg.PairTimeout),
		webos.WithLogger(logger),
	)

	// srv is assigned before Run, so the callback never sees it change
	var srv *web.Server
	publish := func(st supervisor.Status) {
		if srv != nil {
			srv.Publish(st)
		}
	}

	sup := supervisor.New(supervisor.Config{
		HardwareID:    cfg.HardwareID,
		RetryInterval: cfg.RetryInterval,
		IdleTimeout:   cfg.IdleTimeout,
	}, supervisor.Deps{
		Resolver:    arp.NewResolver(logger),
		Connector:   supervisor.WebOS(dialer),
		Gate:        gate(cfg),
		Credentials: &credential.File{Path: cfg.KeyPath},
	}, supervisor.WithLogger(logger), supervisor.WithOnChange(publish))

	if cfg.HTTPAddr != "" {
		srv = web.NewServer(cfg.HTTPAddr, sup, queue, logger)
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				log.Warn("http server stopped", "error", err)
			}
		}()
	}

	log.Info("lgtvd started",
		"pipe", cfg.PipePath,
		"hardware_id", cfg.HardwareID,
		"gate", cfg.GateMode,
	)
	return sup.Run(ctx, queue.C())
}

func gate(cfg *config.Config) supervisor.Gate {
	switch cfg.GateMode {
	case config.GateOn:
		return audiogate.Static(true)
	case config.GateOff:
		return audiogate.Static(false)
	default:
		return audiogate.NewOracle(cfg.AudioDevice, cfg.GateBinary, log.L())
	}
}
