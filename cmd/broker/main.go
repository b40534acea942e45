// Command broker runs the job-dispatch broker: it binds the client and
// worker sockets, connects to the monitor, and drives the single-
// threaded dispatch reactor until terminated. Wiring mirrors
// broker_connect::start_brokering (original_source/src/broker_connect.cpp),
// with graceful shutdown on SIGTERM/SIGINT.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/spf13/pflag"

	"github.com/cyw0ng95/recodex-broker/internal/broker"
	"github.com/cyw0ng95/recodex-broker/internal/config"
	"github.com/cyw0ng95/recodex-broker/internal/notifierhandler"
	"github.com/cyw0ng95/recodex-broker/internal/queue"
	"github.com/cyw0ng95/recodex-broker/internal/reactor"
	"github.com/cyw0ng95/recodex-broker/internal/transport"
	"github.com/cyw0ng95/recodex-broker/internal/workerpool"
)

func main() {
	os.Exit(run())
}

func run() int {
	var configPath string
	var help bool
	pflag.StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "path to configuration file")
	pflag.BoolVarP(&help, "help", "h", false, "print usage")
	pflag.Parse()

	if help {
		pflag.Usage()
		return 0
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	log := buildLogger(cfg.Logger)

	r := reactor.New(log, reactor.DefaultPollInterval)

	workersSock, err := transport.NewRouterSocket(cfg.Workers.Address, cfg.Workers.Port, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to bind workers socket")
		return 1
	}
	clientsSock, err := transport.NewRouterSocket(cfg.Clients.Address, cfg.Clients.Port, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to bind clients socket")
		return 1
	}
	// the monitor is a best-effort progress sink: connecting never fails
	// the broker's startup, it dials in the background and retries.
	monitorSock, err := transport.NewConnectedSocket(cfg.Monitor.Address, cfg.Monitor.Port, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to start monitor socket")
		return 1
	}

	r.AddSocket(broker.KeyWorkers, workersSock)
	r.AddSocket(broker.KeyClients, clientsSock)
	r.AddSocket(broker.KeyMonitor, monitorSock)

	registry := workerpool.NewRegistry()
	queueMgr := queue.NewPerWorkerManager()

	brokerHandler := broker.New(
		registry,
		queueMgr,
		int(cfg.MaxWorkerLiveness),
		time.Duration(cfg.WorkerPingIntervalMs)*time.Millisecond,
		log,
	)
	r.AddHandler(broker.KeyWorkers, brokerHandler)
	r.AddHandler(broker.KeyClients, brokerHandler)
	r.AddHandler(broker.KeyTimer, brokerHandler)

	notifierHandler := notifierhandler.New(notifierhandler.Config{
		Address:  cfg.Notifier.Address,
		Port:     cfg.Notifier.Port,
		Username: cfg.Notifier.Username,
		Password: cfg.Notifier.Password,
	}, log)
	r.AddAsyncHandler(broker.KeyStatusNotifier, notifierHandler)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		log.Info().Msg("shutdown signal received, stopping broker")
		r.Terminate()
	}()

	log.Info().Str("config", configPath).Msg("broker started")
	r.StartLoop()
	return 0
}

func buildLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output zerolog.ConsoleWriter
	if cfg.File != "" {
		output = zerolog.ConsoleWriter{Out: &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.Rotations,
		}}
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}
