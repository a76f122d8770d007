package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"trafficlab/internal/engine"
	"trafficlab/internal/scenario"
	"trafficlab/internal/server"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	lesson := flag.String("scenario", "braess", "builtin lesson name or path to a scenario YAML file")
	frame := flag.Duration("frame", 33*time.Millisecond, "frame interval")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg, err := scenario.Builtin(*lesson)
	if err != nil {
		var ferr error
		if cfg, ferr = scenario.Load(*lesson); ferr != nil {
			logrus.WithError(err).Fatal("loading scenario")
		}
	}
	s, err := scenario.Build(cfg, engine.DefaultParams())
	if err != nil {
		logrus.WithError(err).Fatal("building scenario")
	}

	var pricer server.TollSetter
	if s.Pricer != nil {
		pricer = s.Pricer
	}
	srv := server.New(s.Eng, cfg.Name, pricer)
	go srv.Run()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := &engine.Loop{
		Eng:        s.Eng,
		Interval:   *frame,
		BeforeStep: s.Spawner.Tick,
		OnFrame:    srv.BroadcastFrame,
	}
	go loop.Run(ctx)

	http.HandleFunc("/ws", srv.ServeWS)
	httpSrv := &http.Server{Addr: *addr}
	go func() {
		<-ctx.Done()
		logrus.Info("shutdown signal received")
		httpSrv.Shutdown(context.Background())
	}()

	logrus.WithFields(logrus.Fields{
		"addr":     *addr,
		"scenario": cfg.Name,
		"roads":    len(cfg.Roads),
	}).Info("trafficlab listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Fatal("http server")
	}
}
