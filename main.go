// Command weather-metrics reads a DHT temperature and humidity sensor, prints
// the reading as "<timestamp>;<temperature>;<humidity>" and relays it to the
// configured sinks. Run from cron it measures once and exits 0 on full
// success, 1 otherwise. With -serve it measures periodically and serves an
// HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Uranury/weather-metrics/config"
	"github.com/Uranury/weather-metrics/logging"
	"github.com/Uranury/weather-metrics/retry"
	"github.com/Uranury/weather-metrics/sensors"
	"github.com/Uranury/weather-metrics/server"
	"github.com/Uranury/weather-metrics/station"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "YAML configuration file (default: $CONFIG_FILE, then weather-metrics.yml, then /usr/local/etc/weather-metrics.yml)")
	serve := flag.Bool("serve", false, "measure every serve.interval and serve the HTTP API instead of measuring once")
	listen := flag.String("listen", "", "HTTP listen address in serve mode, overrides serve.listen")
	flag.Parse()

	cfg, path, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "weather-metrics: %v\n", err)
		return 1
	}

	logger, _, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "weather-metrics: logging: %v\n", err)
		return 1
	}
	defer logger.Sync()

	if path != "" {
		logger.Debug("configuration loaded", zap.String("file", path))
	}

	st, err := station.FromConfig(cfg, os.Stdout, retry.NewClock(), logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return 1
	}
	defer st.Close()

	if !*serve {
		return st.Cycle(context.Background()).ExitCode()
	}

	addr := cfg.Serve.Listen
	if *listen != "" {
		addr = *listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(st, st.Archive(), logger)
	st.OnReading(func(r sensors.Reading) {
		srv.Hub().Broadcast(r)
	})

	go st.Loop(ctx, cfg.Serve.Interval)

	if err := srv.Run(ctx, addr); err != nil {
		logger.Error("server failed", zap.Error(err))
		return 1
	}
	logger.Info("shutting down")
	return 0
}
