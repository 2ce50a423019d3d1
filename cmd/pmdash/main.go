package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"predmaint/internal/artifact"
	"predmaint/internal/cfg"
	"predmaint/internal/dashboard"
	"predmaint/internal/infer"
	"predmaint/internal/metrics"
)

func main() {
	// Optional .env for local development; absence is not an error.
	if err := godotenv.Load(); err == nil {
		log.Info().Msg(".env loaded")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c)

	m := metrics.New()

	source, cleanup, err := selectSource(c)
	if err != nil {
		log.Fatal().Err(err).Msg("artifact source unavailable")
	}
	defer cleanup()

	// Loading is the one startup step allowed to touch the network; it gets
	// a bounded context and no retries.
	loadStart := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 3*c.FetchTimeout)
	set, err := artifact.Load(ctx, source)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("artifact load failed, refusing to serve")
	}
	m.ArtifactLoadTime.Set(time.Since(loadStart).Seconds())
	m.ArtifactsLoaded.Set(float64(len(set.Infos)))
	log.Info().
		Dur("elapsed", time.Since(loadStart)).
		Int("artifacts", len(set.Infos)).
		Msg("artifact set loaded")

	engine := infer.NewWithMetrics(set, m)
	srv := dashboard.New(engine, set, m, c.ExplainTopN)

	server := &http.Server{
		Addr:              c.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       c.ReadTimeout,
		WriteTimeout:      c.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", c.ListenAddr).Msg("dashboard listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	waitForShutdown(server, c.ShutdownTimeout)
}

func setupLogging(c cfg.Settings) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// selectSource picks the artifact source by precedence: URL, then bundle
// file, then directory. Config validation guarantees at least one is set.
func selectSource(c cfg.Settings) (artifact.Source, func(), error) {
	switch {
	case c.ArtifactURL != "":
		log.Info().Str("url", c.ArtifactURL).Msg("using HTTP artifact source")
		return artifact.NewHTTPSource(c.ArtifactURL, c.FetchTimeout), func() {}, nil
	case c.BundlePath != "":
		log.Info().Str("bundle", c.BundlePath).Msg("using bundle artifact source")
		bundle, err := artifact.OpenBundle(c.BundlePath)
		if err != nil {
			return nil, func() {}, err
		}
		return bundle, func() { bundle.Close() }, nil
	default:
		log.Info().Str("dir", c.ArtifactDir).Msg("using directory artifact source")
		return artifact.NewDirSource(c.ArtifactDir), func() {}, nil
	}
}

func waitForShutdown(server *http.Server, timeout time.Duration) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info().Str("signal", s.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}
