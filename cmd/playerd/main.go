package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"playerd/internal/audiopool"
	"playerd/internal/control"
	"playerd/internal/decoder"
	"playerd/internal/device"
	"playerd/internal/platform/config"
	"playerd/internal/platform/logger"
	"playerd/internal/platform/metrics"
	"playerd/internal/playback"
	"playerd/internal/timebase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()
	cfg := config.FromEnv()

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	met := metrics.New()
	reg := control.NewInMemoryRegistry()
	svc := control.NewService(reg, syntheticFactory(cfg, log), playback.Options{
		Buffers:    cfg.AudioBuffers,
		TickPeriod: cfg.TickPeriod,
	}, log, met)
	h := control.NewHandler(svc, log, met)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveSessions(svc.ActiveSessionCount()) }).ServeHTTP(w, r)
	})
	h.Routes(r)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("control server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutdown signal received, draining connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		return errors.Join(err, svc.CloseAll())
	})

	log.Info("server starting",
		"port", cfg.Port,
		"tick_period", cfg.TickPeriod.String(),
		"audio_buffers", cfg.AudioBuffers,
		"log_level", cfg.LogLevel,
	)

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// syntheticFactory builds test-pattern sessions played out on a null
// device in real time.
func syntheticFactory(cfg config.Settings, log *slog.Logger) control.Factory {
	return func(source string) (decoder.Decoder, audiopool.Device, error) {
		if cfg.SourceFPS <= 0 {
			return nil, nil, fmt.Errorf("invalid SOURCE_FPS %d", cfg.SourceFPS)
		}
		sc := decoder.DefaultSyntheticConfig()
		sc.VideoRate = timebase.Rational{Duration: 1, Scale: int64(cfg.SourceFPS)}
		sc.Length = cfg.SourceLength
		sc.SampleRate = cfg.SourceSampleRate
		sc.VideoCapacity = cfg.QueueVideoCapacity
		sc.AudioCapacity = cfg.QueueAudioCapacity
		dec := decoder.NewSynthetic(sc, log)

		if sc.SampleRate <= 0 {
			return dec, nil, nil
		}
		// 16-bit PCM.
		return dec, device.NewNull(sc.SampleRate*sc.Channels*2, time.Now), nil
	}
}
