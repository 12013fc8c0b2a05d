package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"gukbap/kiosk/internal/api"
	"gukbap/kiosk/internal/backend"
	"gukbap/kiosk/internal/capture"
	"gukbap/kiosk/internal/config"
	"gukbap/kiosk/internal/conversation"
	"gukbap/kiosk/internal/kitchen"
	"gukbap/kiosk/internal/logging"
	"gukbap/kiosk/internal/menu"
	"gukbap/kiosk/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the menu and serve the kiosk API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logging.Setup(cfg.Server.LogLevel)
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logging.For("server")

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	cat, err := menu.Load(ctx, client, cfg.Backend.MenuAttempts)
	if err != nil {
		return err
	}
	pub := kitchenPublisher(cfg)
	defer pub.Close()

	reg := capture.NewRegistry()
	channel := capture.NewChannel(reg)
	journal := store.New()

	m := conversation.New(conversation.Options{
		Catalog:     cat,
		Voice:       channel,
		Interpreter: client,
		Kitchen:     pub,
		Journal:     journal,
		Timings: conversation.Timings{
			Greeting:  cfg.Conversation.GreetingDelay,
			FollowUp:  cfg.Conversation.FollowUpDelay,
			StaffCall: cfg.Conversation.StaffDelay,
		},
		KioskID: cfg.Kitchen.KioskID,
	})
	channel.OnUtterance(m.HandleVoiceResult)
	channel.OnListening(m.ListeningChanged)

	wss := capture.NewServer(cfg.Capture.TokenSecret, cfg.Kitchen.KioskID, cfg.Capture.TokenSkewSecs, reg, channel)
	h := api.NewHandlers(cfg, m, cat, journal)
	mux := http.NewServeMux()
	mux.Handle("/", api.NewRouter(h, api.Extras{Capture: wss.HandleCaptureWS, Ready: func() bool { return cat.Len() > 0 }}))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           logMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	runner := startCaptureWorker(cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.Run(gctx) })
	g.Go(func() error {
		log.Info("http listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		l, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return err
		}
		log.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		return gs.Serve(l)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, draining")
		hs.Shutdown()
		if runner != nil && runner.IsRunning() {
			_ = runner.Stop()
		}
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
		gs.GracefulStop()
		return nil
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func kitchenPublisher(cfg config.Config) kitchen.Publisher {
	log := logging.For("kitchen")
	if cfg.Kitchen.AMQPURL == "" {
		log.Info("no broker configured, kitchen hand-off disabled")
		return kitchen.Nop{}
	}
	pub, err := kitchen.Dial(cfg.Kitchen.AMQPURL, cfg.Kitchen.Exchange)
	if err != nil {
		log.Error("kitchen broker unavailable, hand-off disabled", "err", err)
		return kitchen.Nop{}
	}
	return pub
}

// startCaptureWorker launches the local capture process when one is
// configured, handing it a freshly minted bearer token.
func startCaptureWorker(cfg config.Config) *capture.Runner {
	if cfg.Capture.WorkerCmd == "" {
		return nil
	}
	log := logging.For("capture")
	if cfg.Capture.TokenSecret == "" {
		log.Warn("CAPTURE_WORKER_CMD set without CAPTURE_TOKEN_SECRET, worker not started")
		return nil
	}
	r := capture.NewRunner(cfg.Capture.WorkerCmd, func(err error) {
		log.Warn("capture worker exited", "err", err)
	})
	exp := time.Now().Add(cfg.Capture.TokenTTL).Unix()
	env := map[string]string{
		"KIOSK_WS_URL":  "ws://localhost:" + cfg.Server.Port + "/ws/capture",
		"CAPTURE_TOKEN": capture.GenerateToken(cfg.Capture.TokenSecret, cfg.Kitchen.KioskID, exp),
		"KIOSK_ID":      cfg.Kitchen.KioskID,
	}
	if err := r.Start(env); err != nil {
		log.Error("capture worker start failed", "err", err)
		return nil
	}
	return r
}

func logMiddleware(next http.Handler) http.Handler {
	log := logging.For("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug("request", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Duration("took", time.Since(start)))
	})
}
