package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/himalthapa1/EduConnect/internal/auth"
	"github.com/himalthapa1/EduConnect/internal/blob"
	"github.com/himalthapa1/EduConnect/internal/config"
	"github.com/himalthapa1/EduConnect/internal/db"
	"github.com/himalthapa1/EduConnect/internal/directory"
	clog "github.com/himalthapa1/EduConnect/internal/log"
	"github.com/himalthapa1/EduConnect/internal/mw"
	"github.com/himalthapa1/EduConnect/internal/poll"
	"github.com/himalthapa1/EduConnect/internal/profile"
	"github.com/himalthapa1/EduConnect/internal/protocol"
	"github.com/himalthapa1/EduConnect/internal/room"
	"github.com/himalthapa1/EduConnect/internal/server"
	"github.com/himalthapa1/EduConnect/internal/service"
	"github.com/himalthapa1/EduConnect/internal/store"
	"github.com/himalthapa1/EduConnect/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

// serve 加载依赖并启动服务，ctx 取消后优雅停服。
func serve(ctx context.Context, cfg config.Config) error {
	logger := clog.Module("cli")

	gdb, err := db.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
	}

	blobs, closeBlobs, err := openBlobs(ctx, cfg.Blob)
	if err != nil {
		return err
	}
	defer closeBlobs()

	st := store.New(gdb)
	dir := directory.New(gdb)
	profiles := profile.New(dir, rdb, cfg.ProfileCacheTTL)
	rooms := room.NewRegistry()
	verifier := auth.NewVerifier(cfg.JWTSecret, gdb)
	msgSvc := service.NewMessageService(st, poll.NewEngine(st), dir, profiles, rooms, blobs)
	roomSvc := service.NewRoomService(dir, rooms)

	proto := protocol.New(protocol.Deps{
		Verifier:     verifier,
		Membership:   dir,
		Store:        st,
		Profiles:     profiles,
		Rooms:        rooms,
		Messages:     msgSvc,
		BacklogLimit: cfg.Chat.BacklogLimit,
		OpTimeout:    cfg.Chat.OpTimeout,
	})

	origins := mw.OriginPolicy{Dev: cfg.IsDev(), Allowed: cfg.AllowedOrigins}
	hub := ws.NewHub()
	wsSrv := ws.NewServer(proto, hub, ws.Options{
		SendBuffer:      cfg.WS.SendBuffer,
		EventsPerSecond: cfg.WS.EventsPerSecond,
		EventBurst:      cfg.WS.EventBurst,
		CheckOrigin:     origins.CheckOrigin,
	})
	engine, rl := server.SetupRouter(origins, verifier, server.NewHandler(roomSvc, msgSvc), wsSrv)
	defer rl.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server run: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// http.Server.Shutdown 不等待已劫持的 WebSocket 连接。
	hub.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}

// openBlobs 按 BLOB_BACKEND 选择语音文件存储。
func openBlobs(ctx context.Context, cfg config.BlobConfig) (blob.Store, func(), error) {
	switch cfg.Backend {
	case "nats":
		js, err := blob.OpenJetStream(ctx, cfg.NATSURL, cfg.Bucket)
		if err != nil {
			return nil, nil, err
		}
		return js, js.Close, nil
	default:
		return blob.Local{Dir: cfg.UploadDir}, func() {}, nil
	}
}
