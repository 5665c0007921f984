// Package app wires the stores, services and transports of the alias server.
package app

import (
	"aliasgame/internal/cache"
	"aliasgame/internal/config"
	"aliasgame/internal/repository"
	"aliasgame/internal/service"
	"aliasgame/internal/transport/rest"
	"aliasgame/internal/transport/ws"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

const connectTimeout = 5 * time.Second

type App struct {
	cfg   *config.Config
	redis *redis.Client
	mongo *mongo.Client // nil when archiving is disabled

	Hub           *ws.Hub
	Relay         *ws.RedisRelay // nil unless relaying is enabled
	AuthService   *service.AuthService
	RoomService   *service.RoomService
	GameService   *service.GameService
	ResultService *service.ResultService
}

// New connects to Redis and, when configured, MongoDB, then builds every
// service. The caller owns Close.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr()})
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Info().Str("addr", cfg.RedisAddr()).Msg("connected to redis")

	a := &App{cfg: cfg, redis: rdb}

	var resultRepo repository.ResultRepo
	if cfg.MongoURI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		a.mongo = client
		if err := client.Ping(pingCtx, nil); err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("ping mongo: %w", err)
		}
		db := client.Database(cfg.MongoDB)
		if err := repository.EnsureIndexes(pingCtx, db); err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		resultRepo = repository.NewResultRepo(db)
		log.Info().Str("db", cfg.MongoDB).Msg("connected to mongo")
	} else {
		log.Warn().Msg("MONGO_URI not set, game results will not be archived")
	}

	a.wire(resultRepo)
	return a, nil
}

func (a *App) wire(resultRepo repository.ResultRepo) {
	ttl := a.cfg.StateTTL
	roomCache := cache.NewRoomCache(a.redis, ttl)
	playerCache := cache.NewPlayerCache(a.redis, ttl)

	a.ResultService = service.NewResultService(resultRepo, cache.NewLeaderboardCache(a.redis))
	a.GameService = service.NewGameService(
		roomCache,
		playerCache,
		cache.NewGameCache(a.redis, ttl),
		cache.NewTeamCache(a.redis, ttl),
		cache.NewRoundCache(a.redis, ttl),
		service.NewWordService(cache.NewWordCache(a.redis, ttl), a.cfg.WordPack),
		a.ResultService,
	)
	a.AuthService = service.NewAuthService(a.cfg.JWTSecret, a.cfg.PlayerTokenTTL)
	a.RoomService = service.NewRoomService(roomCache, playerCache, a.GameService, a.AuthService)

	a.Hub = ws.NewHub()
	var notifier service.Notifier = a.Hub
	if a.cfg.RelayEnabled {
		a.Relay = ws.NewRedisRelay(a.redis, a.cfg.RelayChannel, a.Hub)
		notifier = a.Relay
	}
	a.GameService.SetNotifier(notifier)
	a.RoomService.SetNotifier(notifier)
}

// Router builds the HTTP handler for every endpoint
func (a *App) Router() http.Handler {
	return rest.NewRouter(&rest.Container{
		AuthService:   a.AuthService,
		RoomService:   a.RoomService,
		GameService:   a.GameService,
		ResultService: a.ResultService,
		WSHandler:     ws.NewHandler(a.Hub, a.AuthService, a.RoomService, a.GameService),
		TokenTTL:      a.cfg.PlayerTokenTTL,
		CORSOrigins:   a.cfg.CORSOrigins,
	})
}

// Run re-arms round timers, then serves HTTP (and the relay subscriber when
// enabled) until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	recovered, err := a.GameService.RecoverRounds(ctx)
	if err != nil {
		return fmt.Errorf("recover rounds: %w", err)
	}
	if recovered > 0 {
		log.Info().Int("games", recovered).Msg("recovered running rounds")
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	if a.Relay != nil {
		g.Go(func() error {
			return a.Relay.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close stops round timers and releases the store connections
func (a *App) Close(ctx context.Context) {
	if a.GameService != nil {
		a.GameService.Timers().Stop()
	}
	if a.mongo != nil {
		if err := a.mongo.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect failed")
		}
	}
	if err := a.redis.Close(); err != nil {
		log.Error().Err(err).Msg("redis close failed")
	}
}
