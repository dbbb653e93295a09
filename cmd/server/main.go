package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/movie-reservation/internal/config"
	"github.com/iliyamo/movie-reservation/internal/database"
	"github.com/iliyamo/movie-reservation/internal/handler"
	"github.com/iliyamo/movie-reservation/internal/middleware"
	"github.com/iliyamo/movie-reservation/internal/queue"
	"github.com/iliyamo/movie-reservation/internal/repository"
	"github.com/iliyamo/movie-reservation/internal/router"
	"github.com/iliyamo/movie-reservation/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env: .env not loaded: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(database.Options{
		User:        cfg.DBUser,
		Pass:        cfg.DBPass,
		Host:        cfg.DBHost,
		Port:        cfg.DBPort,
		Name:        cfg.DBName,
		LockWaitSec: cfg.DBLockWaitSec,
	})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// nil when redis is unreachable; cache and rate limit then pass through
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// keep the interface nil rather than holding a nil *queue.Publisher
	var events service.EventPublisher
	if cfg.EventsEnabled {
		events = queue.NewPublisher(cfg.AMQPURL)
		go queue.StartReservationConsumer(ctx, cfg.AMQPURL, cfg.EventLogDir)
	}

	// repositories
	showtimes := repository.NewShowtimeRepo(db)
	theaters := repository.NewTheaterRepo(db)
	seats := repository.NewSeatRepo(db)
	movies := repository.NewMovieRepo(db)
	reservations := repository.NewReservationRepo(db)
	users := repository.NewUserRepo(db)

	// services
	pricer := service.FlatRate{CentsPerSeat: uint32(cfg.PricePerSeatCents)}
	resSvc := service.NewReservationService(db, showtimes, seats, reservations, pricer, events)
	stSvc := service.NewShowtimeService(db, showtimes, theaters, movies, seats, reservations)
	catSvc := service.NewCatalogService(db, theaters, seats, movies)
	adminSvc := service.NewAdminService(repository.NewReportRepo(db), users)

	// handlers
	authH := handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db))
	resH := handler.NewReservationHandler(resSvc)
	stH := handler.NewShowtimeHandler(stSvc)
	catH := handler.NewCatalogHandler(catSvc)
	adminH := handler.NewAdminHandler(adminSvc)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, catH, stH, middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterReservations(e, resH, cfg.JWTSecret, middleware.NewTokenBucket(rlCfg, rdb))
	router.RegisterAdmin(e, router.AdminHandlers{
		Catalog:      catH,
		Showtimes:    stH,
		Reservations: resH,
		Admin:        adminH,
	}, cfg.JWTSecret, middleware.PurgeOnWrite(cacheCfg, rdb))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
