package main

import (
	"context"
	"expvar"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"salescore/internal/auth"
	"salescore/internal/config"
	"salescore/internal/db"
	"salescore/internal/domain/storage"
	"salescore/internal/mailer"
	"salescore/internal/provider/mercadopago"
	"salescore/internal/ratelimiter"
)

// NewLogger creates a new zap logger with colorized console output.
func NewLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
	core := zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), zapcore.InfoLevel)

	return zap.New(core).Sugar(), nil
}

var version = "1.0.0"

func main() {
	logger, err := NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err)
	}

	dbpool, err := db.New(cfg.DB.URL, int32(cfg.DB.MaxOpenConns), cfg.DB.MaxIdleTime)
	if err != nil {
		logger.Fatal(err)
	}
	defer dbpool.Close()
	logger.Info("database connection pool established")

	store := storage.NewContainer(dbpool)

	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.Auth.JWTSecret,
		cfg.Auth.JWTSecret,
		cfg.Auth.JWTIssuer,
		cfg.Auth.JWTIssuer,
	)

	mailtrap, err := mailer.NewMailTrapClient(os.Getenv("MAILTRAP_API_KEY"), os.Getenv("MAIL_FROM_EMAIL"))
	if err != nil {
		logger.Warnw("mailer disabled: missing MAILTRAP_API_KEY", "error", err)
	}

	mpClient := mercadopago.NewClient(
		cfg.MercadoPago.AccessToken,
		time.Duration(cfg.MercadoPago.TimeoutSeconds)*time.Second,
	)

	antiAbuse := ratelimiter.NewAntiAbuseLimiter(ratelimiter.AntiAbuseConfig{
		IPMaxRequests:    cfg.AntiAbuse.IPMaxRequests,
		IPWindow:         cfg.AntiAbuse.IPWindow,
		EmailMaxRequests: cfg.AntiAbuse.EmailMaxRequests,
		EmailWindow:      cfg.AntiAbuse.EmailWindow,
		EmailMinInterval: time.Duration(cfg.AntiAbuse.EmailMinIntervalSeconds) * time.Second,
	})

	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.RateLimiter.RequestsPerTimeFrame,
		cfg.RateLimiter.TimeFrame,
	)

	app := &application{
		config:        cfg,
		store:         store,
		logger:        logger,
		mailer:        mailtrap,
		authenticator: jwtAuthenticator,
		mpClient:      mpClient,
		antiAbuse:     antiAbuse,
		rateLimiter:   rateLimiter,
	}

	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any { return dbpool.Stat() }))
	expvar.Publish("goroutines", expvar.Func(func() any { return runtime.NumGoroutine() }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.runReservationSweep(ctx)

	mux := app.mount()

	if err := app.run(mux); err != nil {
		logger.Fatal(err)
	}
}
