package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	goFactor "github.com/MrEthical07/goFactor"
	"github.com/MrEthical07/goFactor/logging"
	"github.com/MrEthical07/goFactor/mailer"
)

const defaultEnvFile = ".env"

type app struct {
	configPath string
	envFile    string

	cfg     goFactor.Config
	logger  *zap.Logger
	backend *backend
	engine  *goFactor.Engine
}

// load reads the env file and config. A missing default .env is not an error.
func (a *app) load() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil {
			if !(a.envFile == defaultEnvFile && errors.Is(err, fs.ErrNotExist)) {
				return fmt.Errorf("load %s: %w", a.envFile, err)
			}
		}
	}
	cfg, err := goFactor.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.Log).With(logging.Component("cli"))
	return nil
}

// open connects the configured backend and builds an engine over it.
func (a *app) open(ctx context.Context) (*goFactor.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}
	b, err := openBackend(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.backend = b

	var m goFactor.Mailer = mailer.NewLogSender(a.logger)
	if a.cfg.SMTP.Host != "" {
		smtp, err := mailer.NewSMTPSender(a.cfg.SMTP, a.logger)
		if err != nil {
			return nil, fmt.Errorf("smtp: %w", err)
		}
		m = smtp
	}

	builder := goFactor.New().
		WithConfig(a.cfg).
		WithIdentityStore(b.store).
		WithServiceRegistry(b.services).
		WithMailer(m).
		WithLogger(a.logger)
	if b.redis != nil {
		builder = builder.WithRedis(b.redis)
	}
	if a.cfg.Audit.Enabled {
		builder = builder.WithAuditSink(goFactor.NewZapSink(a.logger))
	}
	engine, err := builder.Build()
	if err != nil {
		return nil, err
	}
	a.engine = engine
	return engine, nil
}

func (a *app) close() {
	if a.engine != nil {
		a.engine.Close()
		a.engine = nil
	}
	if a.backend != nil {
		a.backend.Close()
		a.backend = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
