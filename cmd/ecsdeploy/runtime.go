package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/edvin/ecsdeploy/internal/awsclient"
	"github.com/edvin/ecsdeploy/internal/config"
	"github.com/edvin/ecsdeploy/internal/db"
	"github.com/edvin/ecsdeploy/internal/deployer"
	"github.com/edvin/ecsdeploy/internal/history"
	"github.com/edvin/ecsdeploy/internal/lease"
	"github.com/edvin/ecsdeploy/internal/logging"
	"github.com/edvin/ecsdeploy/internal/metrics"
	"github.com/edvin/ecsdeploy/internal/model"
)

const metricsPushTimeout = 10 * time.Second

// runtime holds what every command needs once config is loaded.
type runtime struct {
	cfg      *config.Config
	logger   zerolog.Logger
	pool     *pgxpool.Pool
	recorder *metrics.Recorder
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadSpec(path string) (*model.DeploymentSpec, error) {
	spec, err := model.LoadSpec(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return spec, nil
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	rt := &runtime{
		cfg:      cfg,
		logger:   logging.NewLogger(cfg),
		recorder: metrics.NewRecorder(),
	}

	rt.pool, err = db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if rt.pool != nil {
		metrics.RegisterPgxPoolMetrics(rt.recorder.Registry(), rt.pool)
	}
	return rt, nil
}

func (rt *runtime) close() {
	if rt.pool != nil {
		rt.pool.Close()
	}
}

func (rt *runtime) pipeline(ctx context.Context, contextDir string) (*deployer.Pipeline, error) {
	clients, err := awsclient.New(ctx, rt.cfg.Region)
	if err != nil {
		return nil, err
	}
	accountID, err := clients.AccountID(ctx)
	if err != nil {
		return nil, err
	}

	opts := []deployer.Option{deployer.WithMetrics(rt.recorder)}
	if rt.pool != nil {
		opts = append(opts,
			deployer.WithLocker(lease.NewPostgres(rt.logger, rt.pool)),
			deployer.WithHistory(history.NewStore(rt.pool)),
		)
	} else {
		rt.logger.Warn().Msg("DATABASE_URL not set: concurrent deploys of one service are not serialized and no history is kept")
	}

	apis := deployer.APIs{
		ECS: clients.ECS,
		ELB: clients.ELB,
		EC2: clients.EC2,
		SSM: clients.SSM,
		ECR: clients.ECR,
	}
	engine := deployer.NewDockerEngine(rt.logger, os.Stderr)
	return deployer.NewPipeline(rt.logger, rt.cfg, apis, engine, accountID, contextDir, opts...), nil
}

// pushMetrics sends the run's metrics when a Pushgateway is configured.
func (rt *runtime) pushMetrics(service string) {
	if rt.cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), metricsPushTimeout)
	defer cancel()
	if err := rt.recorder.Push(ctx, rt.cfg.PushgatewayURL, service); err != nil {
		rt.logger.Warn().Err(err).Msg("could not push metrics")
	}
}
