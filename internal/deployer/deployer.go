package deployer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/ecsdeploy/internal/config"
	"github.com/edvin/ecsdeploy/internal/lease"
	"github.com/edvin/ecsdeploy/internal/model"
	"github.com/edvin/ecsdeploy/internal/platform"
)

// Builder produces the image a run deploys.
type Builder interface {
	Build(ctx context.Context, spec *model.DeploymentSpec) (model.ImageReference, error)
}

// Locker serializes runs for the same service.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// History records the outcome of each run.
type History interface {
	Start(ctx context.Context, d *model.Deployment) error
	Finish(ctx context.Context, d *model.Deployment) error
}

// StepObserver receives step and run timings.
type StepObserver interface {
	ObserveStep(step string, d time.Duration, err error)
	ObserveRun(err error)
}

// APIs bundles the cloud control planes the pipeline drives.
type APIs struct {
	ECS ECSAPI
	ELB ELBAPI
	EC2 EC2API
	SSM SSMAPI
	ECR ECRAPI
}

// Result describes a completed run.
type Result struct {
	Deployment model.Deployment
	Image      model.ImageReference
	Revision   model.RevisionHandle
	Pool       model.TargetPool
	Rule       model.RoutingRule
	Service    string
	Reclaimed  []string
	URL        string
}

// Pipeline runs the blue-green deploy steps in order: build, register,
// provision, reconcile, wait, route, reclaim. The first failing step aborts
// the run.
type Pipeline struct {
	logger      zerolog.Logger
	elb         ELBAPI
	builder     Builder
	registrar   *RevisionRegistrar
	provisioner *TargetPoolProvisioner
	reconciler  *WorkloadReconciler
	waiter      *StabilityWaiter
	router      *TrafficRouter
	reclaimer   *StaleResourceReclaimer
	domain      string

	locker  Locker
	history History
	metrics StepObserver
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

func WithLocker(l Locker) Option {
	return func(p *Pipeline) { p.locker = l }
}

func WithHistory(h History) Option {
	return func(p *Pipeline) { p.history = h }
}

func WithMetrics(m StepObserver) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithBuilder replaces the image builder.
func WithBuilder(b Builder) Option {
	return func(p *Pipeline) { p.builder = b }
}

// ExecutionRoleARN is the default task execution role of an account.
func ExecutionRoleARN(accountID string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/auto-deploy-ecs-exec", accountID)
}

// TaskRoleARN is the default task role of an account.
func TaskRoleARN(accountID string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/auto-deploy-ecs-task", accountID)
}

// NewPipeline wires every step from cfg. contextDir is the docker build context.
func NewPipeline(logger zerolog.Logger, cfg *config.Config, apis APIs, engine ImageEngine, accountID, contextDir string, opts ...Option) *Pipeline {
	settings := RevisionSettings{
		Region:           cfg.Region,
		LogGroup:         cfg.LogGroup,
		ExecutionRoleARN: cfg.ExecutionRoleARN,
		TaskRoleARN:      cfg.TaskRoleARN,
	}
	if settings.ExecutionRoleARN == "" {
		settings.ExecutionRoleARN = ExecutionRoleARN(accountID)
	}
	if settings.TaskRoleARN == "" {
		settings.TaskRoleARN = TaskRoleARN(accountID)
	}

	network := NewNetworkResolver(logger, apis.EC2, DefaultDiscovery(cfg.VPCName, cfg.VPCCIDR), cfg.TaskSGName)

	p := &Pipeline{
		logger:      logger.With().Str("component", "pipeline").Logger(),
		elb:         apis.ELB,
		builder:     NewArtifactBuilder(logger, apis.ECR, engine, accountID, cfg.Region, contextDir),
		registrar:   NewRevisionRegistrar(logger, apis.ECS, NewSecretResolver(logger, apis.SSM), settings),
		provisioner: NewTargetPoolProvisioner(logger, apis.ELB, network),
		reconciler:  NewWorkloadReconciler(logger, apis.ECS, network, cfg.Cluster),
		waiter:      NewStabilityWaiter(logger, apis.ECS, cfg.Cluster, cfg.StableInterval, cfg.StableTimeout()),
		router:      NewTrafficRouter(logger, apis.ELB, cfg.LoadBalancer, cfg.ListenerPort, cfg.Domain),
		reclaimer:   NewStaleResourceReclaimer(logger, apis.ELB, cfg.ReclaimDelay),
		domain:      cfg.Domain,
		locker:      lease.Noop{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run deploys spec. A failure before the service is bound to the new target
// pool tears that pool down. Live traffic stays on the old pool until Route
// succeeds, and Reclaim cannot fail the run.
func (p *Pipeline) Run(ctx context.Context, spec *model.DeploymentSpec) (res *Result, err error) {
	log := p.logger.With().Str("service", spec.ServiceName).Logger()
	res = &Result{
		Deployment: model.Deployment{
			ID:          platform.NewID(),
			ServiceName: spec.ServiceName,
			Status:      model.StatusRunning,
			StartedAt:   time.Now(),
		},
	}

	p.recordStart(ctx, &res.Deployment)
	defer func() {
		p.recordFinish(ctx, res, err)
		if p.metrics != nil {
			p.metrics.ObserveRun(err)
		}
	}()

	log.Info().Str("deployment", res.Deployment.ID).Msg("starting deployment")

	if err = p.step(ctx, model.StepBuild, func(ctx context.Context) (e error) {
		res.Image, e = p.builder.Build(ctx, spec)
		return e
	}); err != nil {
		return res, err
	}
	res.Deployment.Image = res.Image.String()

	if err = p.step(ctx, model.StepRegister, func(ctx context.Context) (e error) {
		res.Revision, e = p.registrar.Register(ctx, spec, res.Image)
		return e
	}); err != nil {
		return res, err
	}
	res.Deployment.Revision = res.Revision.ARN

	release, err := p.locker.Acquire(ctx, lease.Key(spec.ServiceName))
	if err != nil {
		return res, &StepError{Step: model.StepProvision, Err: err}
	}
	defer release()

	ledger := NewLedger(p.logger, p.elb)
	defer func() {
		if err != nil {
			if removed := ledger.Teardown(ctx); len(removed) > 0 {
				log.Info().Strs("target_pools", removed).Msg("rolled back resources created by this run")
			}
		}
	}()

	if err = p.step(ctx, model.StepProvision, func(ctx context.Context) (e error) {
		res.Pool, e = p.provisioner.Provision(ctx, spec)
		return e
	}); err != nil {
		return res, err
	}
	ledger.RecordPool(res.Pool)
	res.Deployment.TargetPool = res.Pool.Name

	if err = p.step(ctx, model.StepReconcile, func(ctx context.Context) (e error) {
		res.Service, e = p.reconciler.Reconcile(ctx, spec, res.Revision, res.Pool)
		return e
	}); err != nil {
		return res, err
	}
	// The service is bound to the pool now; deleting it would strand the
	// service. Later failures leave it for the reclaimer.
	ledger.Commit()

	if err = p.step(ctx, model.StepWait, func(ctx context.Context) error {
		return p.waiter.Wait(ctx, res.Service)
	}); err != nil {
		return res, err
	}

	if err = p.step(ctx, model.StepRoute, func(ctx context.Context) (e error) {
		res.Rule, e = p.router.Route(ctx, spec, res.Pool)
		return e
	}); err != nil {
		return res, err
	}

	_ = p.step(ctx, model.StepReclaim, func(ctx context.Context) error {
		res.Reclaimed = p.reclaimer.Reclaim(ctx, spec.ServiceName, res.Pool.ARN)
		return nil
	})

	res.URL = platform.ServiceURL(spec.Host(), p.domain)
	log.Info().Str("url", res.URL).Str("image", res.Image.String()).Msg("deployment complete")
	return res, nil
}

// Reclaim runs cleanup on its own under the service's lease. The pool the
// service's rule forwards to once the lease is held is never deleted.
func (p *Pipeline) Reclaim(ctx context.Context, spec *model.DeploymentSpec) ([]string, error) {
	release, err := p.locker.Acquire(ctx, lease.Key(spec.ServiceName))
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := p.router.CurrentTarget(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("find current target pool: %w", err)
	}

	return p.reclaimer.Reclaim(ctx, spec.ServiceName, current), nil
}

func (p *Pipeline) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return &StepError{Step: name, Err: err}
	}

	log := p.logger.With().Str("step", name).Logger()
	log.Info().Msg("step started")
	start := time.Now()

	err := fn(ctx)
	elapsed := time.Since(start)
	if p.metrics != nil {
		p.metrics.ObserveStep(name, elapsed, err)
	}
	if err != nil {
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("step failed")
		return &StepError{Step: name, Err: err}
	}

	log.Info().Dur("elapsed", elapsed).Msg("step finished")
	return nil
}

func (p *Pipeline) recordStart(ctx context.Context, d *model.Deployment) {
	if p.history == nil {
		return
	}
	if err := p.history.Start(ctx, d); err != nil {
		p.logger.Warn().Err(err).Msg("could not record deployment start")
	}
}

func (p *Pipeline) recordFinish(ctx context.Context, res *Result, runErr error) {
	now := time.Now()
	res.Deployment.FinishedAt = &now
	res.Deployment.Status = model.StatusSucceeded
	if runErr != nil {
		res.Deployment.Status = model.StatusFailed
		res.Deployment.Error = runErr.Error()
	}
	if p.history == nil {
		return
	}
	if err := p.history.Finish(context.WithoutCancel(ctx), &res.Deployment); err != nil {
		p.logger.Warn().Err(err).Msg("could not record deployment outcome")
	}
}

// FailedStep returns the name of the step that aborted a run, or "".
func FailedStep(err error) string {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step
	}
	return ""
}
