package deployer

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/rs/zerolog"
)

// StabilityWaiter blocks until the service reaches steady state: one
// deployment, running count equal to desired count. It polls at a fixed
// interval until a hard timeout.
type StabilityWaiter struct {
	logger   zerolog.Logger
	ecs      ECSAPI
	cluster  string
	interval time.Duration
	timeout  time.Duration
}

// NewStabilityWaiter creates a new StabilityWaiter.
func NewStabilityWaiter(logger zerolog.Logger, ecsAPI ECSAPI, cluster string, interval, timeout time.Duration) *StabilityWaiter {
	return &StabilityWaiter{
		logger:   logger.With().Str("component", "stability").Logger(),
		ecs:      ecsAPI,
		cluster:  cluster,
		interval: interval,
		timeout:  timeout,
	}
}

// Timeout is the hard limit on a single wait.
func (s *StabilityWaiter) Timeout() time.Duration {
	return s.timeout
}

// Wait returns nil once the service is stable. On timeout the service is left
// in whatever state it reached.
func (s *StabilityWaiter) Wait(ctx context.Context, service string) error {
	s.logger.Info().Str("service", service).Dur("timeout", s.Timeout()).Msg("waiting for service to be stable")

	waiter := ecs.NewServicesStableWaiter(s.ecs, func(o *ecs.ServicesStableWaiterOptions) {
		o.MinDelay = s.interval
		o.MaxDelay = s.interval
	})
	err := waiter.Wait(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(s.cluster),
		Services: []string{service},
	}, s.Timeout())
	if err != nil {
		return fmt.Errorf("service %s not stable after %s: %w", service, s.Timeout(), err)
	}

	s.logger.Info().Str("service", service).Msg("service is stable")
	return nil
}
