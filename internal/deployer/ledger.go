package deployer

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	elb "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/rs/zerolog"

	"github.com/edvin/ecsdeploy/internal/model"
)

const teardownTimeout = 30 * time.Second

// Ledger tracks resources created during one run so they can be torn down if
// the run fails before the service is bound to them.
type Ledger struct {
	logger    zerolog.Logger
	elb       ELBAPI
	pools     []model.TargetPool
	committed bool
}

// NewLedger creates an empty Ledger.
func NewLedger(logger zerolog.Logger, elbAPI ELBAPI) *Ledger {
	return &Ledger{
		logger: logger.With().Str("component", "ledger").Logger(),
		elb:    elbAPI,
	}
}

func (l *Ledger) RecordPool(pool model.TargetPool) {
	l.pools = append(l.pools, pool)
}

// Commit closes the rollback window. Nothing recorded before it is torn down
// afterwards.
func (l *Ledger) Commit() {
	l.committed = true
}

// Teardown deletes recorded resources in reverse creation order. It is a
// no-op after Commit. Failures are logged and the pool is left for the
// reclaimer.
func (l *Ledger) Teardown(ctx context.Context) []string {
	if l.committed || len(l.pools) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()

	var removed []string
	for i := len(l.pools) - 1; i >= 0; i-- {
		pool := l.pools[i]
		_, err := l.elb.DeleteTargetGroup(ctx, &elb.DeleteTargetGroupInput{
			TargetGroupArn: aws.String(pool.ARN),
		})
		if err != nil {
			l.logger.Warn().Err(err).Str("target_pool", pool.Name).Msg("could not tear down target pool")
			continue
		}
		l.logger.Info().Str("target_pool", pool.Name).Msg("tore down target pool")
		removed = append(removed, pool.Name)
	}
	l.pools = nil
	return removed
}
