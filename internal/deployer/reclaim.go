package deployer

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	elb "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/rs/zerolog"

	"github.com/edvin/ecsdeploy/internal/platform"
)

// StaleResourceReclaimer deletes target pools of a service that have no
// registered targets. It never fails: every error is logged and skipped.
type StaleResourceReclaimer struct {
	logger zerolog.Logger
	elb    ELBAPI
	delay  time.Duration
}

// NewStaleResourceReclaimer creates a new StaleResourceReclaimer. delay gives
// target deregistration time to propagate before pools are inspected.
func NewStaleResourceReclaimer(logger zerolog.Logger, elbAPI ELBAPI, delay time.Duration) *StaleResourceReclaimer {
	return &StaleResourceReclaimer{
		logger: logger.With().Str("component", "reclaimer").Logger(),
		elb:    elbAPI,
		delay:  delay,
	}
}

// Reclaim deletes every empty pool of service except the protected ARNs, and
// returns the names it deleted. A pool belongs to service when its name has
// the service's pool shape and its Service tag names the service.
func (r *StaleResourceReclaimer) Reclaim(ctx context.Context, service string, protected ...string) []string {
	if r.delay > 0 {
		r.logger.Info().Dur("delay", r.delay).Msg("waiting before cleanup")
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil
		}
	}

	var deleted []string

	pages := elb.NewDescribeTargetGroupsPaginator(r.elb, &elb.DescribeTargetGroupsInput{})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			r.logger.Debug().Err(err).Msg("list target pools failed, skipping cleanup")
			return deleted
		}

		for _, tg := range page.TargetGroups {
			name, arn := aws.ToString(tg.TargetGroupName), aws.ToString(tg.TargetGroupArn)
			if !platform.IsTargetPoolName(service, name) || isProtected(arn, protected) {
				continue
			}
			if !r.ownedBy(ctx, arn, service) {
				continue
			}

			health, err := r.elb.DescribeTargetHealth(ctx, &elb.DescribeTargetHealthInput{
				TargetGroupArn: aws.String(arn),
			})
			if err != nil {
				r.logger.Debug().Err(err).Str("code", APIErrorCode(err)).Str("target_pool", name).Msg("target health unavailable, keeping pool")
				continue
			}
			if len(health.TargetHealthDescriptions) > 0 {
				continue
			}

			r.logger.Info().Str("target_pool", name).Msg("deleting unused target pool")
			if _, err := r.elb.DeleteTargetGroup(ctx, &elb.DeleteTargetGroupInput{
				TargetGroupArn: aws.String(arn),
			}); err != nil {
				r.logger.Debug().Err(err).Str("code", APIErrorCode(err)).Str("target_pool", name).Msg("delete failed, keeping pool")
				continue
			}
			deleted = append(deleted, name)
		}
	}

	return deleted
}

// ownedBy reports whether the pool's Service tag equals service. Pools whose
// tags cannot be read are treated as foreign.
func (r *StaleResourceReclaimer) ownedBy(ctx context.Context, arn, service string) bool {
	out, err := r.elb.DescribeTags(ctx, &elb.DescribeTagsInput{
		ResourceArns: []string{arn},
	})
	if err != nil {
		r.logger.Debug().Err(err).Str("code", APIErrorCode(err)).Str("target_pool", arn).Msg("tags unavailable, keeping pool")
		return false
	}
	for _, desc := range out.TagDescriptions {
		if aws.ToString(desc.ResourceArn) != arn {
			continue
		}
		for _, tag := range desc.Tags {
			if aws.ToString(tag.Key) == serviceTagKey {
				return aws.ToString(tag.Value) == service
			}
		}
	}
	return false
}

func isProtected(arn string, protected []string) bool {
	for _, p := range protected {
		if p != "" && p == arn {
			return true
		}
	}
	return false
}
