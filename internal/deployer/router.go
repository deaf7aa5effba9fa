package deployer

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	elb "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/rs/zerolog"

	"github.com/edvin/ecsdeploy/internal/model"
	"github.com/edvin/ecsdeploy/internal/platform"
)

const (
	// Listener rule priorities must be in [1, 50000).
	rulePriorityCeiling = 50000
	hostHeaderField     = "host-header"
)

// TrafficRouter owns the host-header rule on the shared HTTPS listener. The
// rule's forward action is the cutover point of a deployment.
type TrafficRouter struct {
	logger       zerolog.Logger
	elb          ELBAPI
	loadBalancer string
	listenerPort int32
	domain       string
	now          func() time.Time
}

// NewTrafficRouter creates a new TrafficRouter.
func NewTrafficRouter(logger zerolog.Logger, elbAPI ELBAPI, loadBalancer string, listenerPort int, domain string) *TrafficRouter {
	return &TrafficRouter{
		logger:       logger.With().Str("component", "router").Logger(),
		elb:          elbAPI,
		loadBalancer: loadBalancer,
		listenerPort: int32(listenerPort),
		domain:       domain,
		now:          time.Now,
	}
}

// Host is the routed host name of spec.
func (r *TrafficRouter) Host(spec *model.DeploymentSpec) string {
	return platform.HostHeader(spec.Host(), r.domain)
}

// Route forwards the service's host to pool. An existing rule has its action
// replaced in a single request; otherwise a new rule is created.
func (r *TrafficRouter) Route(ctx context.Context, spec *model.DeploymentSpec, pool model.TargetPool) (model.RoutingRule, error) {
	host := r.Host(spec)

	listenerARN, err := r.listener(ctx)
	if err != nil {
		return model.RoutingRule{}, err
	}
	rules, err := r.rules(ctx, listenerARN)
	if err != nil {
		return model.RoutingRule{}, err
	}

	forward := []elbtypes.Action{{
		Type:           elbtypes.ActionTypeEnumForward,
		TargetGroupArn: aws.String(pool.ARN),
	}}

	if existing := FindHostRule(rules, host); existing != nil {
		r.logger.Info().Str("host", host).Str("rule", aws.ToString(existing.RuleArn)).Str("target_pool", pool.Name).Msg("switching rule to new target pool")
		_, err := r.elb.ModifyRule(ctx, &elb.ModifyRuleInput{
			RuleArn: existing.RuleArn,
			Actions: forward,
		})
		if err != nil {
			return model.RoutingRule{}, fmt.Errorf("modify rule for %s: %w", host, err)
		}
		priority, _ := strconv.Atoi(aws.ToString(existing.Priority))
		return model.RoutingRule{
			ARN:           aws.ToString(existing.RuleArn),
			ListenerARN:   listenerARN,
			Host:          host,
			Priority:      priority,
			TargetPoolARN: pool.ARN,
		}, nil
	}

	priority, err := NextPriority(int(r.now().Unix()%rulePriorityCeiling), usedPriorities(rules))
	if err != nil {
		return model.RoutingRule{}, err
	}

	r.logger.Info().Str("host", host).Int("priority", priority).Str("target_pool", pool.Name).Msg("creating rule")
	out, err := r.elb.CreateRule(ctx, &elb.CreateRuleInput{
		ListenerArn: aws.String(listenerARN),
		Priority:    aws.Int32(int32(priority)),
		Conditions: []elbtypes.RuleCondition{{
			Field:  aws.String(hostHeaderField),
			Values: []string{host},
		}},
		Actions: forward,
	})
	if err != nil {
		return model.RoutingRule{}, fmt.Errorf("create rule for %s: %w", host, err)
	}

	rule := model.RoutingRule{
		ListenerARN:   listenerARN,
		Host:          host,
		Priority:      priority,
		TargetPoolARN: pool.ARN,
		Created:       true,
	}
	if len(out.Rules) > 0 {
		rule.ARN = aws.ToString(out.Rules[0].RuleArn)
	}
	return rule, nil
}

// CurrentTarget returns the target pool ARN the service's rule forwards to,
// or "" when there is no rule for its host.
func (r *TrafficRouter) CurrentTarget(ctx context.Context, spec *model.DeploymentSpec) (string, error) {
	listenerARN, err := r.listener(ctx)
	if err != nil {
		return "", err
	}
	rules, err := r.rules(ctx, listenerARN)
	if err != nil {
		return "", err
	}
	rule := FindHostRule(rules, r.Host(spec))
	if rule == nil {
		return "", nil
	}
	return ForwardTarget(*rule), nil
}

func (r *TrafficRouter) listener(ctx context.Context) (string, error) {
	lbs, err := r.elb.DescribeLoadBalancers(ctx, &elb.DescribeLoadBalancersInput{
		Names: []string{r.loadBalancer},
	})
	if err != nil {
		return "", fmt.Errorf("describe load balancer %s: %w", r.loadBalancer, err)
	}
	if len(lbs.LoadBalancers) == 0 {
		return "", fmt.Errorf("load balancer %s not found", r.loadBalancer)
	}

	listeners, err := r.elb.DescribeListeners(ctx, &elb.DescribeListenersInput{
		LoadBalancerArn: lbs.LoadBalancers[0].LoadBalancerArn,
	})
	if err != nil {
		return "", fmt.Errorf("describe listeners of %s: %w", r.loadBalancer, err)
	}
	for _, l := range listeners.Listeners {
		if aws.ToInt32(l.Port) == r.listenerPort {
			return aws.ToString(l.ListenerArn), nil
		}
	}
	return "", fmt.Errorf("load balancer %s has no listener on port %d", r.loadBalancer, r.listenerPort)
}

func (r *TrafficRouter) rules(ctx context.Context, listenerARN string) ([]elbtypes.Rule, error) {
	var rules []elbtypes.Rule
	in := &elb.DescribeRulesInput{ListenerArn: aws.String(listenerARN)}
	for {
		out, err := r.elb.DescribeRules(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("describe rules: %w", err)
		}
		rules = append(rules, out.Rules...)
		if aws.ToString(out.NextMarker) == "" {
			return rules, nil
		}
		in.Marker = out.NextMarker
	}
}

// FindHostRule returns the non-default rule whose host-header condition
// contains host.
func FindHostRule(rules []elbtypes.Rule, host string) *elbtypes.Rule {
	for i := range rules {
		rule := &rules[i]
		if aws.ToBool(rule.IsDefault) || aws.ToString(rule.Priority) == "default" {
			continue
		}
		for _, c := range rule.Conditions {
			if aws.ToString(c.Field) != hostHeaderField {
				continue
			}
			values := c.Values
			if c.HostHeaderConfig != nil {
				values = append(slices.Clone(values), c.HostHeaderConfig.Values...)
			}
			for _, v := range values {
				if strings.EqualFold(v, host) {
					return rule
				}
			}
		}
	}
	return nil
}

// ForwardTarget returns the target pool a rule forwards to.
func ForwardTarget(rule elbtypes.Rule) string {
	for _, a := range rule.Actions {
		if a.Type != elbtypes.ActionTypeEnumForward {
			continue
		}
		if arn := aws.ToString(a.TargetGroupArn); arn != "" {
			return arn
		}
		if a.ForwardConfig != nil && len(a.ForwardConfig.TargetGroups) > 0 {
			return aws.ToString(a.ForwardConfig.TargetGroups[0].TargetGroupArn)
		}
	}
	return ""
}

func usedPriorities(rules []elbtypes.Rule) map[int]bool {
	used := make(map[int]bool, len(rules))
	for _, rule := range rules {
		if p, err := strconv.Atoi(aws.ToString(rule.Priority)); err == nil {
			used[p] = true
		}
	}
	return used
}

// NextPriority returns the first free priority at or after seed, wrapping
// within [1, 50000).
func NextPriority(seed int, used map[int]bool) (int, error) {
	span := rulePriorityCeiling - 1
	start := (seed%span + span) % span
	if start == 0 {
		start = span
	}
	for i := 0; i < span; i++ {
		p := (start-1+i)%span + 1
		if !used[p] {
			return p, nil
		}
	}
	return 0, fmt.Errorf("no free listener rule priority")
}
