package deployer

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog"

	"github.com/edvin/ecsdeploy/internal/model"
)

// DiscoveryStrategy is one way of locating the VPC to deploy into. Find
// returns an empty id and a nil error when the strategy has no match.
type DiscoveryStrategy struct {
	Name string
	Find func(ctx context.Context, api EC2API) (string, error)
}

// VPCByFilters matches the first VPC returned for filters. No filters means
// any VPC.
func VPCByFilters(name string, filters ...ec2types.Filter) DiscoveryStrategy {
	return DiscoveryStrategy{
		Name: name,
		Find: func(ctx context.Context, api EC2API) (string, error) {
			in := &ec2.DescribeVpcsInput{}
			if len(filters) > 0 {
				in.Filters = filters
			}
			out, err := api.DescribeVpcs(ctx, in)
			if err != nil {
				return "", fmt.Errorf("describe vpcs (%s): %w", name, err)
			}
			for _, v := range out.Vpcs {
				if id := aws.ToString(v.VpcId); id != "" {
					return id, nil
				}
			}
			return "", nil
		},
	}
}

// DefaultDiscovery is the fallback chain: canonical name tag, known CIDR
// block, the account default VPC, then any VPC at all.
func DefaultDiscovery(vpcName, cidr string) []DiscoveryStrategy {
	return []DiscoveryStrategy{
		VPCByFilters("tag", filter("tag:Name", vpcName)),
		VPCByFilters("cidr", filter("cidr-block", cidr)),
		VPCByFilters("default", filter("isDefault", "true")),
		VPCByFilters("any"),
	}
}

func filter(name string, values ...string) ec2types.Filter {
	return ec2types.Filter{Name: aws.String(name), Values: values}
}

// NetworkResolver finds the VPC and the task network placement inside it.
type NetworkResolver struct {
	logger     zerolog.Logger
	ec2        EC2API
	strategies []DiscoveryStrategy
	taskSGName string

	vpcID string
}

// NewNetworkResolver creates a new NetworkResolver.
func NewNetworkResolver(logger zerolog.Logger, ec2API EC2API, strategies []DiscoveryStrategy, taskSGName string) *NetworkResolver {
	return &NetworkResolver{
		logger:     logger.With().Str("component", "network").Logger(),
		ec2:        ec2API,
		strategies: strategies,
		taskSGName: taskSGName,
	}
}

// VPC runs the discovery strategies in order and returns the first match.
// The result is remembered for the rest of the run.
func (n *NetworkResolver) VPC(ctx context.Context) (string, error) {
	if n.vpcID != "" {
		return n.vpcID, nil
	}

	tried := make([]string, 0, len(n.strategies))
	for _, s := range n.strategies {
		id, err := s.Find(ctx, n.ec2)
		if err != nil {
			return "", err
		}
		if id != "" {
			n.logger.Info().Str("vpc", id).Str("strategy", s.Name).Msg("using VPC")
			n.vpcID = id
			return id, nil
		}
		tried = append(tried, s.Name)
	}

	return "", fmt.Errorf("%w (tried %s): run the infrastructure pipeline first", ErrNetworkNotFound, strings.Join(tried, ", "))
}

// Placement resolves the private subnets and task security group of the VPC.
func (n *NetworkResolver) Placement(ctx context.Context) (model.NetworkPlacement, error) {
	vpcID, err := n.VPC(ctx)
	if err != nil {
		return model.NetworkPlacement{}, err
	}

	subnets, err := n.ec2.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		Filters: []ec2types.Filter{filter("vpc-id", vpcID), filter("tag:Type", "private")},
	})
	if err != nil {
		return model.NetworkPlacement{}, fmt.Errorf("describe subnets: %w", err)
	}
	placement := model.NetworkPlacement{VPCID: vpcID}
	for _, s := range subnets.Subnets {
		placement.Subnets = append(placement.Subnets, aws.ToString(s.SubnetId))
	}
	if len(placement.Subnets) == 0 {
		return model.NetworkPlacement{}, fmt.Errorf("%w: no private subnets in %s", ErrNetworkNotFound, vpcID)
	}

	sgs, err := n.ec2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{filter("vpc-id", vpcID), filter("tag:Name", n.taskSGName)},
	})
	if err != nil {
		return model.NetworkPlacement{}, fmt.Errorf("describe security groups: %w", err)
	}
	if len(sgs.SecurityGroups) > 0 {
		placement.SecurityGroups = []string{aws.ToString(sgs.SecurityGroups[0].GroupId)}
	} else {
		n.logger.Warn().Str("vpc", vpcID).Str("name", n.taskSGName).Msg("task security group not found, using the VPC default")
	}

	return placement, nil
}
