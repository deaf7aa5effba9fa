package awsclient

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	elb "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Clients bundles the control-plane clients a deploy run talks to.
type Clients struct {
	ECS *ecs.Client
	ELB *elb.Client
	EC2 *ec2.Client
	SSM *ssm.Client
	ECR *ecr.Client
	STS *sts.Client
}

// New loads the shared AWS configuration for region and builds every client.
// Explicit static keys in the environment take precedence over the default
// credential chain.
func New(ctx context.Context, region string) (*Clients, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if key, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"); key != "" && secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, secret, os.Getenv("AWS_SESSION_TOKEN")),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return FromConfig(cfg), nil
}

// FromConfig builds clients from an already loaded configuration.
func FromConfig(cfg aws.Config) *Clients {
	return &Clients{
		ECS: ecs.NewFromConfig(cfg),
		ELB: elb.NewFromConfig(cfg),
		EC2: ec2.NewFromConfig(cfg),
		SSM: ssm.NewFromConfig(cfg),
		ECR: ecr.NewFromConfig(cfg),
		STS: sts.NewFromConfig(cfg),
	}
}

// AccountID resolves the caller's AWS account.
func (c *Clients) AccountID(ctx context.Context) (string, error) {
	out, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("get caller identity: %w", err)
	}
	return aws.ToString(out.Account), nil
}
