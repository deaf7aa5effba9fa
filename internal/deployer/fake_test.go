package deployer

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	elb "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

const (
	testAccount     = "123456789012"
	testRegion      = "us-east-1"
	testLBARN       = "arn:aws:elasticloadbalancing:us-east-1:123456789012:loadbalancer/app/auto-deploy-prod-alb/1"
	testListenerARN = "arn:aws:elasticloadbalancing:us-east-1:123456789012:listener/app/auto-deploy-prod-alb/1/443"
)

// fakeCloud is a stateful in-memory stand-in for the ECS, ELB, EC2, SSM and
// ECR control planes. It implements every API interface the pipeline uses.
type fakeCloud struct {
	mu sync.Mutex

	fail map[string]error

	repos map[string]bool

	taskDefs  []*ecs.RegisterTaskDefinitionInput
	revisions map[string]int32
	services  map[string]*ecstypes.Service
	creates   int
	updates   int
	unstable  bool
	// noTargets keeps tasks from ever registering with their pool.
	noTargets bool

	pools     []elbtypes.TargetGroup
	poolTags  map[string][]elbtypes.Tag
	targets   map[string]int
	poolSeq   int
	rules     []elbtypes.Rule
	ruleSeq   int
	modifies  int
	deletions []string

	vpcs    []ec2types.Vpc
	subnets []ec2types.Subnet
	sgs     []ec2types.SecurityGroup

	params map[string]string
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{
		fail:      map[string]error{},
		repos:     map[string]bool{},
		revisions: map[string]int32{},
		services:  map[string]*ecstypes.Service{},
		targets:   map[string]int{},
		poolTags:  map[string][]elbtypes.Tag{},
		rules: []elbtypes.Rule{{
			RuleArn:   aws.String(testListenerARN + "/default"),
			Priority:  aws.String("default"),
			IsDefault: aws.Bool(true),
			Actions:   []elbtypes.Action{{Type: elbtypes.ActionTypeEnumFixedResponse}},
		}},
		vpcs: []ec2types.Vpc{{
			VpcId:     aws.String("vpc-prod"),
			CidrBlock: aws.String("10.100.0.0/16"),
			Tags:      []ec2types.Tag{{Key: aws.String("Name"), Value: aws.String("auto-deploy-prod-vpc")}},
		}},
		subnets: []ec2types.Subnet{
			{SubnetId: aws.String("subnet-a"), VpcId: aws.String("vpc-prod"), Tags: []ec2types.Tag{{Key: aws.String("Type"), Value: aws.String("private")}}},
			{SubnetId: aws.String("subnet-b"), VpcId: aws.String("vpc-prod"), Tags: []ec2types.Tag{{Key: aws.String("Type"), Value: aws.String("private")}}},
			{SubnetId: aws.String("subnet-pub"), VpcId: aws.String("vpc-prod"), Tags: []ec2types.Tag{{Key: aws.String("Type"), Value: aws.String("public")}}},
		},
		sgs: []ec2types.SecurityGroup{{
			GroupId: aws.String("sg-tasks"),
			VpcId:   aws.String("vpc-prod"),
			Tags:    []ec2types.Tag{{Key: aws.String("Name"), Value: aws.String("auto-deploy-prod-ecs-tasks-sg")}},
		}},
		params: map[string]string{},
	}
}

func (c *fakeCloud) apis() APIs {
	return APIs{ECS: c, ELB: c, EC2: c, SSM: c, ECR: c}
}

func (c *fakeCloud) err(op string) error {
	return c.fail[op]
}

// ---------- ECR ----------

func (c *fakeCloud) DescribeRepositories(ctx context.Context, in *ecr.DescribeRepositoriesInput, _ ...func(*ecr.Options)) (*ecr.DescribeRepositoriesOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.err("DescribeRepositories"); err != nil {
		return nil, err
	}
	out := &ecr.DescribeRepositoriesOutput{}
	for _, name := range in.RepositoryNames {
		if !c.repos[name] {
			return nil, &ecrtypes.RepositoryNotFoundException{Message: aws.String("repository " + name + " not found")}
		}
		out.Repositories = append(out.Repositories, ecrtypes.Repository{RepositoryName: aws.String(name)})
	}
	return out, nil
}

func (c *fakeCloud) CreateRepository(ctx context.Context, in *ecr.CreateRepositoryInput, _ ...func(*ecr.Options)) (*ecr.CreateRepositoryOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.err("CreateRepository"); err != nil {
		return nil, err
	}
	c.repos[aws.ToString(in.RepositoryName)] = true
	return &ecr.CreateRepositoryOutput{Repository: &ecrtypes.Repository{RepositoryName: in.RepositoryName}}, nil
}

func (c *fakeCloud) GetAuthorizationToken(ctx context.Context, in *ecr.GetAuthorizationTokenInput, _ ...func(*ecr.Options)) (*ecr.GetAuthorizationTokenOutput, error) {
	if err := c.err("GetAuthorizationToken"); err != nil {
		return nil, err
	}
	return &ecr.GetAuthorizationTokenOutput{AuthorizationData: []ecrtypes.AuthorizationData{{
		AuthorizationToken: aws.String(base64.StdEncoding.EncodeToString([]byte("AWS:registry-password"))),
		ProxyEndpoint:      aws.String("https://" + RegistryHost(testAccount, testRegion)),
	}}}, nil
}

// ---------- ECS ----------

func (c *fakeCloud) RegisterTaskDefinition(ctx context.Context, in *ecs.RegisterTaskDefinitionInput, _ ...func(*ecs.Options)) (*ecs.RegisterTaskDefinitionOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.err("RegisterTaskDefinition"); err != nil {
		return nil, err
	}
	family := aws.ToString(in.Family)
	c.revisions[family]++
	rev := c.revisions[family]
	c.taskDefs = append(c.taskDefs, in)
	return &ecs.RegisterTaskDefinitionOutput{TaskDefinition: &ecstypes.TaskDefinition{
		TaskDefinitionArn:    aws.String(fmt.Sprintf("arn:aws:ecs:%s:%s:task-definition/%s:%d", testRegion, testAccount, family, rev)),
		Family:               in.Family,
		Revision:             rev,
		ContainerDefinitions: in.ContainerDefinitions,
	}}, nil
}

func (c *fakeCloud) DescribeServices(ctx context.Context, in *ecs.DescribeServicesInput, _ ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.err("DescribeServices"); err != nil {
		return nil, err
	}
	out := &ecs.DescribeServicesOutput{}
	for _, name := range in.Services {
		svc, ok := c.services[name]
		if !ok {
			out.Failures = append(out.Failures, ecstypes.Failure{Arn: aws.String(name), Reason: aws.String("MISSING")})
			continue
		}
		copied := *svc
		if c.unstable {
			copied.RunningCount = 0
		}
		out.Services = append(out.Services, copied)
	}
	return out, nil
}

func (c *fakeCloud) CreateService(ctx context.Context, in *ecs.CreateServiceInput, _ ...func(*ecs.Options)) (*ecs.CreateServiceOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.err("CreateService"); err != nil {
		return nil, err
	}
	name := aws.ToString(in.ServiceName)
	if svc, ok := c.services[name]; ok && aws.ToString(svc.Status) == "ACTIVE" {
		return nil, &ecstypes.InvalidParameterException{Message: aws.String("Creation of service was not idempotent.")}
	}
	c.creates++
	svc := &ecstypes.Service{
		ServiceName:          in.ServiceName,
		Status:               aws.String("ACTIVE"),
		TaskDefinition:       in.TaskDefinition,
		NetworkConfiguration: in.NetworkConfiguration,
		LaunchType:           in.LaunchType,
	}
	c.services[name] = svc
	c.apply(svc, aws.ToInt32(in.DesiredCount), in.LoadBalancers)
	return &ecs.CreateServiceOutput{Service: svc}, nil
}

func (c *fakeCloud) UpdateService(ctx context.Context, in *ecs.UpdateServiceInput, _ ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.err("UpdateService"); err != nil {
		return nil, err
	}
	name := aws.ToString(in.Service)
	svc, ok := c.services[name]
	if !ok {
		return nil, &ecstypes.ServiceNotFoundException{Message: aws.String("Service not found.")}
	}
	c.updates++
	svc.TaskDefinition = in.TaskDefinition
	c.apply(svc, aws.ToInt32(in.DesiredCount), in.LoadBalancers)
	return &ecs.UpdateServiceOutput{Service: svc}, nil
}

// apply rolls the service onto its new binding: targets move from the old
// pools to the new one.
func (c *fakeCloud) apply(svc *ecstypes.Service, desired int32, lbs []ecstypes.LoadBalancer) {
	if lbs != nil {
		for _, old := range svc.LoadBalancers {
			delete(c.targets, aws.ToString(old.TargetGroupArn))
		}
		svc.LoadBalancers = lbs
	}
	svc.DesiredCount = desired
	svc.RunningCount = desired
	svc.Deployments = []ecstypes.Deployment{{Status: aws.String("PRIMARY"), TaskDefinition: svc.TaskDefinition}}
	if c.noTargets {
		return
	}
	for _, lb := range svc.LoadBalancers {
		c.targets[aws.ToString(lb.TargetGroupArn)] = int(desired)
	}
}

// ---------- ELB ----------

func (c *fakeCloud) CreateTargetGroup(ctx context.Context, in *elb.CreateTargetGroupInput, _ ...func(*elb.Options)) (*elb.CreateTargetGroupOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.err("CreateTargetGroup"); err != nil {
		return nil, err
	}
	name := aws.ToString(in.Name)
	if len(name) > 32 {
		return nil, &elbtypes.InvalidConfigurationRequestException{Message: aws.String("name too long")}
	}
	for _, p := range c.pools {
		if aws.ToString(p.TargetGroupName) == name {
			return nil, &elbtypes.DuplicateTargetGroupNameException{Message: aws.String("duplicate")}
		}
	}
	c.poolSeq++
	tg := elbtypes.TargetGroup{
		TargetGroupArn:  aws.String(fmt.Sprintf("arn:aws:elasticloadbalancing:%s:%s:targetgroup/%s/%d", testRegion, testAccount, name, c.poolSeq)),
		TargetGroupName: in.Name,
		Port:            in.Port,
		Protocol:        in.Protocol,
		TargetType:      in.TargetType,
		VpcId:           in.VpcId,
		HealthCheckPath: in.HealthCheckPath,
	}
	c.pools = append(c.pools, tg)
	c.poolTags[aws.ToString(tg.TargetGroupArn)] = in.Tags
	return &elb.CreateTargetGroupOutput{TargetGroups: []elbtypes.TargetGroup{tg}}, nil
}

func (c *fakeCloud) DescribeTargetGroups(ctx context.Context, in *elb.DescribeTargetGroupsInput, _ ...func(*elb.Options)) (*elb.DescribeTargetGroupsOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.err("DescribeTargetGroups"); err != nil {
		return nil, err
	}
	if len(in.Names) == 0 {
		return &elb.DescribeTargetGroupsOutput{TargetGroups: append([]elbtypes.TargetGroup(nil), c.pools...)}, nil
	}
	out := &elb.DescribeTargetGroupsOutput{}
	for _, name := range in.Names {
		found := false
		for _, p := range c.pools {
			if aws.ToString(p.TargetGroupName) == name {
				out.TargetGroups = append(out.TargetGroups, p)
				found = true
			}
		}
		if !found {
			return nil, &elbtypes.TargetGroupNotFoundException{Message: aws.String("One or more target groups not found")}
		}
	}
	return out, nil
}

func (c *fakeCloud) DescribeTargetHealth(ctx context.Context, in *elb.DescribeTargetHealthInput, _ ...func(*elb.Options)) (*elb.DescribeTargetHealthOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.err("DescribeTargetHealth"); err != nil {
		return nil, err
	}
	out := &elb.DescribeTargetHealthOutput{}
	for i := 0; i < c.targets[aws.ToString(in.TargetGroupArn)]; i++ {
		out.TargetHealthDescriptions = append(out.TargetHealthDescriptions, elbtypes.TargetHealthDescription{
			Target: &elbtypes.TargetDescription{Id: aws.String(fmt.Sprintf("10.100.1.%d", i+10))},
		})
	}
	return out, nil
}

func (c *fakeCloud) DeleteTargetGroup(ctx context.Context, in *elb.DeleteTargetGroupInput, _ ...func(*elb.Options)) (*elb.DeleteTargetGroupOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.err("DeleteTargetGroup"); err != nil {
		return nil, err
	}
	arn := aws.ToString(in.TargetGroupArn)
	if c.targets[arn] > 0 || c.ruleForwardsTo(arn) {
		return nil, &elbtypes.ResourceInUseException{Message: aws.String("target group is in use")}
	}
	for i, p := range c.pools {
		if aws.ToString(p.TargetGroupArn) == arn {
			c.pools = append(c.pools[:i], c.pools[i+1:]...)
			delete(c.poolTags, arn)
			c.deletions = append(c.deletions, aws.ToString(p.TargetGroupName))
			return &elb.DeleteTargetGroupOutput{}, nil
		}
	}
	return &elb.DeleteTargetGroupOutput{}, nil
}

func (c *fakeCloud) DescribeTags(ctx context.Context, in *elb.DescribeTagsInput, _ ...func(*elb.Options)) (*elb.DescribeTagsOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.err("DescribeTags"); err != nil {
		return nil, err
	}
	out := &elb.DescribeTagsOutput{}
	for _, arn := range in.ResourceArns {
		tags, ok := c.poolTags[arn]
		if !ok {
			return nil, &elbtypes.TargetGroupNotFoundException{Message: aws.String("target group not found")}
		}
		out.TagDescriptions = append(out.TagDescriptions, elbtypes.TagDescription{
			ResourceArn: aws.String(arn),
			Tags:        tags,
		})
	}
	return out, nil
}

func poolTagValue(tags []elbtypes.Tag, key string) string {
	for _, t := range tags {
		if aws.ToString(t.Key) == key {
			return aws.ToString(t.Value)
		}
	}
	return ""
}

func (c *fakeCloud) ruleForwardsTo(arn string) bool {
	for _, r := range c.rules {
		if ForwardTarget(r) == arn {
			return true
		}
	}
	return false
}

func (c *fakeCloud) DescribeLoadBalancers(ctx context.Context, in *elb.DescribeLoadBalancersInput, _ ...func(*elb.Options)) (*elb.DescribeLoadBalancersOutput, error) {
	if err := c.err("DescribeLoadBalancers"); err != nil {
		return nil, err
	}
	for _, name := range in.Names {
		if name != "auto-deploy-prod-alb" {
			return nil, &elbtypes.LoadBalancerNotFoundException{Message: aws.String("not found")}
		}
	}
	return &elb.DescribeLoadBalancersOutput{LoadBalancers: []elbtypes.LoadBalancer{{
		LoadBalancerArn:  aws.String(testLBARN),
		LoadBalancerName: aws.String("auto-deploy-prod-alb"),
	}}}, nil
}

func (c *fakeCloud) DescribeListeners(ctx context.Context, in *elb.DescribeListenersInput, _ ...func(*elb.Options)) (*elb.DescribeListenersOutput, error) {
	if err := c.err("DescribeListeners"); err != nil {
		return nil, err
	}
	return &elb.DescribeListenersOutput{Listeners: []elbtypes.Listener{
		{ListenerArn: aws.String(testListenerARN + "-http"), Port: aws.Int32(80)},
		{ListenerArn: aws.String(testListenerARN), Port: aws.Int32(443)},
	}}, nil
}

func (c *fakeCloud) DescribeRules(ctx context.Context, in *elb.DescribeRulesInput, _ ...func(*elb.Options)) (*elb.DescribeRulesOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.err("DescribeRules"); err != nil {
		return nil, err
	}
	return &elb.DescribeRulesOutput{Rules: append([]elbtypes.Rule(nil), c.rules...)}, nil
}

func (c *fakeCloud) ModifyRule(ctx context.Context, in *elb.ModifyRuleInput, _ ...func(*elb.Options)) (*elb.ModifyRuleOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.err("ModifyRule"); err != nil {
		return nil, err
	}
	for i := range c.rules {
		if aws.ToString(c.rules[i].RuleArn) == aws.ToString(in.RuleArn) {
			c.rules[i].Actions = in.Actions
			c.modifies++
			return &elb.ModifyRuleOutput{Rules: []elbtypes.Rule{c.rules[i]}}, nil
		}
	}
	return nil, &elbtypes.RuleNotFoundException{Message: aws.String("rule not found")}
}

func (c *fakeCloud) CreateRule(ctx context.Context, in *elb.CreateRuleInput, _ ...func(*elb.Options)) (*elb.CreateRuleOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.err("CreateRule"); err != nil {
		return nil, err
	}
	priority := strconv.Itoa(int(aws.ToInt32(in.Priority)))
	for _, r := range c.rules {
		if aws.ToString(r.Priority) == priority {
			return nil, &elbtypes.PriorityInUseException{Message: aws.String("priority in use")}
		}
	}
	c.ruleSeq++
	rule := elbtypes.Rule{
		RuleArn:    aws.String(fmt.Sprintf("%s/rule/%d", testListenerARN, c.ruleSeq)),
		Priority:   aws.String(priority),
		Conditions: in.Conditions,
		Actions:    in.Actions,
		IsDefault:  aws.Bool(false),
	}
	c.rules = append(c.rules, rule)
	return &elb.CreateRuleOutput{Rules: []elbtypes.Rule{rule}}, nil
}

func (c *fakeCloud) hostRules(host string) []elbtypes.Rule {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []elbtypes.Rule
	for _, r := range c.rules {
		if FindHostRule([]elbtypes.Rule{r}, host) != nil {
			out = append(out, r)
		}
	}
	return out
}

func (c *fakeCloud) poolNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.pools))
	for _, p := range c.pools {
		names = append(names, aws.ToString(p.TargetGroupName))
	}
	return names
}

// ---------- EC2 ----------

func (c *fakeCloud) DescribeVpcs(ctx context.Context, in *ec2.DescribeVpcsInput, _ ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
	if err := c.err("DescribeVpcs"); err != nil {
		return nil, err
	}
	out := &ec2.DescribeVpcsOutput{}
	for _, v := range c.vpcs {
		if matchVPC(v, in.Filters) {
			out.Vpcs = append(out.Vpcs, v)
		}
	}
	return out, nil
}

func matchVPC(v ec2types.Vpc, filters []ec2types.Filter) bool {
	for _, f := range filters {
		var actual string
		switch name := aws.ToString(f.Name); {
		case name == "cidr-block":
			actual = aws.ToString(v.CidrBlock)
		case name == "isDefault":
			actual = strconv.FormatBool(aws.ToBool(v.IsDefault))
		case strings.HasPrefix(name, "tag:"):
			actual = tagValue(v.Tags, strings.TrimPrefix(name, "tag:"))
		}
		if !contains(f.Values, actual) {
			return false
		}
	}
	return true
}

func (c *fakeCloud) DescribeSubnets(ctx context.Context, in *ec2.DescribeSubnetsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error) {
	if err := c.err("DescribeSubnets"); err != nil {
		return nil, err
	}
	out := &ec2.DescribeSubnetsOutput{}
	for _, s := range c.subnets {
		if matchTagged(aws.ToString(s.VpcId), s.Tags, in.Filters) {
			out.Subnets = append(out.Subnets, s)
		}
	}
	return out, nil
}

func (c *fakeCloud) DescribeSecurityGroups(ctx context.Context, in *ec2.DescribeSecurityGroupsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
	if err := c.err("DescribeSecurityGroups"); err != nil {
		return nil, err
	}
	out := &ec2.DescribeSecurityGroupsOutput{}
	for _, g := range c.sgs {
		if matchTagged(aws.ToString(g.VpcId), g.Tags, in.Filters) {
			out.SecurityGroups = append(out.SecurityGroups, g)
		}
	}
	return out, nil
}

func matchTagged(vpcID string, tags []ec2types.Tag, filters []ec2types.Filter) bool {
	for _, f := range filters {
		var actual string
		switch name := aws.ToString(f.Name); {
		case name == "vpc-id":
			actual = vpcID
		case strings.HasPrefix(name, "tag:"):
			actual = tagValue(tags, strings.TrimPrefix(name, "tag:"))
		}
		if !contains(f.Values, actual) {
			return false
		}
	}
	return true
}

func tagValue(tags []ec2types.Tag, key string) string {
	for _, t := range tags {
		if aws.ToString(t.Key) == key {
			return aws.ToString(t.Value)
		}
	}
	return ""
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// ---------- SSM ----------

func (c *fakeCloud) GetParameter(ctx context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	name := aws.ToString(in.Name)
	arn, ok := c.params[name]
	if !ok {
		return nil, &ssmtypes.ParameterNotFound{Message: aws.String("parameter " + name + " not found")}
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Name: in.Name, ARN: aws.String(arn)}}, nil
}

// ---------- Image engine ----------

type fakeEngine struct {
	mu     sync.Mutex
	built  []string
	pushed []string
	auth   []RegistryAuth
	fail   error
}

func (e *fakeEngine) BuildImage(ctx context.Context, contextDir, ref string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail != nil {
		return e.fail
	}
	e.built = append(e.built, ref)
	return nil
}

func (e *fakeEngine) PushImage(ctx context.Context, ref string, auth RegistryAuth) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pushed = append(e.pushed, ref)
	e.auth = append(e.auth, auth)
	return nil
}

// provisionInput builds a pool input tagged with the service its name implies:
// "auto-api-gateway-00000001" belongs to "api-gateway".
func provisionInput(name string) *elb.CreateTargetGroupInput {
	service := strings.TrimPrefix(name, "auto-")
	if i := strings.LastIndex(service, "-"); i > 0 && service != name {
		return ownedPoolInput(name, service[:i])
	}
	return ownedPoolInput(name, "")
}

func ownedPoolInput(name, service string) *elb.CreateTargetGroupInput {
	in := &elb.CreateTargetGroupInput{
		Name:       aws.String(name),
		Port:       aws.Int32(9000),
		Protocol:   elbtypes.ProtocolEnumHttp,
		TargetType: elbtypes.TargetTypeEnumIp,
		VpcId:      aws.String("vpc-prod"),
	}
	if service != "" {
		in.Tags = []elbtypes.Tag{{Key: aws.String(serviceTagKey), Value: aws.String(service)}}
	}
	return in
}

func createServiceInput(name string) *ecs.CreateServiceInput {
	return &ecs.CreateServiceInput{
		Cluster:        aws.String("auto-deploy-prod-cluster"),
		ServiceName:    aws.String(name),
		TaskDefinition: aws.String("arn:aws:ecs:us-east-1:123456789012:task-definition/auto-deploy-" + name + ":1"),
		DesiredCount:   aws.Int32(1),
		LaunchType:     ecstypes.LaunchTypeFargate,
	}
}
