package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Region         string
	Cluster        string
	LoadBalancer   string
	ListenerPort   int
	Domain         string
	VPCName        string
	VPCCIDR        string
	TaskSGName     string
	LogGroup       string
	LogLevel       string
	LogFormat      string
	DatabaseURL    string
	PushgatewayURL string

	// ExecutionRoleARN and TaskRoleARN default to the auto-deploy roles in the
	// caller's account when empty.
	ExecutionRoleARN string
	TaskRoleARN      string

	ReclaimDelay   time.Duration
	StableInterval time.Duration
	StableAttempts int
}

func Load() (*Config, error) {
	cfg := &Config{
		Region:           getEnv("AWS_REGION", "us-east-1"),
		Cluster:          getEnv("ECSDEPLOY_CLUSTER", "auto-deploy-prod-cluster"),
		LoadBalancer:     getEnv("ECSDEPLOY_LOAD_BALANCER", "auto-deploy-prod-alb"),
		Domain:           getEnv("ECSDEPLOY_DOMAIN", "webbyftw.co.in"),
		VPCName:          getEnv("ECSDEPLOY_VPC_NAME", "auto-deploy-prod-vpc"),
		VPCCIDR:          getEnv("ECSDEPLOY_VPC_CIDR", "10.100.0.0/16"),
		TaskSGName:       getEnv("ECSDEPLOY_TASK_SG_NAME", "auto-deploy-prod-ecs-tasks-sg"),
		LogGroup:         getEnv("ECSDEPLOY_LOG_GROUP", "/ecs/auto-deploy-prod"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		PushgatewayURL:   getEnv("PUSHGATEWAY_URL", ""),
		ExecutionRoleARN: getEnv("ECSDEPLOY_EXECUTION_ROLE_ARN", ""),
		TaskRoleARN:      getEnv("ECSDEPLOY_TASK_ROLE_ARN", ""),
	}

	var err error
	if cfg.ListenerPort, err = getEnvInt("ECSDEPLOY_LISTENER_PORT", 443); err != nil {
		return nil, err
	}
	if cfg.StableAttempts, err = getEnvInt("ECSDEPLOY_STABLE_ATTEMPTS", 40); err != nil {
		return nil, err
	}
	if cfg.ReclaimDelay, err = getEnvDuration("ECSDEPLOY_RECLAIM_DELAY", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.StableInterval, err = getEnvDuration("ECSDEPLOY_STABLE_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the values the deploy pipeline depends on are usable.
func (c *Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("AWS_REGION is required")
	}
	if c.Cluster == "" {
		return fmt.Errorf("ECSDEPLOY_CLUSTER is required")
	}
	if c.LoadBalancer == "" {
		return fmt.Errorf("ECSDEPLOY_LOAD_BALANCER is required")
	}
	if c.Domain == "" {
		return fmt.Errorf("ECSDEPLOY_DOMAIN is required")
	}
	if c.ListenerPort <= 0 || c.ListenerPort > 65535 {
		return fmt.Errorf("ECSDEPLOY_LISTENER_PORT must be a valid port, got %d", c.ListenerPort)
	}
	if c.StableInterval <= 0 {
		return fmt.Errorf("ECSDEPLOY_STABLE_INTERVAL must be positive")
	}
	if c.StableAttempts <= 0 {
		return fmt.Errorf("ECSDEPLOY_STABLE_ATTEMPTS must be positive")
	}
	if c.ReclaimDelay < 0 {
		return fmt.Errorf("ECSDEPLOY_RECLAIM_DELAY must not be negative")
	}
	return nil
}

// StableTimeout is the hard upper bound on the stability wait.
func (c *Config) StableTimeout() time.Duration {
	return c.StableInterval * time.Duration(c.StableAttempts)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
