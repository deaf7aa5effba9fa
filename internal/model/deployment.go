package model

import (
	"fmt"
	"time"
)

// ImageReference points at a uniquely tagged image in a registry.
type ImageReference struct {
	Registry   string `json:"registry"`
	Repository string `json:"repository"`
	Tag        string `json:"tag"`
}

func (r ImageReference) String() string {
	return fmt.Sprintf("%s/%s:%s", r.Registry, r.Repository, r.Tag)
}

// RevisionHandle identifies a registered task definition revision.
type RevisionHandle struct {
	ARN      string `json:"arn"`
	Family   string `json:"family"`
	Revision int32  `json:"revision"`
}

// TargetPool is a load balancer target group created for one deploy attempt.
type TargetPool struct {
	ARN  string `json:"arn"`
	Name string `json:"name"`
}

// NetworkPlacement is where workload tasks are attached.
type NetworkPlacement struct {
	VPCID          string   `json:"vpc_id"`
	Subnets        []string `json:"subnets"`
	SecurityGroups []string `json:"security_groups"`
}

// RoutingRule is a host-header forwarding rule on the shared listener.
type RoutingRule struct {
	ARN           string `json:"arn"`
	ListenerARN   string `json:"listener_arn"`
	Host          string `json:"host"`
	Priority      int    `json:"priority"`
	TargetPoolARN string `json:"target_pool_arn"`
	Created       bool   `json:"created"`
}

// Deployment is the persisted record of one deploy run.
type Deployment struct {
	ID          string     `json:"id" db:"id"`
	ServiceName string     `json:"service_name" db:"service_name"`
	Image       string     `json:"image" db:"image"`
	Revision    string     `json:"revision" db:"revision"`
	TargetPool  string     `json:"target_pool" db:"target_pool"`
	Status      string     `json:"status" db:"status"`
	Error       string     `json:"error,omitempty" db:"error"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}
