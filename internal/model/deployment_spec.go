package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the deploy file leaves a value unset.
const (
	DefaultCPU             = 256
	DefaultMemory          = 512
	DefaultContainerPort   = 8080
	DefaultHealthCheckPath = "/health"
	DefaultDesiredCount    = 1
)

var validate = validator.New()

var labelRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

func init() {
	validate.RegisterValidation("dnslabel", func(fl validator.FieldLevel) bool {
		return labelRegex.MatchString(fl.Field().String())
	})
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// DeploymentSpec is the parsed deploy file. It is read-only once loaded.
type DeploymentSpec struct {
	ServiceName   string   `yaml:"service_name" validate:"required,dnslabel"`
	ECS           *ECSSpec `yaml:"ecs" validate:"required"`
	Environment   EnvVars  `yaml:"environment"`
	SSMParameters []string `yaml:"ssm_parameters" validate:"dive,required"`
	Subdomain     string   `yaml:"subdomain" validate:"omitempty,dnslabel"`
}

// ECSSpec holds compute sizing, port and health settings. Zero values mean
// "use the default".
type ECSSpec struct {
	CPU             int    `yaml:"cpu" validate:"gte=0"`
	Memory          int    `yaml:"memory" validate:"gte=0"`
	ContainerPort   int    `yaml:"container_port" validate:"gte=0,lte=65535"`
	HealthCheckPath string `yaml:"health_check_path" validate:"omitempty,startswith=/"`
	DesiredCount    *int   `yaml:"desired_count" validate:"omitempty,gte=0"`
}

// EnvVar is one container environment entry.
type EnvVar struct {
	Name  string
	Value string
}

// EnvVars keeps environment entries in the order they appear in the deploy
// file. Non-string values are coerced to text.
type EnvVars []EnvVar

func (e *EnvVars) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*e = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("environment must be a mapping, line %d", node.Line)
	}

	vars := make(EnvVars, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		text, err := nodeText(val)
		if err != nil {
			return fmt.Errorf("environment %s: %w", key.Value, err)
		}
		vars = append(vars, EnvVar{Name: key.Value, Value: text})
	}
	*e = vars
	return nil
}

func nodeText(n *yaml.Node) (string, error) {
	switch {
	case n.Kind == yaml.ScalarNode && n.Tag == "!!null":
		return "", nil
	case n.Kind == yaml.ScalarNode:
		return n.Value, nil
	case n.Kind == yaml.AliasNode && n.Alias != nil:
		return nodeText(n.Alias)
	}

	var v any
	if err := n.Decode(&v); err != nil {
		return "", err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// LoadSpec reads and validates a deploy file.
func LoadSpec(path string) (*DeploymentSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deploy file: %w", err)
	}
	return ParseSpec(data)
}

// ParseSpec decodes and validates deploy file contents.
func ParseSpec(data []byte) (*DeploymentSpec, error) {
	var spec DeploymentSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse deploy file: %w", err)
	}
	if err := validate.Struct(&spec); err != nil {
		return nil, describeValidation(err)
	}
	return &spec, nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid deploy file: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "DeploymentSpec.")
		if fe.Tag() == "required" {
			msgs = append(msgs, fmt.Sprintf("missing required field '%s'", field))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s' check", field, fe.Tag()))
	}
	return fmt.Errorf("invalid deploy file: %s", strings.Join(msgs, "; "))
}

// Host returns the subdomain used for routing, falling back to the service name.
func (s *DeploymentSpec) Host() string {
	if s.Subdomain != "" {
		return s.Subdomain
	}
	return s.ServiceName
}

func (e *ECSSpec) CPUUnits() int {
	if e.CPU > 0 {
		return e.CPU
	}
	return DefaultCPU
}

func (e *ECSSpec) MemoryMiB() int {
	if e.Memory > 0 {
		return e.Memory
	}
	return DefaultMemory
}

func (e *ECSSpec) Port() int {
	if e.ContainerPort > 0 {
		return e.ContainerPort
	}
	return DefaultContainerPort
}

func (e *ECSSpec) HealthPath() string {
	if e.HealthCheckPath != "" {
		return e.HealthCheckPath
	}
	return DefaultHealthCheckPath
}

func (e *ECSSpec) Replicas() int {
	if e.DesiredCount != nil {
		return *e.DesiredCount
	}
	return DefaultDesiredCount
}
