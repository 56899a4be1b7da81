package foundations

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultRegion is the only region the foundations stack deploys to.
	DefaultRegion = "ap-southeast-2"

	// DefaultStackName is the CloudFormation stack name.
	DefaultStackName = "AIJay-Foundations"

	// DefaultHandlerAsset is the directory holding the compiled bootstrap binary.
	DefaultHandlerAsset = "build/api"
)

// Environment variables read by LoadContext.
const (
	EnvAccount      = "CDK_DEFAULT_ACCOUNT"
	EnvHandlerAsset = "AIJAY_HANDLER_ASSET"
)

// DeploymentContext is the externally supplied target of a descriptor evaluation.
type DeploymentContext struct {
	// Account is the target AWS account ID. Required.
	Account string `yaml:"account"`

	// Region is the target region. Only DefaultRegion is accepted.
	Region string `yaml:"region"`

	// StackName is the CloudFormation stack name.
	StackName string `yaml:"stack_name"`

	// HandlerAsset is the directory containing the handler's bootstrap binary.
	HandlerAsset string `yaml:"handler_asset"`

	// Tags are applied to every resource in the stack.
	Tags map[string]string `yaml:"tags,omitempty"`
}

// DefaultContext returns a context with every optional field defaulted and
// no account.
func DefaultContext() DeploymentContext {
	return DeploymentContext{
		Region:       DefaultRegion,
		StackName:    DefaultStackName,
		HandlerAsset: DefaultHandlerAsset,
	}
}

// LoadContext reads a YAML context file and overlays the process environment.
// An empty path skips the file.
func LoadContext(path string) (DeploymentContext, error) {
	ctx := DefaultContext()

	if path != "" {
		payload, err := os.ReadFile(path)
		if err != nil {
			return DeploymentContext{}, fmt.Errorf("failed to read context file: %w", err)
		}
		if err := yaml.Unmarshal(payload, &ctx); err != nil {
			return DeploymentContext{}, ErrValidation("invalid context file").WithCause(err).
				WithResource("file", path)
		}
	}

	ctx.ApplyEnv(os.LookupEnv)
	ctx.fillDefaults()
	return ctx, nil
}

// ApplyEnv overlays values from the environment. Set variables win over the file.
func (c *DeploymentContext) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAccount); ok && v != "" {
		c.Account = v
	}
	if v, ok := lookup(EnvHandlerAsset); ok && v != "" {
		c.HandlerAsset = v
	}
}

func (c *DeploymentContext) fillDefaults() {
	d := DefaultContext()
	if c.Region == "" {
		c.Region = d.Region
	}
	if c.StackName == "" {
		c.StackName = d.StackName
	}
	if c.HandlerAsset == "" {
		c.HandlerAsset = d.HandlerAsset
	}
}

// ErrAccountRequired is returned when no target account is supplied.
var ErrAccountRequired = errors.New("target account identifier is required")

// Validate checks the context. A missing account is the one failure every
// descriptor evaluation can hit.
func (c DeploymentContext) Validate() error {
	if c.Account == "" {
		return ErrValidation("missing target account").WithCause(ErrAccountRequired).
			WithOperation("describe").WithDetail("env", EnvAccount)
	}
	if c.Region != DefaultRegion {
		return ErrValidation(fmt.Sprintf("region must be %s, got %q", DefaultRegion, c.Region)).
			WithOperation("describe")
	}
	if c.StackName == "" {
		return ErrValidation("stack name is required").WithOperation("describe")
	}
	return nil
}

var awsAccountIDRegex = regexp.MustCompile(`^\d{12}$`)

// ValidateAccountID validates the canonical 12-digit AWS account ID format.
func ValidateAccountID(id string) error {
	if !awsAccountIDRegex.MatchString(id) {
		return fmt.Errorf("invalid AWS account ID format: %s", id)
	}
	return nil
}
