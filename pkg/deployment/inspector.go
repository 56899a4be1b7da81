// Package deployment inspects a deployed foundations stack: it reads the
// exported outputs, runs read-only checks against the deployed resources and
// persists the client configuration the mobile app consumes.
//
// Nothing in this package creates, updates or deletes cloud resources.
package deployment

import (
	"context"
	"net/http"
	"time"

	charm "github.com/charmbracelet/log"

	"github.com/anirudhbiyani/aijay/pkg/foundations"
)

// Inspector reads and validates one deployed stack.
type Inspector struct {
	descriptor *foundations.Descriptor
	clients    Clients
	httpClient *http.Client
	snapshots  SnapshotStore
	log        *charm.Logger
	now        func() time.Time
}

// InspectorOption configures the Inspector.
type InspectorOption func(*Inspector)

// WithClients sets the AWS API clients.
func WithClients(c Clients) InspectorOption {
	return func(i *Inspector) {
		i.clients = c
	}
}

// WithHTTPClient sets the client used for the ping check.
func WithHTTPClient(c *http.Client) InspectorOption {
	return func(i *Inspector) {
		i.httpClient = c
	}
}

// WithSnapshotStore sets where client configs are written.
func WithSnapshotStore(s SnapshotStore) InspectorOption {
	return func(i *Inspector) {
		i.snapshots = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *charm.Logger) InspectorOption {
	return func(i *Inspector) {
		i.log = l
	}
}

// WithClock sets the clock used for snapshot timestamps.
func WithClock(now func() time.Time) InspectorOption {
	return func(i *Inspector) {
		i.now = now
	}
}

// NewInspector creates an Inspector for the stack described by d.
func NewInspector(d *foundations.Descriptor, opts ...InspectorOption) *Inspector {
	i := &Inspector{
		descriptor: d,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		snapshots:  NewMemorySnapshotStore(),
		log:        charm.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Inspector) stackName() string {
	return i.descriptor.Context.StackName
}

// Outputs reads the five exported outputs.
func (i *Inspector) Outputs(ctx context.Context) (*Outputs, error) {
	i.log.Debug("reading stack outputs", "stack", i.stackName())
	return ReadOutputs(ctx, i.clients.CloudFormation, i.stackName())
}

// Snapshot reads the outputs and saves them as a client config.
func (i *Inspector) Snapshot(ctx context.Context) (*ClientConfig, error) {
	outputs, err := i.Outputs(ctx)
	if err != nil {
		return nil, err
	}
	cfg := NewClientConfig(*outputs, i.descriptor.Context.Region, i.stackName(), i.now())
	if err := i.snapshots.Save(ctx, cfg); err != nil {
		return nil, err
	}
	i.log.Info("saved client config", "stack", i.stackName())
	return &cfg, nil
}

// ValidateOptions configures Validate.
type ValidateOptions struct {
	// CheckIDs limits validation to specific checks. Empty runs all of them.
	CheckIDs []string

	// Timeout bounds the whole run. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// Validate runs the standard checks against the deployed stack. Only
// failures to read the stack itself are returned as errors; failed checks are
// reported.
func (i *Inspector) Validate(ctx context.Context, opts ValidateOptions) (*ValidationReport, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	outputs, err := i.Outputs(ctx)
	if err != nil {
		return nil, err
	}
	resources, err := ReadStackResources(ctx, i.clients.CloudFormation, i.stackName())
	if err != nil {
		return nil, err
	}

	validators := StandardValidators(i.descriptor, i.clients, i.httpClient)
	if len(opts.CheckIDs) > 0 {
		checkSet := make(map[string]bool)
		for _, id := range opts.CheckIDs {
			checkSet[id] = true
		}
		filtered := make([]Validator, 0, len(validators))
		for _, v := range validators {
			if checkSet[v.ID()] {
				filtered = append(filtered, v)
			}
		}
		validators = filtered
	}

	target := Target{StackName: i.stackName(), Outputs: outputs, Resources: resources}
	report := RunValidation(ctx, target, validators)
	for _, check := range report.Checks {
		i.log.Debug("check finished", "id", check.ID, "status", check.Status, "duration", check.Duration)
	}
	return report, nil
}
