package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/spf13/cobra"

	"github.com/anirudhbiyani/aijay/internal/logger"
	"github.com/anirudhbiyani/aijay/pkg/deployment"
	"github.com/anirudhbiyani/aijay/pkg/foundations"
)

// globalOpts are the flags shared by every command.
type globalOpts struct {
	configPath   string
	account      string
	stackName    string
	handlerAsset string
	profile      string
	output       string
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}

	root := &cobra.Command{
		Use:   "aijay",
		Short: "Declare and inspect the AIJay foundations stack",
		Long: `aijay declares the AIJay foundations infrastructure (user pool, app client,
data bucket, tables, API function and HTTP API) as a CDK stack in ap-southeast-2.

The CDK toolkit runs "aijay synth" through cdk.json. The other commands inspect
a stack that cdk deploy has already materialized.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML deployment context file")
	flags.StringVar(&opts.account, "account", "", "Target AWS account ID (overrides "+foundations.EnvAccount+")")
	flags.StringVar(&opts.stackName, "stack-name", "", "CloudFormation stack name")
	flags.StringVar(&opts.handlerAsset, "handler-asset", "", "Directory containing the API bootstrap binary")
	flags.StringVar(&opts.profile, "profile", "", "AWS shared config profile")
	flags.StringVarP(&opts.output, "output", "o", "text", "Output format: text or json")

	root.AddCommand(
		newSynthCmd(opts),
		newPlanCmd(opts),
		newOutputsCmd(opts),
		newValidateCmd(opts),
		newVersionCmd(),
	)
	return root
}

// context loads the deployment context: file, then environment, then flags.
func (o *globalOpts) context() (foundations.DeploymentContext, error) {
	ctx, err := foundations.LoadContext(o.configPath)
	if err != nil {
		return ctx, err
	}
	if o.account != "" {
		ctx.Account = o.account
	}
	if o.stackName != "" {
		ctx.StackName = o.stackName
	}
	if o.handlerAsset != "" {
		ctx.HandlerAsset = o.handlerAsset
	}
	if ctx.Account != "" {
		if err := foundations.ValidateAccountID(ctx.Account); err != nil {
			logger.Default().Warn("account is not a 12-digit AWS account ID", "account", ctx.Account)
		}
	}
	return ctx, nil
}

func (o *globalOpts) descriptor() (*foundations.Descriptor, error) {
	ctx, err := o.context()
	if err != nil {
		return nil, err
	}
	return foundations.Describe(ctx)
}

func (o *globalOpts) writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSynthCmd(opts *globalOpts) *cobra.Command {
	var outdir string

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize the foundations stack for the CDK toolkit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := opts.descriptor()
			if err != nil {
				return err
			}
			for _, w := range d.Plan().Warnings {
				logger.Default().Warn(w)
			}

			props := &awscdk.AppProps{}
			if outdir != "" {
				props.Outdir = &outdir
			}
			app, err := foundations.NewApp(d.Context, props)
			if err != nil {
				return err
			}
			app.Synth(nil)
			logger.Default().Info("synthesized stack", "stack", d.Context.StackName, "account", d.Context.Account, "region", d.Context.Region)
			return nil
		},
	}
	cmd.Flags().StringVar(&outdir, "outdir", "", "Cloud assembly output directory (defaults to CDK_OUTDIR or cdk.out)")
	return cmd
}

func newPlanCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the declared resources and their dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := opts.descriptor()
			if err != nil {
				return err
			}
			plan := d.Plan()
			out := cmd.OutOrStdout()
			if opts.output == "json" {
				return opts.writeJSON(out, plan)
			}

			fmt.Fprintln(out, plan.Summary)
			for _, a := range plan.Actions {
				fmt.Fprintf(out, "  %-8s %-30s %s\n", a.Operation, a.ResourceType, a.ResourceID)
				if len(a.DependsOn) > 0 {
					fmt.Fprintf(out, "           depends on: %s\n", strings.Join(a.DependsOn, ", "))
				}
			}
			if len(d.Outputs) > 0 {
				fmt.Fprintln(out, "Outputs:")
				for _, o := range d.Outputs {
					fmt.Fprintf(out, "  %-18s %s\n", o.Name, o.Value)
				}
			}
			for _, w := range plan.Warnings {
				fmt.Fprintf(out, "Warning: %s\n", w)
			}
			return nil
		},
	}
}

func (o *globalOpts) inspector(cmd *cobra.Command, d *foundations.Descriptor, extra ...deployment.InspectorOption) (*deployment.Inspector, error) {
	cfg, err := deployment.LoadAWSConfig(cmd.Context(), d.Context.Region, o.profile)
	if err != nil {
		return nil, err
	}
	inspectorOpts := append([]deployment.InspectorOption{
		deployment.WithClients(deployment.NewClients(cfg)),
		deployment.WithLogger(logger.Default()),
	}, extra...)
	return deployment.NewInspector(d, inspectorOpts...), nil
}

func newOutputsCmd(opts *globalOpts) *cobra.Command {
	var writePath string

	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Read the exported outputs of the deployed stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := opts.descriptor()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if writePath != "" {
				store := deployment.NewFileSnapshotStore(writePath)
				i, err := opts.inspector(cmd, d, deployment.WithSnapshotStore(store))
				if err != nil {
					return err
				}
				cfg, err := i.Snapshot(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to write client config: %w", err)
				}
				if opts.output == "json" {
					return opts.writeJSON(out, cfg)
				}
				fmt.Fprintf(out, "Wrote %s\n", store.Path())
				return nil
			}

			i, err := opts.inspector(cmd, d)
			if err != nil {
				return err
			}
			outputs, err := i.Outputs(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read outputs: %w", err)
			}
			if opts.output == "json" {
				return opts.writeJSON(out, outputs)
			}
			printOutputs(out, outputs)
			return nil
		},
	}
	cmd.Flags().StringVarP(&writePath, "write", "w", "", "Write the outputs as a client config JSON file")
	return cmd
}

func printOutputs(w io.Writer, o *deployment.Outputs) {
	fmt.Fprintf(w, "%-18s %s\n", foundations.OutputHTTPAPIURL, o.APIURL)
	fmt.Fprintf(w, "%-18s %s\n", foundations.OutputUserPoolID, o.UserPoolID)
	fmt.Fprintf(w, "%-18s %s\n", foundations.OutputUserPoolClientID, o.UserPoolClientID)
	fmt.Fprintf(w, "%-18s %s\n", foundations.OutputCognitoDomain, o.CognitoDomain)
	fmt.Fprintf(w, "%-18s %s\n", foundations.OutputDataBucket, o.DataBucket)
}

func newValidateCmd(opts *globalOpts) *cobra.Command {
	var (
		checks  []string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run read-only checks against the deployed stack",
		Long: `Run read-only checks against the deployed stack.

Exits 2 when an error or critical check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := opts.descriptor()
			if err != nil {
				return err
			}
			i, err := opts.inspector(cmd, d)
			if err != nil {
				return err
			}

			report, err := i.Validate(cmd.Context(), deployment.ValidateOptions{CheckIDs: checks, Timeout: timeout})
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if opts.output == "json" {
				if err := opts.writeJSON(out, report); err != nil {
					return err
				}
			} else {
				printReport(out, report)
			}

			if !report.IsValid() {
				return &exitCodeError{
					code: exitValidationError,
					err:  fmt.Errorf("%d checks failed", report.Summary.FailedChecks),
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&checks, "check", nil, "Run only the given check IDs")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Timeout for the whole run")
	return cmd
}

func printReport(w io.Writer, report *deployment.ValidationReport) {
	fmt.Fprintln(w, "=== Validation Report ===")
	fmt.Fprintf(w, "Stack: %s\n", report.StackName)
	fmt.Fprintf(w, "Run: %s\n", report.ID)
	fmt.Fprintf(w, "Valid: %t\n", report.IsValid())
	fmt.Fprintf(w, "Checks: %d passed, %d failed, %d skipped\n",
		report.Summary.PassedChecks,
		report.Summary.FailedChecks,
		report.Summary.SkippedChecks)

	for _, check := range report.Checks {
		status := "✓"
		switch check.Status {
		case deployment.CheckStatusFailed:
			status = "✗"
		case deployment.CheckStatusSkipped:
			status = "○"
		}

		fmt.Fprintf(w, "\n%s %s [%s]\n", status, check.Name, check.Severity)
		if check.Status != deployment.CheckStatusPassed && check.Remediation != "" {
			fmt.Fprintf(w, "  Remediation: %s\n", check.Remediation)
		}
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "aijay version %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  Stack: %s in %s\n", foundations.DefaultStackName, foundations.DefaultRegion)
		},
	}
}
