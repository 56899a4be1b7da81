package deployment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Target is what a Validator inspects: the outputs and resources of one
// deployed stack.
type Target struct {
	StackName string
	Outputs   *Outputs
	Resources *StackResources
}

// Validator performs one read-only check against a deployed stack.
type Validator interface {
	// ID returns the unique identifier for this validator.
	ID() string

	// Name returns a human-readable name.
	Name() string

	// Description returns what this validator checks.
	Description() string

	// Validate performs the validation check.
	Validate(ctx context.Context, target Target) ValidationCheck
}

// RunValidation executes validators in order and returns a report. Checks run
// sequentially; a cancelled context skips the remaining ones.
func RunValidation(ctx context.Context, target Target, validators []Validator) *ValidationReport {
	report := &ValidationReport{
		ID:          uuid.New().String(),
		StackName:   target.StackName,
		Checks:      make([]ValidationCheck, 0, len(validators)),
		ValidatedAt: time.Now(),
	}

	for _, v := range validators {
		var check ValidationCheck
		if err := ctx.Err(); err != nil {
			check = begin(v, SeverityError).skip(fmt.Sprintf("not run: %v", err))
		} else {
			check = v.Validate(ctx, target)
		}
		report.Checks = append(report.Checks, check)

		switch check.Status {
		case CheckStatusPassed:
			report.Summary.PassedChecks++
		case CheckStatusFailed:
			report.Summary.FailedChecks++
		case CheckStatusSkipped:
			report.Summary.SkippedChecks++
		}
		report.Summary.TotalChecks++
	}

	report.Summary.IsValid = report.IsValid()
	return report
}

// checkRun accumulates one check result.
type checkRun struct {
	check ValidationCheck
	start time.Time
}

func begin(v Validator, severity Severity) *checkRun {
	return &checkRun{
		check: ValidationCheck{
			ID:          v.ID(),
			Name:        v.Name(),
			Description: v.Description(),
			Severity:    severity,
			Evidence:    make(map[string]interface{}),
		},
		start: time.Now(),
	}
}

func (c *checkRun) evidence(key string, value interface{}) {
	c.check.Evidence[key] = value
}

func (c *checkRun) finish(status CheckStatus) ValidationCheck {
	c.check.Status = status
	c.check.Duration = time.Since(c.start)
	return c.check
}

func (c *checkRun) pass() ValidationCheck {
	return c.finish(CheckStatusPassed)
}

func (c *checkRun) fail(remediation string, err error) ValidationCheck {
	if err != nil {
		c.check.Evidence["error"] = err.Error()
	}
	c.check.Remediation = remediation
	return c.finish(CheckStatusFailed)
}

func (c *checkRun) skip(reason string) ValidationCheck {
	c.check.Remediation = reason
	return c.finish(CheckStatusSkipped)
}
