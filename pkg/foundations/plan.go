package foundations

import (
	"fmt"
	"strings"
)

// CloudFormation resource types of the declarations.
const (
	TypeUserPool       = "AWS::Cognito::UserPool"
	TypeUserPoolDomain = "AWS::Cognito::UserPoolDomain"
	TypeUserPoolClient = "AWS::Cognito::UserPoolClient"
	TypeBucket         = "AWS::S3::Bucket"
	TypeTable          = "AWS::DynamoDB::Table"
	TypeFunction       = "AWS::Lambda::Function"
	TypeHTTPAPI        = "AWS::ApiGatewayV2::Api"
	TypeRoute          = "AWS::ApiGatewayV2::Route"
)

// Plan is the ordered list of declarations a descriptor hands to the
// provisioning engine.
type Plan struct {
	// Actions lists the declared resources in declaration order.
	Actions []PlannedAction `json:"actions"`

	// Warnings lists declared settings flagged as not production-ready.
	Warnings []string `json:"warnings,omitempty"`

	// Summary provides a human-readable summary.
	Summary string `json:"summary"`
}

// PlannedAction is a single declared resource.
type PlannedAction struct {
	// Operation is always "declare"; materialization belongs to the engine.
	Operation string `json:"operation"`

	// ResourceType is the CloudFormation type of the resource.
	ResourceType string `json:"resource_type"`

	// ResourceID is the logical ID of the resource.
	ResourceID string `json:"resource_id"`

	// DependsOn lists logical IDs this declaration references.
	DependsOn []string `json:"depends_on,omitempty"`

	// Details contains resource-specific settings.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Plan returns the declarations of d in a fixed order.
func (d *Descriptor) Plan() Plan {
	pool := d.IdentityPool
	actions := []PlannedAction{
		declare(TypeUserPool, pool.LogicalID, nil, map[string]interface{}{
			"self_sign_up":    pool.SelfSignUpEnabled,
			"sign_in_aliases": pool.SignInAliases,
			"min_length":      pool.PasswordPolicy.MinLength,
		}),
		declare(TypeUserPoolDomain, pool.DomainLogicalID, []string{pool.LogicalID}, map[string]interface{}{
			"domain_prefix": pool.DomainPrefix,
		}),
		declare(TypeUserPoolClient, d.Client.LogicalID, []string{d.Client.Pool}, map[string]interface{}{
			"generate_secret": d.Client.GenerateSecret,
			"callback_urls":   d.Client.CallbackURLs,
			"logout_urls":     d.Client.LogoutURLs,
		}),
		declare(TypeBucket, d.Store.LogicalID, nil, map[string]interface{}{
			"encryption": d.Store.Encryption,
			"versioned":  d.Store.Versioned,
		}),
	}
	for _, t := range d.Tables() {
		details := map[string]interface{}{
			"partition_key": t.PartitionKey.Name,
			"billing_mode":  t.BillingMode,
		}
		if t.SortKey != nil {
			details["sort_key"] = t.SortKey.Name
		}
		if t.TimeToLiveAttribute != "" {
			details["ttl"] = t.TimeToLiveAttribute
		}
		actions = append(actions, declare(TypeTable, t.LogicalID, nil, details))
	}

	var handlerDeps []string
	for _, v := range d.Handler.Environment.Variables() {
		handlerDeps = appendUnique(handlerDeps, v.Ref.Resource)
	}
	actions = append(actions, declare(TypeFunction, d.Handler.LogicalID, handlerDeps, map[string]interface{}{
		"runtime":       d.Handler.Runtime,
		"entry":         d.Handler.Entry,
		"log_retention": d.Handler.LogRetention.String(),
	}))

	var routes, routeDeps []string
	for _, r := range d.Gateway.Routes {
		routes = append(routes, r.String())
		routeDeps = appendUnique(routeDeps, r.Handler)
	}
	actions = append(actions, declare(TypeHTTPAPI, d.Gateway.LogicalID, routeDeps, map[string]interface{}{
		"routes":       routes,
		"allow_origin": d.Gateway.Cors.AllowOrigins,
	}))

	plan := Plan{Actions: actions}
	if d.Gateway.Cors.Provisional {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf(
			"%s CORS policy allows origins %s and is marked temporary",
			d.Gateway.LogicalID, strings.Join(d.Gateway.Cors.AllowOrigins, ",")))
	}
	plan.Summary = fmt.Sprintf("Declare %d resources and %d outputs in %s/%s",
		len(actions), len(d.Outputs), d.Context.Account, d.Context.Region)
	return plan
}

func declare(resourceType, id string, deps []string, details map[string]interface{}) PlannedAction {
	return PlannedAction{
		Operation:    "declare",
		ResourceType: resourceType,
		ResourceID:   id,
		DependsOn:    deps,
		Details:      details,
	}
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
