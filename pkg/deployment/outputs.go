package deployment

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"

	"github.com/anirudhbiyani/aijay/pkg/foundations"
)

// Outputs holds the five values exported by a deployed foundations stack.
type Outputs struct {
	APIURL           string `json:"apiUrl"`
	UserPoolID       string `json:"userPoolId"`
	UserPoolClientID string `json:"userPoolClientId"`
	CognitoDomain    string `json:"cognitoDomain"`
	DataBucket       string `json:"dataBucket"`
}

func (o *Outputs) field(name string) *string {
	switch name {
	case foundations.OutputHTTPAPIURL:
		return &o.APIURL
	case foundations.OutputUserPoolID:
		return &o.UserPoolID
	case foundations.OutputUserPoolClientID:
		return &o.UserPoolClientID
	case foundations.OutputCognitoDomain:
		return &o.CognitoDomain
	case foundations.OutputDataBucket:
		return &o.DataBucket
	}
	return nil
}

// ReadOutputs fetches the exported outputs of stackName. Every one of the
// five names must be present.
func ReadOutputs(ctx context.Context, client CloudFormationClient, stackName string) (*Outputs, error) {
	resp, err := client.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		return nil, classify(err, "outputs", "stack", stackName)
	}
	if len(resp.Stacks) == 0 {
		return nil, foundations.ErrNotFound("stack", stackName).WithOperation("outputs")
	}

	values := make(map[string]string)
	for _, o := range resp.Stacks[0].Outputs {
		values[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}

	out := &Outputs{}
	for _, name := range foundations.OutputNames {
		v, ok := values[name]
		if !ok || v == "" {
			return nil, foundations.ErrNotFound("output", name).
				WithOperation("outputs").
				WithDetail("stack", stackName)
		}
		*out.field(name) = v
	}
	return out, nil
}

// StackResources maps descriptor logical IDs to the physical IDs of a deployed
// stack. CDK appends a hash to every logical ID, so lookups match by prefix
// and resource type.
type StackResources struct {
	resources []stackResource
}

type stackResource struct {
	logicalID    string
	physicalID   string
	resourceType string
}

// ReadStackResources lists the resources of stackName.
func ReadStackResources(ctx context.Context, client CloudFormationClient, stackName string) (*StackResources, error) {
	resp, err := client.DescribeStackResources(ctx, &cloudformation.DescribeStackResourcesInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		return nil, classify(err, "resources", "stack", stackName)
	}

	sr := &StackResources{}
	for _, r := range resp.StackResources {
		sr.resources = append(sr.resources, stackResource{
			logicalID:    aws.ToString(r.LogicalResourceId),
			physicalID:   aws.ToString(r.PhysicalResourceId),
			resourceType: aws.ToString(r.ResourceType),
		})
	}
	return sr, nil
}

// PhysicalID returns the physical ID of the resource of resourceType whose
// logical ID starts with prefix.
func (s *StackResources) PhysicalID(prefix, resourceType string) (string, error) {
	for _, r := range s.resources {
		if r.resourceType == resourceType && strings.HasPrefix(r.logicalID, prefix) && r.physicalID != "" {
			return r.physicalID, nil
		}
	}
	return "", foundations.ErrNotFound(resourceType, prefix).WithOperation("resources")
}
