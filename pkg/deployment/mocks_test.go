package deployment

import (
	"context"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const (
	testStack      = "AIJay-Foundations"
	testPoolID     = "ap-southeast-2_AbCdEf123"
	testDomain     = "aijay-789012"
	testBucket     = "aijay-foundations-aijaydatabucket-1a2b3c"
	testUsers      = "AIJay-Foundations-UsersTable9725E9C8-ABC"
	testSessions   = "AIJay-Foundations-SessionsTable1F6B3E5A-DEF"
	testHandlerRol = "AIJay-Foundations-ApiHandlerServiceRole-XYZ"
)

func notFound(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: "resource does not exist"}
}

type mockCloudFormation struct {
	outputs   map[string]string
	resources []cfntypes.StackResource
	err       error
}

func (m *mockCloudFormation) DescribeStacks(_ context.Context, params *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	stack := cfntypes.Stack{StackName: params.StackName}
	for k, v := range m.outputs {
		stack.Outputs = append(stack.Outputs, cfntypes.Output{OutputKey: aws.String(k), OutputValue: aws.String(v)})
	}
	return &cloudformation.DescribeStacksOutput{Stacks: []cfntypes.Stack{stack}}, nil
}

func (m *mockCloudFormation) DescribeStackResources(_ context.Context, _ *cloudformation.DescribeStackResourcesInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStackResourcesOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &cloudformation.DescribeStackResourcesOutput{StackResources: m.resources}, nil
}

func resource(logicalID, physicalID, resourceType string) cfntypes.StackResource {
	return cfntypes.StackResource{
		LogicalResourceId:  aws.String(logicalID),
		PhysicalResourceId: aws.String(physicalID),
		ResourceType:       aws.String(resourceType),
	}
}

func healthyCloudFormation(apiURL string) *mockCloudFormation {
	return &mockCloudFormation{
		outputs: map[string]string{
			"HttpApiUrl":       apiURL,
			"UserPoolId":       testPoolID,
			"UserPoolClientId": "5v1q8clientid",
			"CognitoDomain":    testDomain,
			"DataBucket":       testBucket,
		},
		resources: []cfntypes.StackResource{
			resource("AIJayUserPool6D2C1D4A", testPoolID, "AWS::Cognito::UserPool"),
			resource("AIJayDataBucket0A1B2C3D", testBucket, "AWS::S3::Bucket"),
			resource("UsersTable9725E9C8", testUsers, "AWS::DynamoDB::Table"),
			resource("SessionsTable1F6B3E5A", testSessions, "AWS::DynamoDB::Table"),
			resource("ApiHandlerLogs5E6F7A8B", "/aws/lambda/api", "AWS::Logs::LogGroup"),
			resource("ApiHandlerServiceRole9C8D7E6F", testHandlerRol, "AWS::IAM::Role"),
			resource("ApiHandler1A2B3C4D", "AIJay-Foundations-ApiHandler", "AWS::Lambda::Function"),
		},
	}
}

type tableState struct {
	billing ddbtypes.BillingMode
	keys    []ddbtypes.KeySchemaElement
	pitr    ddbtypes.PointInTimeRecoveryStatus
	ttl     *ddbtypes.TimeToLiveDescription
}

type mockDynamoDB struct {
	tables map[string]*tableState
}

func (m *mockDynamoDB) table(name *string) (*tableState, error) {
	t, ok := m.tables[aws.ToString(name)]
	if !ok {
		return nil, &ddbtypes.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
	}
	return t, nil
}

func (m *mockDynamoDB) DescribeTable(_ context.Context, params *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	t, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{Table: &ddbtypes.TableDescription{
		TableName:          params.TableName,
		KeySchema:          t.keys,
		BillingModeSummary: &ddbtypes.BillingModeSummary{BillingMode: t.billing},
	}}, nil
}

func (m *mockDynamoDB) DescribeContinuousBackups(_ context.Context, params *dynamodb.DescribeContinuousBackupsInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeContinuousBackupsOutput, error) {
	t, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}
	return &dynamodb.DescribeContinuousBackupsOutput{ContinuousBackupsDescription: &ddbtypes.ContinuousBackupsDescription{
		ContinuousBackupsStatus:        ddbtypes.ContinuousBackupsStatusEnabled,
		PointInTimeRecoveryDescription: &ddbtypes.PointInTimeRecoveryDescription{PointInTimeRecoveryStatus: t.pitr},
	}}, nil
}

func (m *mockDynamoDB) DescribeTimeToLive(_ context.Context, params *dynamodb.DescribeTimeToLiveInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTimeToLiveOutput, error) {
	t, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTimeToLiveOutput{TimeToLiveDescription: t.ttl}, nil
}

func key(name string, kt ddbtypes.KeyType) ddbtypes.KeySchemaElement {
	return ddbtypes.KeySchemaElement{AttributeName: aws.String(name), KeyType: kt}
}

func healthyDynamoDB() *mockDynamoDB {
	return &mockDynamoDB{tables: map[string]*tableState{
		testUsers: {
			billing: ddbtypes.BillingModePayPerRequest,
			keys:    []ddbtypes.KeySchemaElement{key("userId", ddbtypes.KeyTypeHash)},
			pitr:    ddbtypes.PointInTimeRecoveryStatusEnabled,
			ttl:     &ddbtypes.TimeToLiveDescription{TimeToLiveStatus: ddbtypes.TimeToLiveStatusDisabled},
		},
		testSessions: {
			billing: ddbtypes.BillingModePayPerRequest,
			keys: []ddbtypes.KeySchemaElement{
				key("sessionId", ddbtypes.KeyTypeHash),
				key("createdAt", ddbtypes.KeyTypeRange),
			},
			pitr: ddbtypes.PointInTimeRecoveryStatusEnabled,
			ttl: &ddbtypes.TimeToLiveDescription{
				AttributeName:    aws.String("ttl"),
				TimeToLiveStatus: ddbtypes.TimeToLiveStatusEnabled,
			},
		},
	}}
}

type mockS3 struct {
	versioning s3types.BucketVersioningStatus
	pab        *s3types.PublicAccessBlockConfiguration
	algorithm  s3types.ServerSideEncryption
	err        error
}

func (m *mockS3) GetBucketVersioning(_ context.Context, _ *s3.GetBucketVersioningInput, _ ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &s3.GetBucketVersioningOutput{Status: m.versioning}, nil
}

func (m *mockS3) GetPublicAccessBlock(_ context.Context, _ *s3.GetPublicAccessBlockInput, _ ...func(*s3.Options)) (*s3.GetPublicAccessBlockOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.pab == nil {
		return nil, notFound("NoSuchPublicAccessBlockConfiguration")
	}
	return &s3.GetPublicAccessBlockOutput{PublicAccessBlockConfiguration: m.pab}, nil
}

func (m *mockS3) GetBucketEncryption(_ context.Context, _ *s3.GetBucketEncryptionInput, _ ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &s3.GetBucketEncryptionOutput{ServerSideEncryptionConfiguration: &s3types.ServerSideEncryptionConfiguration{
		Rules: []s3types.ServerSideEncryptionRule{{
			ApplyServerSideEncryptionByDefault: &s3types.ServerSideEncryptionByDefault{SSEAlgorithm: m.algorithm},
		}},
	}}, nil
}

func healthyS3() *mockS3 {
	return &mockS3{
		versioning: s3types.BucketVersioningStatusEnabled,
		pab: &s3types.PublicAccessBlockConfiguration{
			BlockPublicAcls:       aws.Bool(true),
			BlockPublicPolicy:     aws.Bool(true),
			IgnorePublicAcls:      aws.Bool(true),
			RestrictPublicBuckets: aws.Bool(true),
		},
		algorithm: s3types.ServerSideEncryptionAes256,
	}
}

type mockCognito struct {
	pool   *cognitotypes.UserPoolType
	domain *cognitotypes.DomainDescriptionType
	err    error
}

func (m *mockCognito) DescribeUserPool(_ context.Context, _ *cognitoidentityprovider.DescribeUserPoolInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.DescribeUserPoolOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &cognitoidentityprovider.DescribeUserPoolOutput{UserPool: m.pool}, nil
}

func (m *mockCognito) DescribeUserPoolDomain(_ context.Context, _ *cognitoidentityprovider.DescribeUserPoolDomainInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.DescribeUserPoolDomainOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &cognitoidentityprovider.DescribeUserPoolDomainOutput{DomainDescription: m.domain}, nil
}

func healthyCognito() *mockCognito {
	return &mockCognito{
		pool: &cognitotypes.UserPoolType{
			Id:                 aws.String(testPoolID),
			UsernameAttributes: []cognitotypes.UsernameAttributeType{cognitotypes.UsernameAttributeTypeEmail},
			Policies: &cognitotypes.UserPoolPolicyType{PasswordPolicy: &cognitotypes.PasswordPolicyType{
				MinimumLength:    aws.Int32(8),
				RequireNumbers:   true,
				RequireLowercase: true,
			}},
			AdminCreateUserConfig: &cognitotypes.AdminCreateUserConfigType{AllowAdminCreateUserOnly: false},
		},
		domain: &cognitotypes.DomainDescriptionType{
			Domain:     aws.String(testDomain),
			UserPoolId: aws.String(testPoolID),
			Status:     cognitotypes.DomainStatusTypeActive,
		},
	}
}

type mockIAM struct {
	policies map[string]string
	err      error
}

func (m *mockIAM) ListRolePolicies(_ context.Context, _ *iam.ListRolePoliciesInput, _ ...func(*iam.Options)) (*iam.ListRolePoliciesOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := &iam.ListRolePoliciesOutput{}
	for name := range m.policies {
		out.PolicyNames = append(out.PolicyNames, name)
	}
	return out, nil
}

func (m *mockIAM) GetRolePolicy(_ context.Context, params *iam.GetRolePolicyInput, _ ...func(*iam.Options)) (*iam.GetRolePolicyOutput, error) {
	doc, ok := m.policies[aws.ToString(params.PolicyName)]
	if !ok {
		return nil, notFound("NoSuchEntity")
	}
	return &iam.GetRolePolicyOutput{
		RoleName:       params.RoleName,
		PolicyName:     params.PolicyName,
		PolicyDocument: aws.String(url.QueryEscape(doc)),
	}, nil
}

func healthyIAM() *mockIAM {
	return &mockIAM{policies: map[string]string{
		"ApiHandlerServiceRoleDefaultPolicy": `{"Version":"2012-10-17","Statement":[` +
			`{"Action":["dynamodb:GetItem","dynamodb:PutItem"],"Effect":"Allow","Resource":"*"},` +
			`{"Action":["s3:GetObject*","s3:PutObject"],"Effect":"Allow","Resource":"*"}]}`,
	}}
}

func healthyClients(apiURL string) Clients {
	return Clients{
		CloudFormation: healthyCloudFormation(apiURL),
		DynamoDB:       healthyDynamoDB(),
		S3:             healthyS3(),
		Cognito:        healthyCognito(),
		IAM:            healthyIAM(),
	}
}
