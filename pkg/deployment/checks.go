package deployment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/anirudhbiyani/aijay/pkg/foundations"
	"github.com/anirudhbiyani/aijay/pkg/ping"
)

// StandardValidators returns the checks for every declaration in d, in
// declaration order.
func StandardValidators(d *foundations.Descriptor, clients Clients, httpClient *http.Client) []Validator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	validators := []Validator{
		&userPoolValidator{client: clients.Cognito, spec: d.IdentityPool},
		&bucketValidator{client: clients.S3, spec: d.Store},
	}
	for _, t := range d.Tables() {
		validators = append(validators, &tableValidator{client: clients.DynamoDB, spec: t})
	}
	validators = append(validators,
		&handlerRoleValidator{client: clients.IAM, spec: d.Handler},
		&pingValidator{client: httpClient},
	)
	return validators
}

// userPoolValidator checks the user pool settings and its hosted domain.
type userPoolValidator struct {
	client CognitoClient
	spec   foundations.IdentityPoolSpec
}

func (v *userPoolValidator) ID() string   { return "cognito_user_pool" }
func (v *userPoolValidator) Name() string { return "Cognito User Pool" }
func (v *userPoolValidator) Description() string {
	return "Checks sign-in aliases, password policy and the hosted domain of the user pool"
}

func (v *userPoolValidator) Validate(ctx context.Context, target Target) ValidationCheck {
	c := begin(v, SeverityCritical)
	poolID := target.Outputs.UserPoolID
	c.evidence("user_pool_id", poolID)

	resp, err := v.client.DescribeUserPool(ctx, &cognitoidentityprovider.DescribeUserPoolInput{
		UserPoolId: aws.String(poolID),
	})
	if err != nil {
		return c.fail("Deploy the stack or check the UserPoolId output", classify(err, "validate", "user_pool", poolID))
	}
	pool := resp.UserPool
	if pool == nil {
		return c.fail("Deploy the stack or check the UserPoolId output", foundations.ErrNotFound("user_pool", poolID))
	}

	emailAlias := false
	for _, a := range pool.UsernameAttributes {
		if a == cognitotypes.UsernameAttributeTypeEmail {
			emailAlias = true
		}
	}
	c.evidence("email_sign_in", emailAlias)
	if !emailAlias {
		return c.fail("Redeploy with email as the sign-in alias", nil)
	}

	if pool.Policies != nil && pool.Policies.PasswordPolicy != nil {
		minLength := aws.ToInt32(pool.Policies.PasswordPolicy.MinimumLength)
		c.evidence("password_min_length", minLength)
		if int(minLength) < v.spec.PasswordPolicy.MinLength {
			return c.fail(fmt.Sprintf("Password minimum length must be at least %d", v.spec.PasswordPolicy.MinLength), nil)
		}
	}

	if pool.AdminCreateUserConfig != nil {
		selfSignUp := !pool.AdminCreateUserConfig.AllowAdminCreateUserOnly
		c.evidence("self_sign_up", selfSignUp)
		if selfSignUp != v.spec.SelfSignUpEnabled {
			return c.fail("Self sign-up does not match the declared setting", nil)
		}
	}

	domain := target.Outputs.CognitoDomain
	c.evidence("domain", domain)
	dresp, err := v.client.DescribeUserPoolDomain(ctx, &cognitoidentityprovider.DescribeUserPoolDomainInput{
		Domain: aws.String(domain),
	})
	if err != nil {
		return c.fail("Check the CognitoDomain output", classify(err, "validate", "user_pool_domain", domain))
	}
	desc := dresp.DomainDescription
	if desc == nil || aws.ToString(desc.UserPoolId) != poolID {
		return c.fail("The hosted domain is not attached to the user pool", nil)
	}
	c.evidence("domain_status", string(desc.Status))
	if desc.Status != cognitotypes.DomainStatusTypeActive {
		return c.fail("Wait for the hosted domain to become ACTIVE", nil)
	}

	return c.pass()
}

// bucketValidator checks the data bucket's protection settings.
type bucketValidator struct {
	client S3Client
	spec   foundations.ObjectStoreSpec
}

func (v *bucketValidator) ID() string   { return "s3_data_bucket" }
func (v *bucketValidator) Name() string { return "Data Bucket" }
func (v *bucketValidator) Description() string {
	return "Checks versioning, public access block and default encryption of the data bucket"
}

func (v *bucketValidator) Validate(ctx context.Context, target Target) ValidationCheck {
	c := begin(v, SeverityCritical)
	bucket := target.Outputs.DataBucket
	c.evidence("bucket", bucket)

	if v.spec.Versioned {
		resp, err := v.client.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: aws.String(bucket)})
		if err != nil {
			return c.fail("Check the DataBucket output", classify(err, "validate", "bucket", bucket))
		}
		c.evidence("versioning", string(resp.Status))
		if resp.Status != s3types.BucketVersioningStatusEnabled {
			return c.fail("Enable versioning on the data bucket", nil)
		}
	}

	if v.spec.BlockPublicAccess {
		resp, err := v.client.GetPublicAccessBlock(ctx, &s3.GetPublicAccessBlockInput{Bucket: aws.String(bucket)})
		if err != nil {
			return c.fail("Block all public access on the data bucket", classify(err, "validate", "bucket", bucket))
		}
		pab := resp.PublicAccessBlockConfiguration
		blocked := pab != nil &&
			aws.ToBool(pab.BlockPublicAcls) && aws.ToBool(pab.BlockPublicPolicy) &&
			aws.ToBool(pab.IgnorePublicAcls) && aws.ToBool(pab.RestrictPublicBuckets)
		c.evidence("public_access_blocked", blocked)
		if !blocked {
			return c.fail("Block all public access on the data bucket", nil)
		}
	}

	if v.spec.Encryption == foundations.EncryptionS3Managed {
		resp, err := v.client.GetBucketEncryption(ctx, &s3.GetBucketEncryptionInput{Bucket: aws.String(bucket)})
		if err != nil {
			return c.fail("Enable S3-managed encryption on the data bucket", classify(err, "validate", "bucket", bucket))
		}
		algorithm := ""
		if cfg := resp.ServerSideEncryptionConfiguration; cfg != nil {
			for _, rule := range cfg.Rules {
				if rule.ApplyServerSideEncryptionByDefault != nil {
					algorithm = string(rule.ApplyServerSideEncryptionByDefault.SSEAlgorithm)
				}
			}
		}
		c.evidence("sse_algorithm", algorithm)
		if algorithm != string(s3types.ServerSideEncryptionAes256) {
			return c.fail("Enable S3-managed encryption on the data bucket", nil)
		}
	}

	return c.pass()
}

// tableValidator checks the key schema, billing, recovery and TTL settings of
// one table.
type tableValidator struct {
	client DynamoDBClient
	spec   foundations.TableSpec
}

func (v *tableValidator) ID() string   { return "dynamodb_" + strings.ToLower(v.spec.LogicalID) }
func (v *tableValidator) Name() string { return v.spec.LogicalID + " Table" }
func (v *tableValidator) Description() string {
	return "Checks key schema, billing mode, point-in-time recovery and TTL of " + v.spec.LogicalID
}

func (v *tableValidator) Validate(ctx context.Context, target Target) ValidationCheck {
	c := begin(v, SeverityError)

	name, err := target.Resources.PhysicalID(v.spec.LogicalID, foundations.TypeTable)
	if err != nil {
		return c.fail("Deploy the stack before validating", err)
	}
	c.evidence("table", name)

	resp, err := v.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
	if err != nil {
		return c.fail("Check that the table exists", classify(err, "validate", "table", name))
	}
	table := resp.Table
	if table == nil {
		return c.fail("Check that the table exists", foundations.ErrNotFound("table", name))
	}

	billing := ddbtypes.BillingModeProvisioned
	if table.BillingModeSummary != nil {
		billing = table.BillingModeSummary.BillingMode
	}
	c.evidence("billing_mode", string(billing))
	if v.spec.BillingMode == foundations.BillingPayPerRequest && billing != ddbtypes.BillingModePayPerRequest {
		return c.fail("Switch the table to on-demand billing", nil)
	}

	if keys := keySchema(table.KeySchema); !equalKeys(keys, v.spec) {
		c.evidence("key_schema", keys)
		return c.fail("The key schema differs from the declaration; the table must be replaced", nil)
	}

	if v.spec.PointInTimeRecovery {
		backups, err := v.client.DescribeContinuousBackups(ctx, &dynamodb.DescribeContinuousBackupsInput{TableName: aws.String(name)})
		if err != nil {
			return c.fail("Enable point-in-time recovery", classify(err, "validate", "table", name))
		}
		status := ddbtypes.PointInTimeRecoveryStatusDisabled
		if d := backups.ContinuousBackupsDescription; d != nil && d.PointInTimeRecoveryDescription != nil {
			status = d.PointInTimeRecoveryDescription.PointInTimeRecoveryStatus
		}
		c.evidence("point_in_time_recovery", string(status))
		if status != ddbtypes.PointInTimeRecoveryStatusEnabled {
			return c.fail("Enable point-in-time recovery", nil)
		}
	}

	ttl, err := v.client.DescribeTimeToLive(ctx, &dynamodb.DescribeTimeToLiveInput{TableName: aws.String(name)})
	if err != nil {
		return c.fail("Check the table's TTL setting", classify(err, "validate", "table", name))
	}
	ttlStatus := ddbtypes.TimeToLiveStatusDisabled
	ttlAttr := ""
	if d := ttl.TimeToLiveDescription; d != nil {
		ttlStatus = d.TimeToLiveStatus
		ttlAttr = aws.ToString(d.AttributeName)
	}
	c.evidence("ttl_status", string(ttlStatus))
	if v.spec.TimeToLiveAttribute != "" {
		c.evidence("ttl_attribute", ttlAttr)
		if ttlStatus != ddbtypes.TimeToLiveStatusEnabled || ttlAttr != v.spec.TimeToLiveAttribute {
			return c.fail(fmt.Sprintf("Enable TTL on attribute %q", v.spec.TimeToLiveAttribute), nil)
		}
	} else if ttlStatus == ddbtypes.TimeToLiveStatusEnabled || ttlStatus == ddbtypes.TimeToLiveStatusEnabling {
		return c.fail("Disable TTL; this table does not expire items", nil)
	}

	return c.pass()
}

func keySchema(elems []ddbtypes.KeySchemaElement) map[string]string {
	keys := make(map[string]string, len(elems))
	for _, e := range elems {
		keys[string(e.KeyType)] = aws.ToString(e.AttributeName)
	}
	return keys
}

func equalKeys(keys map[string]string, spec foundations.TableSpec) bool {
	want := map[string]string{string(ddbtypes.KeyTypeHash): spec.PartitionKey.Name}
	if spec.SortKey != nil {
		want[string(ddbtypes.KeyTypeRange)] = spec.SortKey.Name
	}
	if len(keys) != len(want) {
		return false
	}
	for k, v := range want {
		if keys[k] != v {
			return false
		}
	}
	return true
}

// handlerRoleValidator checks that the handler's execution role carries the
// declared data-access grants.
type handlerRoleValidator struct {
	client IAMClient
	spec   foundations.HandlerSpec
}

// Actions that must appear in the handler role's inline policies, one per
// granted resource type.
var grantActions = map[string]string{
	foundations.TypeTable:  "dynamodb:PutItem",
	foundations.TypeBucket: "s3:PutObject",
}

func (v *handlerRoleValidator) ID() string   { return "iam_handler_role" }
func (v *handlerRoleValidator) Name() string { return "Handler Role Grants" }
func (v *handlerRoleValidator) Description() string {
	return "Checks that the handler role allows read/write on the tables and the bucket"
}

func (v *handlerRoleValidator) Validate(ctx context.Context, target Target) ValidationCheck {
	c := begin(v, SeverityError)

	role, err := target.Resources.PhysicalID(v.spec.LogicalID+"ServiceRole", "AWS::IAM::Role")
	if err != nil {
		return c.fail("Deploy the stack before validating", err)
	}
	c.evidence("role", role)

	list, err := v.client.ListRolePolicies(ctx, &iam.ListRolePoliciesInput{RoleName: aws.String(role)})
	if err != nil {
		return c.fail("Check read access to the handler role", classify(err, "validate", "role", role))
	}

	var documents []string
	for _, name := range list.PolicyNames {
		resp, err := v.client.GetRolePolicy(ctx, &iam.GetRolePolicyInput{
			RoleName:   aws.String(role),
			PolicyName: aws.String(name),
		})
		if err != nil {
			return c.fail("Check read access to the handler role", classify(err, "validate", "role_policy", name))
		}
		doc, err := url.QueryUnescape(aws.ToString(resp.PolicyDocument))
		if err != nil {
			return c.fail("The role policy document could not be decoded", err)
		}
		documents = append(documents, doc)
	}
	c.evidence("policies", list.PolicyNames)

	all := strings.Join(documents, "\n")
	var missing []string
	for _, resourceType := range []string{foundations.TypeTable, foundations.TypeBucket} {
		if action := grantActions[resourceType]; !strings.Contains(all, action) {
			missing = append(missing, action)
		}
	}
	if len(missing) > 0 {
		c.evidence("missing_actions", missing)
		return c.fail("Redeploy so the handler role receives its grants", nil)
	}
	return c.pass()
}

// pingValidator calls the deployed health-check route.
type pingValidator struct {
	client *http.Client
}

func (v *pingValidator) ID() string   { return "http_api_ping" }
func (v *pingValidator) Name() string { return "API Ping" }
func (v *pingValidator) Description() string {
	return "Calls GET /ping on the HTTP API and checks the health payload"
}

func (v *pingValidator) Validate(ctx context.Context, target Target) ValidationCheck {
	c := begin(v, SeverityError)

	endpoint := strings.TrimRight(target.Outputs.APIURL, "/") + ping.Path
	c.evidence("url", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return c.fail("Check the HttpApiUrl output format", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return c.fail("Ensure the API is reachable from this network", err)
	}
	defer resp.Body.Close()

	c.evidence("status_code", resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		return c.fail(fmt.Sprintf("API returned status %d, expected 200", resp.StatusCode), nil)
	}

	var body ping.Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return c.fail("API returned a body that is not the health payload", err)
	}
	c.evidence("service", body.Service)
	if !body.OK || body.Service != ping.ServiceName {
		return c.fail("API returned an unexpected health payload", nil)
	}
	return c.pass()
}
