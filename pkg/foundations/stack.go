package foundations

import (
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapigatewayv2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapigatewayv2integrations"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscognito"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// FoundationsStackProps configures NewFoundationsStack.
type FoundationsStackProps struct {
	awscdk.StackProps

	// Context is the deployment target. Its account is required.
	Context DeploymentContext
}

// NewFoundationsStack evaluates the descriptor for props.Context and renders
// it onto a new stack under scope. Nothing is added to scope when evaluation
// fails.
func NewFoundationsStack(scope constructs.Construct, id string, props *FoundationsStackProps) (awscdk.Stack, error) {
	var ctx DeploymentContext
	var sprops awscdk.StackProps
	if props != nil {
		ctx = props.Context
		sprops = props.StackProps
	}

	d, err := Describe(ctx)
	if err != nil {
		return nil, err
	}
	r, err := newRenderer(d)
	if err != nil {
		return nil, err
	}

	sprops.Env = &awscdk.Environment{
		Account: jsii.String(ctx.Account),
		Region:  jsii.String(ctx.Region),
	}
	stack := awscdk.NewStack(scope, jsii.String(id), &sprops)
	r.render(stack)
	return stack, nil
}

// NewApp builds a CDK app holding the foundations stack.
func NewApp(ctx DeploymentContext, props *awscdk.AppProps) (awscdk.App, error) {
	app := awscdk.NewApp(props)
	if _, err := NewFoundationsStack(app, ctx.StackName, &FoundationsStackProps{Context: ctx}); err != nil {
		return nil, err
	}
	return app, nil
}

// renderer turns a validated descriptor into constructs. Everything that can
// fail is resolved in newRenderer so render itself cannot leave a half-built
// stack behind.
type renderer struct {
	d            *Descriptor
	retention    awslogs.RetentionDays
	runtime      awslambda.Runtime
	architecture awslambda.Architecture

	attrs  map[ResourceRef]*string
	grants map[string]func(awsiam.IGrantable)
}

func newRenderer(d *Descriptor) (*renderer, error) {
	retention, err := retentionDays(d.Handler.LogRetention)
	if err != nil {
		return nil, err
	}
	if d.Handler.Runtime != HandlerRuntime {
		return nil, ErrValidation(fmt.Sprintf("unsupported handler runtime %q", d.Handler.Runtime)).
			WithResource("handler", d.Handler.LogicalID)
	}
	arch := awslambda.Architecture_ARM_64()
	if d.Handler.Architecture == ArchX86_64 {
		arch = awslambda.Architecture_X86_64()
	}
	for _, a := range d.IdentityPool.RequiredAttributes {
		if a.Name != "email" {
			return nil, ErrValidation("unsupported required attribute " + a.Name).
				WithResource("identity_pool", d.IdentityPool.LogicalID)
		}
	}
	return &renderer{
		d:            d,
		retention:    retention,
		runtime:      awslambda.Runtime_PROVIDED_AL2023(),
		architecture: arch,
		attrs:        make(map[ResourceRef]*string),
		grants:       make(map[string]func(awsiam.IGrantable)),
	}, nil
}

func (r *renderer) render(stack awscdk.Stack) {
	r.identity(stack)
	r.store(stack)
	r.table(stack, r.d.Users)
	r.table(stack, r.d.Sessions)
	fn := r.handler(stack)
	r.gateway(stack, fn)

	for _, o := range r.d.Outputs {
		awscdk.NewCfnOutput(stack, jsii.String(o.Name), &awscdk.CfnOutputProps{
			Value: r.attrs[o.Value],
		})
	}

	keys := make([]string, 0, len(r.d.Context.Tags))
	for k := range r.d.Context.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		awscdk.Tags_Of(stack).Add(jsii.String(k), jsii.String(r.d.Context.Tags[k]), nil)
	}
}

func (r *renderer) identity(stack awscdk.Stack) {
	spec := r.d.IdentityPool

	aliases := &awscognito.SignInAliases{}
	for _, a := range spec.SignInAliases {
		if a == SignInEmail {
			aliases.Email = jsii.Bool(true)
		}
	}
	attrs := &awscognito.StandardAttributes{}
	for _, a := range spec.RequiredAttributes {
		// newRenderer rejects anything but email.
		attrs.Email = &awscognito.StandardAttribute{Required: jsii.Bool(true), Mutable: jsii.Bool(a.Mutable)}
	}

	pool := awscognito.NewUserPool(stack, jsii.String(spec.LogicalID), &awscognito.UserPoolProps{
		SelfSignUpEnabled:  jsii.Bool(spec.SelfSignUpEnabled),
		SignInAliases:      aliases,
		StandardAttributes: attrs,
		PasswordPolicy: &awscognito.PasswordPolicy{
			MinLength:        jsii.Number(spec.PasswordPolicy.MinLength),
			RequireDigits:    jsii.Bool(spec.PasswordPolicy.RequireDigits),
			RequireLowercase: jsii.Bool(spec.PasswordPolicy.RequireLowercase),
			RequireUppercase: jsii.Bool(spec.PasswordPolicy.RequireUppercase),
			RequireSymbols:   jsii.Bool(spec.PasswordPolicy.RequireSymbols),
		},
	})

	domain := pool.AddDomain(jsii.String(spec.DomainLogicalID), &awscognito.UserPoolDomainOptions{
		CognitoDomain: &awscognito.CognitoDomainOptions{
			DomainPrefix: jsii.String(spec.DomainPrefix),
		},
	})

	c := r.d.Client
	providers := make([]awscognito.UserPoolClientIdentityProvider, 0, len(c.IdentityProviders))
	for _, p := range c.IdentityProviders {
		if p == IdentityProviderCognito {
			providers = append(providers, awscognito.UserPoolClientIdentityProvider_COGNITO())
		}
	}
	client := awscognito.NewUserPoolClient(stack, jsii.String(c.LogicalID), &awscognito.UserPoolClientProps{
		UserPool:       pool,
		GenerateSecret: jsii.Bool(c.GenerateSecret),
		AuthFlows: &awscognito.AuthFlow{
			UserPassword: jsii.Bool(c.AuthFlows.UserPassword),
			UserSrp:      jsii.Bool(c.AuthFlows.UserSRP),
		},
		OAuth: &awscognito.OAuthSettings{
			Flows: &awscognito.OAuthFlows{
				AuthorizationCodeGrant: jsii.Bool(c.OAuthFlows.AuthorizationCodeGrant),
				ImplicitCodeGrant:      jsii.Bool(c.OAuthFlows.ImplicitCodeGrant),
			},
			CallbackUrls: jsii.Strings(c.CallbackURLs...),
			LogoutUrls:   jsii.Strings(c.LogoutURLs...),
		},
		PreventUserExistenceErrors: jsii.Bool(c.PreventUserExistenceErrors),
		SupportedIdentityProviders: &providers,
	})

	r.attrs[ResourceRef{Resource: spec.LogicalID, Attribute: AttrID}] = pool.UserPoolId()
	r.attrs[ResourceRef{Resource: spec.DomainLogicalID, Attribute: AttrDomainName}] = domain.DomainName()
	r.attrs[ResourceRef{Resource: c.LogicalID, Attribute: AttrID}] = client.UserPoolClientId()
}

func (r *renderer) store(stack awscdk.Stack) {
	spec := r.d.Store
	props := &awss3.BucketProps{
		EnforceSSL: jsii.Bool(spec.EnforceSSL),
		Versioned:  jsii.Bool(spec.Versioned),
	}
	if spec.BlockPublicAccess {
		props.BlockPublicAccess = awss3.BlockPublicAccess_BLOCK_ALL()
	}
	if spec.Encryption == EncryptionS3Managed {
		props.Encryption = awss3.BucketEncryption_S3_MANAGED
	}

	bucket := awss3.NewBucket(stack, jsii.String(spec.LogicalID), props)
	r.attrs[ResourceRef{Resource: spec.LogicalID, Attribute: AttrName}] = bucket.BucketName()
	r.grants[spec.LogicalID] = func(g awsiam.IGrantable) { bucket.GrantReadWrite(g, nil) }
}

func (r *renderer) table(stack awscdk.Stack, spec TableSpec) {
	props := &awsdynamodb.TableProps{
		PartitionKey:        &awsdynamodb.Attribute{Name: jsii.String(spec.PartitionKey.Name), Type: attributeType(spec.PartitionKey.Type)},
		BillingMode:         awsdynamodb.BillingMode(spec.BillingMode),
		PointInTimeRecovery: jsii.Bool(spec.PointInTimeRecovery),
	}
	if spec.SortKey != nil {
		props.SortKey = &awsdynamodb.Attribute{Name: jsii.String(spec.SortKey.Name), Type: attributeType(spec.SortKey.Type)}
	}
	if spec.TimeToLiveAttribute != "" {
		props.TimeToLiveAttribute = jsii.String(spec.TimeToLiveAttribute)
	}

	table := awsdynamodb.NewTable(stack, jsii.String(spec.LogicalID), props)
	r.attrs[ResourceRef{Resource: spec.LogicalID, Attribute: AttrName}] = table.TableName()
	r.grants[spec.LogicalID] = func(g awsiam.IGrantable) { table.GrantReadWriteData(g) }
}

func (r *renderer) handler(stack awscdk.Stack) awslambda.Function {
	spec := r.d.Handler

	env := make(map[string]*string)
	for _, v := range spec.Environment.Variables() {
		env[v.Name] = r.attrs[v.Ref]
	}

	logGroup := awslogs.NewLogGroup(stack, jsii.String(spec.LogicalID+"Logs"), &awslogs.LogGroupProps{
		Retention: r.retention,
	})

	fn := awslambda.NewFunction(stack, jsii.String(spec.LogicalID), &awslambda.FunctionProps{
		Runtime:      r.runtime,
		Handler:      jsii.String(spec.Handler),
		Code:         awslambda.Code_FromAsset(jsii.String(spec.Entry), nil),
		Architecture: r.architecture,
		LogGroup:     logGroup,
		Environment:  &env,
	})

	for _, g := range spec.Grants {
		r.grants[g.Resource](fn)
	}
	return fn
}

func (r *renderer) gateway(stack awscdk.Stack, fn awslambda.Function) {
	spec := r.d.Gateway

	corsMethods := make([]awsapigatewayv2.CorsHttpMethod, 0, len(spec.Cors.AllowMethods))
	for _, m := range spec.Cors.AllowMethods {
		corsMethods = append(corsMethods, corsMethod(m))
	}

	api := awsapigatewayv2.NewHttpApi(stack, jsii.String(spec.LogicalID), &awsapigatewayv2.HttpApiProps{
		CorsPreflight: &awsapigatewayv2.CorsPreflightOptions{
			AllowHeaders: jsii.Strings(spec.Cors.AllowHeaders...),
			AllowMethods: &corsMethods,
			AllowOrigins: jsii.Strings(spec.Cors.AllowOrigins...),
		},
	})

	integration := awsapigatewayv2integrations.NewHttpLambdaIntegration(jsii.String(spec.IntegrationLogicalID), fn, nil)
	for _, route := range spec.Routes {
		api.AddRoutes(&awsapigatewayv2.AddRoutesOptions{
			Path:        jsii.String(route.Path),
			Methods:     &[]awsapigatewayv2.HttpMethod{httpMethod(route.Method)},
			Integration: integration,
		})
	}
	r.attrs[ResourceRef{Resource: spec.LogicalID, Attribute: AttrEndpoint}] = api.ApiEndpoint()
}

func attributeType(t AttributeType) awsdynamodb.AttributeType {
	switch t {
	case AttributeNumber:
		return awsdynamodb.AttributeType_NUMBER
	case AttributeBinary:
		return awsdynamodb.AttributeType_BINARY
	default:
		return awsdynamodb.AttributeType_STRING
	}
}

func httpMethod(m string) awsapigatewayv2.HttpMethod {
	if m == MethodAny {
		return awsapigatewayv2.HttpMethod_ANY
	}
	return awsapigatewayv2.HttpMethod(m)
}

func corsMethod(m string) awsapigatewayv2.CorsHttpMethod {
	if m == MethodAny {
		return awsapigatewayv2.CorsHttpMethod_ANY
	}
	return awsapigatewayv2.CorsHttpMethod(m)
}

func retentionDays(d time.Duration) (awslogs.RetentionDays, error) {
	switch int(d / (24 * time.Hour)) {
	case 1:
		return awslogs.RetentionDays_ONE_DAY, nil
	case 3:
		return awslogs.RetentionDays_THREE_DAYS, nil
	case 7:
		return awslogs.RetentionDays_ONE_WEEK, nil
	case 14:
		return awslogs.RetentionDays_TWO_WEEKS, nil
	case 30:
		return awslogs.RetentionDays_ONE_MONTH, nil
	case 90:
		return awslogs.RetentionDays_THREE_MONTHS, nil
	case 365:
		return awslogs.RetentionDays_ONE_YEAR, nil
	default:
		return "", ErrValidation(fmt.Sprintf("unsupported log retention %s", d)).WithResource("log_group", "")
	}
}
