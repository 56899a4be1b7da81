package foundations

import (
	"fmt"
	"time"
)

// Logical IDs of the declared resources.
const (
	LogicalUserPool      = "AIJayUserPool"
	LogicalHostedDomain  = "HostedDomain"
	LogicalClient        = "AIJayIOSClient"
	LogicalDataBucket    = "AIJayDataBucket"
	LogicalUsersTable    = "UsersTable"
	LogicalSessionsTable = "SessionsTable"
	LogicalHandler       = "ApiHandler"
	LogicalHTTPAPI       = "AIJayHttpApi"
	LogicalIntegration   = "ApiIntegration"
)

// Names of the exported outputs.
const (
	OutputHTTPAPIURL       = "HttpApiUrl"
	OutputUserPoolID       = "UserPoolId"
	OutputUserPoolClientID = "UserPoolClientId"
	OutputCognitoDomain    = "CognitoDomain"
	OutputDataBucket       = "DataBucket"
)

// OutputNames lists the exported outputs in declaration order.
var OutputNames = []string{
	OutputHTTPAPIURL,
	OutputUserPoolID,
	OutputUserPoolClientID,
	OutputCognitoDomain,
	OutputDataBucket,
}

const (
	// DomainPrefixBase is prepended to the account suffix of the hosted domain.
	DomainPrefixBase = "aijay-"

	accountSuffixLen = 6

	// HandlerRuntime is the Lambda runtime of the compiled Go handler.
	HandlerRuntime = "provided.al2023"
	// HandlerBootstrap is the executable name the runtime invokes.
	HandlerBootstrap = "bootstrap"

	handlerLogRetention = 7 * 24 * time.Hour
)

// DomainPrefix derives the hosted-domain prefix from the last six characters
// of the account ID, which keeps it globally unique without operator input.
func DomainPrefix(account string) (string, error) {
	if account == "" {
		return "", ErrValidation("cannot derive domain prefix").WithCause(ErrAccountRequired).
			WithOperation("describe").WithResource("hosted_domain", LogicalHostedDomain)
	}
	if len(account) < accountSuffixLen {
		return "", ErrValidation(fmt.Sprintf("account identifier %q is shorter than %d characters", account, accountSuffixLen)).
			WithOperation("describe").WithResource("hosted_domain", LogicalHostedDomain)
	}
	return DomainPrefixBase + account[len(account)-accountSuffixLen:], nil
}

// Descriptor is the full declared entity graph of the foundations stack.
type Descriptor struct {
	Context DeploymentContext `json:"-" yaml:"-"`

	IdentityPool IdentityPoolSpec `json:"identity_pool" yaml:"identity_pool"`
	Client       ClientSpec       `json:"client" yaml:"client"`
	Store        ObjectStoreSpec  `json:"store" yaml:"store"`
	Users        TableSpec        `json:"users" yaml:"users"`
	Sessions     TableSpec        `json:"sessions" yaml:"sessions"`
	Handler      HandlerSpec      `json:"handler" yaml:"handler"`
	Gateway      GatewaySpec      `json:"gateway" yaml:"gateway"`
	Outputs      []OutputSpec     `json:"outputs" yaml:"outputs"`
}

// Describe evaluates the descriptor for a deployment context. It fails before
// declaring anything when the context has no account.
func Describe(ctx DeploymentContext) (*Descriptor, error) {
	if err := ctx.Validate(); err != nil {
		return nil, err
	}
	prefix, err := DomainPrefix(ctx.Account)
	if err != nil {
		return nil, err
	}

	d := &Descriptor{
		Context: ctx,
		IdentityPool: IdentityPoolSpec{
			LogicalID:          LogicalUserPool,
			SelfSignUpEnabled:  true,
			SignInAliases:      []SignInAlias{SignInEmail},
			RequiredAttributes: []StandardAttribute{{Name: "email", Mutable: false}},
			PasswordPolicy: PasswordPolicy{
				MinLength:        8,
				RequireDigits:    true,
				RequireLowercase: true,
				RequireUppercase: false,
				RequireSymbols:   false,
			},
			DomainLogicalID: LogicalHostedDomain,
			DomainPrefix:    prefix,
		},
		Client: ClientSpec{
			LogicalID:                  LogicalClient,
			Pool:                       LogicalUserPool,
			GenerateSecret:             false,
			AuthFlows:                  AuthFlows{UserPassword: true, UserSRP: true},
			OAuthFlows:                 OAuthFlows{AuthorizationCodeGrant: true},
			CallbackURLs:               []string{"aijay://auth-callback"},
			LogoutURLs:                 []string{"aijay://signout"},
			PreventUserExistenceErrors: true,
			IdentityProviders:          []IdentityProvider{IdentityProviderCognito},
		},
		Store: ObjectStoreSpec{
			LogicalID:         LogicalDataBucket,
			BlockPublicAccess: true,
			Encryption:        EncryptionS3Managed,
			EnforceSSL:        true,
			Versioned:         true,
		},
		Users: TableSpec{
			LogicalID:           LogicalUsersTable,
			PartitionKey:        KeyAttribute{Name: "userId", Type: AttributeString},
			BillingMode:         BillingPayPerRequest,
			PointInTimeRecovery: true,
		},
		Sessions: TableSpec{
			LogicalID:           LogicalSessionsTable,
			PartitionKey:        KeyAttribute{Name: "sessionId", Type: AttributeString},
			SortKey:             &KeyAttribute{Name: "createdAt", Type: AttributeString},
			BillingMode:         BillingPayPerRequest,
			PointInTimeRecovery: true,
			// Nothing here writes ttl values; expiry only applies once the API sets them.
			TimeToLiveAttribute: "ttl",
		},
		Handler: HandlerSpec{
			LogicalID:    LogicalHandler,
			Entry:        ctx.HandlerAsset,
			Handler:      HandlerBootstrap,
			Runtime:      HandlerRuntime,
			Architecture: ArchARM64,
			LogRetention: handlerLogRetention,
			Environment: HandlerEnvironment{
				UsersTable:    ResourceRef{Resource: LogicalUsersTable, Attribute: AttrName},
				SessionsTable: ResourceRef{Resource: LogicalSessionsTable, Attribute: AttrName},
				BucketName:    ResourceRef{Resource: LogicalDataBucket, Attribute: AttrName},
				UserPoolID:    ResourceRef{Resource: LogicalUserPool, Attribute: AttrID},
			},
			Grants: []Grant{
				{Resource: LogicalUsersTable, Access: AccessReadWrite},
				{Resource: LogicalSessionsTable, Access: AccessReadWrite},
				{Resource: LogicalDataBucket, Access: AccessReadWrite},
			},
		},
		Gateway: GatewaySpec{
			LogicalID:            LogicalHTTPAPI,
			IntegrationLogicalID: LogicalIntegration,
			Cors: CorsPolicy{
				AllowHeaders: []string{"Authorization", "Content-Type"},
				AllowMethods: []string{MethodAny},
				AllowOrigins: []string{"*"}, // tighten later
				Provisional:  true,
			},
			Routes: []RouteBinding{
				{Path: "/ping", Method: MethodGet, Handler: LogicalHandler},
			},
		},
		Outputs: []OutputSpec{
			{Name: OutputHTTPAPIURL, Value: ResourceRef{Resource: LogicalHTTPAPI, Attribute: AttrEndpoint}},
			{Name: OutputUserPoolID, Value: ResourceRef{Resource: LogicalUserPool, Attribute: AttrID}},
			{Name: OutputUserPoolClientID, Value: ResourceRef{Resource: LogicalClient, Attribute: AttrID}},
			{Name: OutputCognitoDomain, Value: ResourceRef{Resource: LogicalHostedDomain, Attribute: AttrDomainName}},
			{Name: OutputDataBucket, Value: ResourceRef{Resource: LogicalDataBucket, Attribute: AttrName}},
		},
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks every declaration and the references between them.
func (d *Descriptor) Validate() error {
	specs := []interface{ Validate() error }{
		&d.IdentityPool, &d.Client, &d.Store, &d.Users, &d.Sessions, &d.Handler, &d.Gateway,
	}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return ErrValidation(err.Error()).WithOperation("describe")
		}
	}

	declared := d.logicalIDs()
	resolve := func(owner, id string) error {
		if !declared[id] {
			return ErrNotFound("declaration", id).WithOperation("describe").WithDetail("referenced_by", owner)
		}
		return nil
	}

	if d.Client.Pool != d.IdentityPool.LogicalID {
		return ErrValidation(fmt.Sprintf("client %s references unknown pool %s", d.Client.LogicalID, d.Client.Pool)).
			WithOperation("describe")
	}
	for _, v := range d.Handler.Environment.Variables() {
		if err := resolve(d.Handler.LogicalID, v.Ref.Resource); err != nil {
			return err
		}
	}
	for _, g := range d.Handler.Grants {
		if err := resolve(d.Handler.LogicalID, g.Resource); err != nil {
			return err
		}
	}
	for _, r := range d.Gateway.Routes {
		if r.Handler != d.Handler.LogicalID {
			return ErrNotFound("handler", r.Handler).WithOperation("describe").WithDetail("route", r.String())
		}
	}

	if len(d.Outputs) != len(OutputNames) {
		return ErrValidation(fmt.Sprintf("expected %d outputs, got %d", len(OutputNames), len(d.Outputs))).
			WithOperation("describe")
	}
	names := make(map[string]bool)
	for _, o := range d.Outputs {
		if names[o.Name] {
			return ErrValidation("duplicate output " + o.Name).WithOperation("describe")
		}
		names[o.Name] = true
		if err := resolve("output:"+o.Name, o.Value.Resource); err != nil {
			return err
		}
	}
	return nil
}

func (d *Descriptor) logicalIDs() map[string]bool {
	return map[string]bool{
		d.IdentityPool.LogicalID:       true,
		d.IdentityPool.DomainLogicalID: true,
		d.Client.LogicalID:             true,
		d.Store.LogicalID:              true,
		d.Users.LogicalID:              true,
		d.Sessions.LogicalID:           true,
		d.Handler.LogicalID:            true,
		d.Gateway.LogicalID:            true,
	}
}

// Tables returns both table declarations, Users first.
func (d *Descriptor) Tables() []TableSpec {
	return []TableSpec{d.Users, d.Sessions}
}
