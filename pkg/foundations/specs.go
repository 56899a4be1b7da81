package foundations

import (
	"fmt"
	"strings"
	"time"
)

// Attribute names a value a declared resource exposes once materialized.
type Attribute string

const (
	AttrID         Attribute = "id"
	AttrName       Attribute = "name"
	AttrEndpoint   Attribute = "endpoint"
	AttrDomainName Attribute = "domain_name"
)

// ResourceRef points at an attribute of another declaration by logical ID.
type ResourceRef struct {
	Resource  string    `json:"resource" yaml:"resource"`
	Attribute Attribute `json:"attribute" yaml:"attribute"`
}

func (r ResourceRef) String() string {
	return r.Resource + "." + string(r.Attribute)
}

// PasswordPolicy holds the password thresholds of an identity pool.
type PasswordPolicy struct {
	MinLength        int  `json:"min_length" yaml:"min_length"`
	RequireDigits    bool `json:"require_digits" yaml:"require_digits"`
	RequireLowercase bool `json:"require_lowercase" yaml:"require_lowercase"`
	RequireUppercase bool `json:"require_uppercase" yaml:"require_uppercase"`
	RequireSymbols   bool `json:"require_symbols" yaml:"require_symbols"`
}

// SignInAlias is the identifier kind users sign in with.
type SignInAlias string

const SignInEmail SignInAlias = "email"

// StandardAttribute is a required user attribute of an identity pool.
type StandardAttribute struct {
	Name    string `json:"name" yaml:"name"`
	Mutable bool   `json:"mutable" yaml:"mutable"`
}

// IdentityPoolSpec declares the managed user directory.
type IdentityPoolSpec struct {
	LogicalID          string              `json:"logical_id" yaml:"logical_id"`
	SelfSignUpEnabled  bool                `json:"self_sign_up_enabled" yaml:"self_sign_up_enabled"`
	SignInAliases      []SignInAlias       `json:"sign_in_aliases" yaml:"sign_in_aliases"`
	RequiredAttributes []StandardAttribute `json:"required_attributes" yaml:"required_attributes"`
	PasswordPolicy     PasswordPolicy      `json:"password_policy" yaml:"password_policy"`

	// DomainLogicalID and DomainPrefix describe the single hosted-domain alias.
	DomainLogicalID string `json:"domain_logical_id" yaml:"domain_logical_id"`
	DomainPrefix    string `json:"domain_prefix" yaml:"domain_prefix"`
}

// Validate checks the pool declaration.
func (s *IdentityPoolSpec) Validate() error {
	if s.LogicalID == "" {
		return fmt.Errorf("identity pool logical_id is required")
	}
	if len(s.SignInAliases) == 0 {
		return fmt.Errorf("identity pool needs at least one sign-in alias")
	}
	if s.PasswordPolicy.MinLength < 6 || s.PasswordPolicy.MinLength > 99 {
		return fmt.Errorf("password min_length must be between 6 and 99, got %d", s.PasswordPolicy.MinLength)
	}
	if s.DomainLogicalID == "" || s.DomainPrefix == "" {
		return fmt.Errorf("identity pool requires exactly one hosted domain")
	}
	return nil
}

// AuthFlows lists the direct authentication flows a client may use.
type AuthFlows struct {
	UserPassword bool `json:"user_password" yaml:"user_password"`
	UserSRP      bool `json:"user_srp" yaml:"user_srp"`
}

// OAuthFlows lists the OAuth grants a client may use.
type OAuthFlows struct {
	AuthorizationCodeGrant bool `json:"authorization_code_grant" yaml:"authorization_code_grant"`
	ImplicitCodeGrant      bool `json:"implicit_code_grant" yaml:"implicit_code_grant"`
}

// IdentityProvider names an identity provider a client may federate with.
type IdentityProvider string

const IdentityProviderCognito IdentityProvider = "COGNITO"

// ClientSpec declares an application registered against an identity pool.
type ClientSpec struct {
	LogicalID                  string             `json:"logical_id" yaml:"logical_id"`
	Pool                       string             `json:"pool" yaml:"pool"`
	GenerateSecret             bool               `json:"generate_secret" yaml:"generate_secret"`
	AuthFlows                  AuthFlows          `json:"auth_flows" yaml:"auth_flows"`
	OAuthFlows                 OAuthFlows         `json:"oauth_flows" yaml:"oauth_flows"`
	CallbackURLs               []string           `json:"callback_urls" yaml:"callback_urls"`
	LogoutURLs                 []string           `json:"logout_urls" yaml:"logout_urls"`
	PreventUserExistenceErrors bool               `json:"prevent_user_existence_errors" yaml:"prevent_user_existence_errors"`
	IdentityProviders          []IdentityProvider `json:"identity_providers" yaml:"identity_providers"`
}

// Validate checks the client declaration.
func (s *ClientSpec) Validate() error {
	if s.LogicalID == "" {
		return fmt.Errorf("client logical_id is required")
	}
	if s.Pool == "" {
		return fmt.Errorf("client %s must reference an identity pool", s.LogicalID)
	}
	if !s.AuthFlows.UserPassword && !s.AuthFlows.UserSRP {
		return fmt.Errorf("client %s enables no auth flow", s.LogicalID)
	}
	for _, u := range append(append([]string{}, s.CallbackURLs...), s.LogoutURLs...) {
		if err := ValidateAppURI(u); err != nil {
			return fmt.Errorf("client %s: %w", s.LogicalID, err)
		}
	}
	if len(s.IdentityProviders) == 0 {
		return fmt.Errorf("client %s needs at least one identity provider", s.LogicalID)
	}
	return nil
}

// EncryptionMode is the server-side encryption of an object store.
type EncryptionMode string

const EncryptionS3Managed EncryptionMode = "S3_MANAGED"

// ObjectStoreSpec declares the blob store.
type ObjectStoreSpec struct {
	LogicalID         string         `json:"logical_id" yaml:"logical_id"`
	BlockPublicAccess bool           `json:"block_public_access" yaml:"block_public_access"`
	Encryption        EncryptionMode `json:"encryption" yaml:"encryption"`
	EnforceSSL        bool           `json:"enforce_ssl" yaml:"enforce_ssl"`
	Versioned         bool           `json:"versioned" yaml:"versioned"`
}

// Validate checks the store declaration. Public access is never allowed and
// transport encryption is always required.
func (s *ObjectStoreSpec) Validate() error {
	if s.LogicalID == "" {
		return fmt.Errorf("object store logical_id is required")
	}
	if !s.BlockPublicAccess {
		return fmt.Errorf("object store %s must block all public access", s.LogicalID)
	}
	if !s.EnforceSSL {
		return fmt.Errorf("object store %s must enforce SSL", s.LogicalID)
	}
	if s.Encryption == "" {
		return fmt.Errorf("object store %s requires an encryption mode", s.LogicalID)
	}
	return nil
}

// AttributeType is the scalar type of a table key.
type AttributeType string

const (
	AttributeString AttributeType = "S"
	AttributeNumber AttributeType = "N"
	AttributeBinary AttributeType = "B"
)

// KeyAttribute is a table key definition.
type KeyAttribute struct {
	Name string        `json:"name" yaml:"name"`
	Type AttributeType `json:"type" yaml:"type"`
}

// BillingMode is the capacity mode of a table.
type BillingMode string

const BillingPayPerRequest BillingMode = "PAY_PER_REQUEST"

// TableSpec declares a key-value table.
type TableSpec struct {
	LogicalID           string        `json:"logical_id" yaml:"logical_id"`
	PartitionKey        KeyAttribute  `json:"partition_key" yaml:"partition_key"`
	SortKey             *KeyAttribute `json:"sort_key,omitempty" yaml:"sort_key,omitempty"`
	BillingMode         BillingMode   `json:"billing_mode" yaml:"billing_mode"`
	PointInTimeRecovery bool          `json:"point_in_time_recovery" yaml:"point_in_time_recovery"`
	TimeToLiveAttribute string        `json:"time_to_live_attribute,omitempty" yaml:"time_to_live_attribute,omitempty"`
}

// Validate checks the table declaration.
func (s *TableSpec) Validate() error {
	if s.LogicalID == "" {
		return fmt.Errorf("table logical_id is required")
	}
	if s.PartitionKey.Name == "" {
		return fmt.Errorf("table %s requires a partition key", s.LogicalID)
	}
	if err := validateAttributeType(s.PartitionKey.Type); err != nil {
		return fmt.Errorf("table %s partition key: %w", s.LogicalID, err)
	}
	if s.SortKey != nil {
		if s.SortKey.Name == "" || s.SortKey.Name == s.PartitionKey.Name {
			return fmt.Errorf("table %s sort key must be named and differ from the partition key", s.LogicalID)
		}
		if err := validateAttributeType(s.SortKey.Type); err != nil {
			return fmt.Errorf("table %s sort key: %w", s.LogicalID, err)
		}
	}
	if s.BillingMode == "" {
		return fmt.Errorf("table %s requires a billing mode", s.LogicalID)
	}
	return nil
}

func validateAttributeType(t AttributeType) error {
	switch t {
	case AttributeString, AttributeNumber, AttributeBinary:
		return nil
	default:
		return fmt.Errorf("unknown attribute type %q", t)
	}
}

// AccessLevel is the data access a handler is granted on a resource.
type AccessLevel string

const AccessReadWrite AccessLevel = "read_write"

// Grant gives the handler access to a declared resource.
type Grant struct {
	Resource string      `json:"resource" yaml:"resource"`
	Access   AccessLevel `json:"access" yaml:"access"`
}

// HandlerEnvironment is the environment injected into the compute handler.
// Each field becomes one variable; the variable names are fixed.
type HandlerEnvironment struct {
	UsersTable    ResourceRef `json:"USERS_TABLE" yaml:"USERS_TABLE"`
	SessionsTable ResourceRef `json:"SESSIONS_TABLE" yaml:"SESSIONS_TABLE"`
	BucketName    ResourceRef `json:"BUCKET_NAME" yaml:"BUCKET_NAME"`
	UserPoolID    ResourceRef `json:"USER_POOL_ID" yaml:"USER_POOL_ID"`
}

// Environment variable names set on the handler.
const (
	EnvUsersTable    = "USERS_TABLE"
	EnvSessionsTable = "SESSIONS_TABLE"
	EnvBucketName    = "BUCKET_NAME"
	EnvUserPoolID    = "USER_POOL_ID"
)

// EnvVar is one resolved name/reference pair of a HandlerEnvironment.
type EnvVar struct {
	Name string
	Ref  ResourceRef
}

// Variables returns the environment as name/reference pairs in a fixed order.
func (e HandlerEnvironment) Variables() []EnvVar {
	return []EnvVar{
		{Name: EnvUsersTable, Ref: e.UsersTable},
		{Name: EnvSessionsTable, Ref: e.SessionsTable},
		{Name: EnvBucketName, Ref: e.BucketName},
		{Name: EnvUserPoolID, Ref: e.UserPoolID},
	}
}

// Architecture is the instruction set the handler runs on.
type Architecture string

const (
	ArchARM64  Architecture = "arm64"
	ArchX86_64 Architecture = "x86_64"
)

// HandlerSpec declares the compute handler.
type HandlerSpec struct {
	LogicalID    string             `json:"logical_id" yaml:"logical_id"`
	Entry        string             `json:"entry" yaml:"entry"`
	Handler      string             `json:"handler" yaml:"handler"`
	Runtime      string             `json:"runtime" yaml:"runtime"`
	Architecture Architecture       `json:"architecture" yaml:"architecture"`
	LogRetention time.Duration      `json:"log_retention" yaml:"log_retention"`
	Environment  HandlerEnvironment `json:"environment" yaml:"environment"`
	Grants       []Grant            `json:"grants" yaml:"grants"`
}

// Validate checks the handler declaration.
func (s *HandlerSpec) Validate() error {
	if s.LogicalID == "" {
		return fmt.Errorf("handler logical_id is required")
	}
	if s.Entry == "" {
		return fmt.Errorf("handler %s requires an entry", s.LogicalID)
	}
	if s.Runtime == "" || s.Handler == "" {
		return fmt.Errorf("handler %s requires runtime and handler", s.LogicalID)
	}
	if s.LogRetention <= 0 {
		return fmt.Errorf("handler %s requires a positive log retention", s.LogicalID)
	}
	seen := make(map[string]bool)
	for _, v := range s.Environment.Variables() {
		if seen[v.Name] {
			return fmt.Errorf("handler %s: duplicate environment variable %s", s.LogicalID, v.Name)
		}
		seen[v.Name] = true
		if v.Ref.Resource == "" {
			return fmt.Errorf("handler %s: environment variable %s has no reference", s.LogicalID, v.Name)
		}
	}
	for _, g := range s.Grants {
		if g.Access != AccessReadWrite {
			return fmt.Errorf("handler %s: unsupported access level %q on %s", s.LogicalID, g.Access, g.Resource)
		}
	}
	return nil
}

// HTTP methods used by route bindings and CORS policies.
const (
	MethodGet = "GET"
	MethodAny = "*"
)

// CorsPolicy is the cross-origin policy of a gateway.
type CorsPolicy struct {
	AllowHeaders []string `json:"allow_headers" yaml:"allow_headers"`
	AllowMethods []string `json:"allow_methods" yaml:"allow_methods"`
	AllowOrigins []string `json:"allow_origins" yaml:"allow_origins"`

	// Provisional marks a policy that must be tightened before production.
	Provisional bool `json:"provisional" yaml:"provisional"`
}

// AllowsAnyOrigin reports whether the policy accepts every origin.
func (p CorsPolicy) AllowsAnyOrigin() bool {
	for _, o := range p.AllowOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// RouteBinding maps one path and method to a handler.
type RouteBinding struct {
	Path    string `json:"path" yaml:"path"`
	Method  string `json:"method" yaml:"method"`
	Handler string `json:"handler" yaml:"handler"`
}

func (b RouteBinding) String() string {
	return b.Method + " " + b.Path
}

// GatewaySpec declares the HTTP front door.
type GatewaySpec struct {
	LogicalID            string         `json:"logical_id" yaml:"logical_id"`
	IntegrationLogicalID string         `json:"integration_logical_id" yaml:"integration_logical_id"`
	Cors                 CorsPolicy     `json:"cors" yaml:"cors"`
	Routes               []RouteBinding `json:"routes" yaml:"routes"`
}

// Validate checks the gateway declaration. Each path+method pair must be unique.
func (s *GatewaySpec) Validate() error {
	if s.LogicalID == "" {
		return fmt.Errorf("gateway logical_id is required")
	}
	seen := make(map[string]bool)
	for _, r := range s.Routes {
		if !strings.HasPrefix(r.Path, "/") {
			return fmt.Errorf("gateway %s: route path %q must start with /", s.LogicalID, r.Path)
		}
		if r.Method == "" || r.Handler == "" {
			return fmt.Errorf("gateway %s: route %s needs a method and handler", s.LogicalID, r.Path)
		}
		key := r.String()
		if seen[key] {
			return fmt.Errorf("gateway %s: duplicate route %s", s.LogicalID, key)
		}
		seen[key] = true
	}
	return nil
}

// OutputSpec exports one resource attribute under a fixed name.
type OutputSpec struct {
	Name  string      `json:"name" yaml:"name"`
	Value ResourceRef `json:"value" yaml:"value"`
}

// ValidateAppURI checks a custom-scheme redirect URI such as aijay://signout.
// Web schemes are rejected: the client is a native application.
func ValidateAppURI(uri string) error {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok || scheme == "" || rest == "" {
		return fmt.Errorf("invalid redirect URI: %s", uri)
	}
	if scheme == "http" || scheme == "https" {
		return fmt.Errorf("redirect URI must use a custom scheme: %s", uri)
	}
	return nil
}
