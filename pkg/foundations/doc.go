// Package foundations declares the AIJay foundations infrastructure.
//
// # Overview
//
// The package evaluates a fixed descriptor for a deployment target and
// renders it onto an AWS CDK stack. The provisioning engine (cdk deploy)
// materializes the result; nothing here creates, updates or deletes cloud
// resources.
//
// # Declarations
//
// Describe returns a Descriptor holding one typed declaration per resource:
//   - IdentityPoolSpec: the Cognito user pool and its hosted domain
//   - ClientSpec: the native app client registered against the pool
//   - ObjectStoreSpec: the private, versioned data bucket
//   - TableSpec: the Users and Sessions tables
//   - HandlerSpec: the API function, its environment and grants
//   - GatewaySpec: the HTTP API, its CORS policy and route bindings
//
// Five outputs are exported: HttpApiUrl, UserPoolId, UserPoolClientId,
// CognitoDomain and DataBucket.
//
// # Usage
//
//	ctx, err := foundations.LoadContext("foundations.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	app, err := foundations.NewApp(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app.Synth(nil)
//
// # Failure
//
// The target account is required: the hosted-domain prefix is derived from
// its last six characters. Describe and NewFoundationsStack return a
// validation error wrapping ErrAccountRequired before declaring anything
// when it is missing.
package foundations
