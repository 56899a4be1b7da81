package foundations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// handlerAsset creates a directory with a placeholder bootstrap binary so the
// function code asset can be staged.
func handlerAsset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, HandlerBootstrap), []byte("#!/bin/sh\n"), 0o755))
	return dir
}

func synthTemplate(t *testing.T) assertions.Template {
	t.Helper()
	ctx := testContext()
	ctx.HandlerAsset = handlerAsset(t)

	app := awscdk.NewApp(nil)
	stack, err := NewFoundationsStack(app, "TestStack", &FoundationsStackProps{Context: ctx})
	require.NoError(t, err)
	return assertions.Template_FromStack(stack, nil)
}

func TestFoundationsStackResourceCounts(t *testing.T) {
	template := synthTemplate(t)

	counts := map[string]float64{
		TypeUserPool:       1,
		TypeUserPoolClient: 1,
		TypeUserPoolDomain: 1,
		TypeBucket:         1,
		TypeTable:          2,
		TypeFunction:       1,
		TypeHTTPAPI:        1,
		TypeRoute:          1,
	}
	for resourceType, n := range counts {
		template.ResourceCountIs(jsii.String(resourceType), jsii.Number(n))
	}

	outputs := template.FindOutputs(jsii.String("*"), nil)
	require.NotNil(t, outputs)
	var names []string
	for name := range *outputs {
		names = append(names, name)
	}
	assert.ElementsMatch(t, OutputNames, names)
}

func TestFoundationsStackIdentity(t *testing.T) {
	template := synthTemplate(t)

	template.HasResourceProperties(jsii.String(TypeUserPool), map[string]interface{}{
		"UsernameAttributes": []interface{}{"email"},
		"AdminCreateUserConfig": map[string]interface{}{
			"AllowAdminCreateUserOnly": false,
		},
		"Policies": map[string]interface{}{
			"PasswordPolicy": map[string]interface{}{
				"MinimumLength":    8,
				"RequireNumbers":   true,
				"RequireLowercase": true,
				"RequireUppercase": false,
				"RequireSymbols":   false,
			},
		},
		"Schema": assertions.Match_ArrayWith(&[]interface{}{
			map[string]interface{}{"Name": "email", "Required": true, "Mutable": false},
		}),
	})

	template.HasResourceProperties(jsii.String(TypeUserPoolDomain), map[string]interface{}{
		"Domain": "aijay-789012",
	})

	template.HasResourceProperties(jsii.String(TypeUserPoolClient), map[string]interface{}{
		"GenerateSecret":             false,
		"AllowedOAuthFlows":          []interface{}{"code"},
		"CallbackURLs":               []interface{}{"aijay://auth-callback"},
		"LogoutURLs":                 []interface{}{"aijay://signout"},
		"PreventUserExistenceErrors": "ENABLED",
		"SupportedIdentityProviders": []interface{}{"COGNITO"},
		"ExplicitAuthFlows": assertions.Match_ArrayWith(&[]interface{}{
			"ALLOW_USER_PASSWORD_AUTH", "ALLOW_USER_SRP_AUTH",
		}),
	})
}

func TestFoundationsStackStorage(t *testing.T) {
	template := synthTemplate(t)

	template.HasResourceProperties(jsii.String(TypeBucket), map[string]interface{}{
		"BucketEncryption": map[string]interface{}{
			"ServerSideEncryptionConfiguration": []interface{}{
				map[string]interface{}{
					"ServerSideEncryptionByDefault": map[string]interface{}{"SSEAlgorithm": "AES256"},
				},
			},
		},
		"VersioningConfiguration": map[string]interface{}{"Status": "Enabled"},
		"PublicAccessBlockConfiguration": map[string]interface{}{
			"BlockPublicAcls":       true,
			"BlockPublicPolicy":     true,
			"IgnorePublicAcls":      true,
			"RestrictPublicBuckets": true,
		},
	})
	// enforceSSL is rendered as a deny statement in the bucket policy.
	template.ResourceCountIs(jsii.String("AWS::S3::BucketPolicy"), jsii.Number(1))

	template.HasResourceProperties(jsii.String(TypeTable), map[string]interface{}{
		"KeySchema": []interface{}{
			map[string]interface{}{"AttributeName": "userId", "KeyType": "HASH"},
		},
		"BillingMode":                      "PAY_PER_REQUEST",
		"PointInTimeRecoverySpecification": map[string]interface{}{"PointInTimeRecoveryEnabled": true},
		"TimeToLiveSpecification":          assertions.Match_Absent(),
	})

	template.HasResourceProperties(jsii.String(TypeTable), map[string]interface{}{
		"KeySchema": []interface{}{
			map[string]interface{}{"AttributeName": "sessionId", "KeyType": "HASH"},
			map[string]interface{}{"AttributeName": "createdAt", "KeyType": "RANGE"},
		},
		"BillingMode":                      "PAY_PER_REQUEST",
		"PointInTimeRecoverySpecification": map[string]interface{}{"PointInTimeRecoveryEnabled": true},
		"TimeToLiveSpecification":          map[string]interface{}{"AttributeName": "ttl", "Enabled": true},
	})
}

func TestFoundationsStackHandler(t *testing.T) {
	template := synthTemplate(t)

	template.HasResourceProperties(jsii.String(TypeFunction), map[string]interface{}{
		"Runtime":       HandlerRuntime,
		"Handler":       HandlerBootstrap,
		"Architectures": []interface{}{"arm64"},
	})
	template.HasResourceProperties(jsii.String("AWS::Logs::LogGroup"), map[string]interface{}{
		"RetentionInDays": 7,
	})

	functions := template.FindResources(jsii.String(TypeFunction), nil)
	require.Len(t, *functions, 1)
	for _, fn := range *functions {
		props := (*fn)["Properties"].(map[string]interface{})
		vars := props["Environment"].(map[string]interface{})["Variables"].(map[string]interface{})

		var keys []string
		for k := range vars {
			keys = append(keys, k)
		}
		assert.ElementsMatch(t, []string{EnvUsersTable, EnvSessionsTable, EnvBucketName, EnvUserPoolID}, keys)
	}

	for _, action := range []string{"dynamodb:PutItem", "s3:PutObject"} {
		template.HasResourceProperties(jsii.String("AWS::IAM::Policy"), map[string]interface{}{
			"PolicyDocument": map[string]interface{}{
				"Statement": assertions.Match_ArrayWith(&[]interface{}{
					assertions.Match_ObjectLike(&map[string]interface{}{
						"Action": assertions.Match_ArrayWith(&[]interface{}{action}),
						"Effect": "Allow",
					}),
				}),
			},
		})
	}
}

func TestFoundationsStackGateway(t *testing.T) {
	template := synthTemplate(t)

	template.HasResourceProperties(jsii.String(TypeHTTPAPI), map[string]interface{}{
		"ProtocolType": "HTTP",
		"CorsConfiguration": map[string]interface{}{
			"AllowHeaders": []interface{}{"Authorization", "Content-Type"},
			"AllowMethods": []interface{}{"*"},
			"AllowOrigins": []interface{}{"*"},
		},
	})
	template.HasResourceProperties(jsii.String(TypeRoute), map[string]interface{}{
		"RouteKey": "GET /ping",
	})
}

func TestFoundationsStackMissingAccount(t *testing.T) {
	app := awscdk.NewApp(nil)

	stack, err := NewFoundationsStack(app, "TestStack", &FoundationsStackProps{Context: DefaultContext()})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAccountRequired)
	assert.Nil(t, stack)
	assert.Empty(t, *app.Node().Children())

	_, err = NewFoundationsStack(app, "NilProps", nil)
	assert.ErrorIs(t, err, ErrAccountRequired)
}

func TestFoundationsStackTags(t *testing.T) {
	ctx := testContext()
	ctx.HandlerAsset = handlerAsset(t)
	ctx.Tags = map[string]string{"project": "aijay"}

	app := awscdk.NewApp(nil)
	stack, err := NewFoundationsStack(app, "TaggedStack", &FoundationsStackProps{Context: ctx})
	require.NoError(t, err)

	template := assertions.Template_FromStack(stack, nil)
	template.HasResourceProperties(jsii.String(TypeBucket), map[string]interface{}{
		"Tags": assertions.Match_ArrayWith(&[]interface{}{
			map[string]interface{}{"Key": "project", "Value": "aijay"},
		}),
	})
}
