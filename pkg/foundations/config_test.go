package foundations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeContextFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "foundations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadContextFromFile(t *testing.T) {
	t.Setenv(EnvAccount, "")
	t.Setenv(EnvHandlerAsset, "")

	path := writeContextFile(t, `
account: "210987654321"
stack_name: AIJay-Foundations-Dev
tags:
  project: aijay
  stage: dev
`)

	ctx, err := LoadContext(path)
	require.NoError(t, err)
	assert.Equal(t, "210987654321", ctx.Account)
	assert.Equal(t, DefaultRegion, ctx.Region)
	assert.Equal(t, "AIJay-Foundations-Dev", ctx.StackName)
	assert.Equal(t, DefaultHandlerAsset, ctx.HandlerAsset)
	assert.Equal(t, map[string]string{"project": "aijay", "stage": "dev"}, ctx.Tags)
	assert.NoError(t, ctx.Validate())
}

func TestLoadContextEnvironmentWins(t *testing.T) {
	t.Setenv(EnvAccount, "123456789012")
	t.Setenv(EnvHandlerAsset, "dist/api")

	path := writeContextFile(t, "account: \"210987654321\"\n")

	ctx, err := LoadContext(path)
	require.NoError(t, err)
	assert.Equal(t, "123456789012", ctx.Account)
	assert.Equal(t, "dist/api", ctx.HandlerAsset)
}

func TestLoadContextWithoutFile(t *testing.T) {
	t.Setenv(EnvAccount, "")
	t.Setenv(EnvHandlerAsset, "")

	ctx, err := LoadContext("")
	require.NoError(t, err)
	assert.Equal(t, DefaultContext(), ctx)

	err = ctx.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAccountRequired)
}

func TestLoadContextErrors(t *testing.T) {
	_, err := LoadContext(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeContextFile(t, "account: [unterminated\n")
	_, err = LoadContext(path)
	require.Error(t, err)
	assert.True(t, IsCategory(err, ErrCategoryValidation))
}

func TestApplyEnvIgnoresEmptyValues(t *testing.T) {
	ctx := testContext()
	ctx.ApplyEnv(func(key string) (string, bool) {
		return "", true
	})
	assert.Equal(t, "123456789012", ctx.Account)
	assert.Equal(t, DefaultHandlerAsset, ctx.HandlerAsset)
}

func TestContextValidate(t *testing.T) {
	ctx := testContext()
	require.NoError(t, ctx.Validate())

	ctx.StackName = ""
	assert.True(t, IsCategory(ctx.Validate(), ErrCategoryValidation))

	ctx = testContext()
	ctx.Region = "eu-west-1"
	assert.True(t, IsCategory(ctx.Validate(), ErrCategoryValidation))
}

func TestValidateAccountID(t *testing.T) {
	assert.NoError(t, ValidateAccountID("123456789012"))
	assert.Error(t, ValidateAccountID("12345"))
	assert.Error(t, ValidateAccountID("12345678901a"))
}

func TestErrorCategories(t *testing.T) {
	err := ErrNotFound("table", "UsersTable").WithOperation("describe")
	assert.True(t, IsCategory(err, ErrCategoryNotFound))
	assert.False(t, IsCategory(err, ErrCategoryValidation))
	assert.ErrorIs(t, err, NewError(ErrCategoryNotFound, "other"))
	assert.Contains(t, err.Error(), "UsersTable")

	wrapped := ErrValidation("bad").WithCause(ErrAccountRequired)
	assert.ErrorIs(t, wrapped, ErrAccountRequired)
}
