package deployment

import (
	"errors"
	"net"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhbiyani/aijay/pkg/foundations"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want foundations.ErrorCategory
	}{
		{name: "access denied", err: &smithy.GenericAPIError{Code: "AccessDeniedException"}, want: foundations.ErrCategoryPermission},
		{name: "expired token", err: &smithy.GenericAPIError{Code: "ExpiredToken"}, want: foundations.ErrCategoryPermission},
		{name: "resource not found", err: &smithy.GenericAPIError{Code: "ResourceNotFoundException"}, want: foundations.ErrCategoryNotFound},
		{name: "no such bucket", err: &smithy.GenericAPIError{Code: "NoSuchBucket"}, want: foundations.ErrCategoryNotFound},
		{
			name: "stack does not exist",
			err:  &smithy.GenericAPIError{Code: "ValidationError", Message: "Stack with id AIJay-Foundations does not exist"},
			want: foundations.ErrCategoryNotFound,
		},
		{name: "validation", err: &smithy.GenericAPIError{Code: "ValidationError", Message: "bad input"}, want: foundations.ErrCategoryValidation},
		{name: "network", err: &net.DNSError{Err: "no such host", Name: "cloudformation"}, want: foundations.ErrCategoryNetwork},
		{name: "other", err: errors.New("boom"), want: foundations.ErrCategoryInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err, "outputs", "stack", testStack)
			require.Error(t, err)
			assert.True(t, foundations.IsCategory(err, tt.want), "got %v", err)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, classify(nil, "outputs", "stack", testStack))
}
