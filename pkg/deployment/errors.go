package deployment

import (
	"errors"
	"net"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/anirudhbiyani/aijay/pkg/foundations"
)

// classify wraps an AWS SDK error in a categorized foundations.Error.
func classify(err error, op, resourceType, resourceID string) error {
	if err == nil {
		return nil
	}

	category := foundations.ErrCategoryInternal
	message := op + " failed"

	var apiErr smithy.APIError
	var netErr net.Error
	switch {
	case errors.As(err, &apiErr):
		code := apiErr.ErrorCode()
		message = apiErr.ErrorMessage()
		switch {
		case strings.HasPrefix(code, "AccessDenied"), code == "UnauthorizedOperation",
			code == "ExpiredToken", code == "InvalidClientTokenId":
			category = foundations.ErrCategoryPermission
		case strings.Contains(code, "NotFound"), code == "NoSuchEntity", code == "NoSuchBucket",
			code == "NoSuchPublicAccessBlockConfiguration",
			code == "ValidationError" && strings.Contains(message, "does not exist"):
			category = foundations.ErrCategoryNotFound
		case code == "ValidationError", code == "InvalidParameterException":
			category = foundations.ErrCategoryValidation
		}
	case errors.As(err, &netErr):
		category = foundations.ErrCategoryNetwork
	}

	return foundations.NewError(category, message).
		WithOperation(op).
		WithResource(resourceType, resourceID).
		WithCause(err)
}
