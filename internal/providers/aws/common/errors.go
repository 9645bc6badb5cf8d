package common

import (
	"errors"

	"github.com/aws/smithy-go"
)

// notFoundCodes are the API error codes the services in this project use to
// say the addressed resource does not exist.
var notFoundCodes = map[string]bool{
	"ResourceNotFoundException":           true, // Secrets Manager
	"NotFoundException":                   true, // KMS
	"NoSuchEntity":                        true, // IAM
	"InvalidGroup.NotFound":               true, // EC2
	"InvalidGroupId.Malformed":            true,
	"InvalidSecurityGroupRuleId.NotFound": true,
	"NoSuchBucket":                        true, // S3
	"DBInstanceNotFound":                  true, // RDS
	"DBInstanceNotFoundFault":             true,
	"LoadBalancerNotFound":                true, // ELBv2
}

// ErrorCode returns the API error code carried by err, or "" when err is not
// a service error.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// IsNotFound reports whether err is a service error saying the addressed
// resource does not exist.
func IsNotFound(err error) bool {
	return notFoundCodes[ErrorCode(err)]
}

// HasCode reports whether err is a service error with the given code.
func HasCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}
