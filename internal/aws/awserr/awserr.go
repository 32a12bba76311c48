// Package awserr classifies AWS API errors by their smithy error code.
package awserr

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

var notFoundCodes = map[string]bool{
	"InvalidGroup.NotFound":               true,
	"InvalidGroupId.NotFound":             true,
	"InvalidSecurityGroupRuleId.NotFound": true,
	"InvalidPermission.NotFound":          true,
	"InvalidVpcID.NotFound":               true,
	"InvalidSubnetID.NotFound":            true,
	"InvalidInternetGatewayID.NotFound":   true,
	"InvalidVpcEndpointId.NotFound":       true,
	"NatGatewayNotFound":                  true,
	"InvalidNetworkInterfaceID.NotFound":  true,
	"Gateway.NotAttached":                 true,
	"FileSystemNotFound":                  true,
	"MountTargetNotFound":                 true,
	"ResourceNotFound":                    true,
	"NoSuchEntity":                        true,
	"NotFound":                            true,
}

var inUseCodes = map[string]bool{
	"DependencyViolation": true,
	"InvalidGroup.InUse":  true,
	"FileSystemInUse":     true,
	"ResourceInUse":       true,
	"DeleteConflict":      true,
}

// Code returns the API error code, or "" if err is not an API error.
func Code(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// IsNotFound reports whether the resource is already gone.
func IsNotFound(err error) bool {
	code := Code(err)
	if code == "" {
		return false
	}
	return notFoundCodes[code] || strings.HasSuffix(code, ".NotFound")
}

// IsInUse reports whether the resource is still referenced by something else.
func IsInUse(err error) bool {
	return inUseCodes[Code(err)]
}

// IsGroupNotFound reports whether the security group itself is gone. Rule
// level codes such as InvalidSecurityGroupRuleId.NotFound do not count.
func IsGroupNotFound(err error) bool {
	switch Code(err) {
	case "InvalidGroup.NotFound", "InvalidGroupId.NotFound":
		return true
	}
	return false
}
