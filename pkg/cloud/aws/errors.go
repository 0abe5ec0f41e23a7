package aws

import (
	"errors"

	"github.com/aws/smithy-go"
	"github.com/cuemby/fleetdeploy/pkg/types"
)

// Error codes that mean the requested resource does not exist
var notFoundCodes = map[string]bool{
	"InvalidAMIID.NotFound":                       true,
	"InvalidAMIID.Unavailable":                    true,
	"InvalidSnapshot.NotFound":                    true,
	"InvalidLaunchTemplateName.NotFoundException": true,
	"InvalidLaunchTemplateId.NotFound":            true,
	"InvalidGroup.NotFound":                       true,
	"InvalidKeyPair.NotFound":                     true,
	"InvalidInstanceID.NotFound":                  true,
	"LoadBalancerNotFound":                        true,
	"NoSuchEntity":                                true,
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func isNotFound(err error) bool {
	return notFoundCodes[errorCode(err)]
}

// wrap converts an SDK error into the provider taxonomy. Missing resources
// become types.ErrNotFound; everything else is a *types.TransportError.
func wrap(service, op, resource string, err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return types.NotFoundf("%s %s: %v", op, resource, err)
	}
	return &types.TransportError{Service: service, Op: op, Err: err}
}
