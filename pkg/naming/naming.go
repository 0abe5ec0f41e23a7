// Package naming derives every cloud resource identifier a deploy touches
// from the application name, target environment and version.
package naming

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/cuemby/fleetdeploy/pkg/types"
)

// Input holds the values names are derived from
type Input struct {
	App            string
	Environment    string
	Version        string
	DevEnvironment string
}

// Derive computes all resource names. now is only used for the launch
// template suffix in the development environment.
func Derive(in Input, now time.Time) types.Names {
	names := types.Names{
		Fleet:           Fleet(in.App, in.Environment),
		LaunchTemplate:  LaunchTemplate(in.App, in.Environment, in.Version),
		Image:           Image(in.App, in.Version),
		KeyPair:         in.App,
		LoadBalancer:    LoadBalancer(in.App, in.Environment),
		SecurityGroup:   SecurityGroup(in.App, in.Environment),
		InstanceProfile: InstanceProfile(in.App, in.Environment),
	}
	if in.Environment == in.DevEnvironment {
		names.LaunchTemplate = fmt.Sprintf("%s-%d", names.LaunchTemplate, now.UnixMilli())
	}
	return names
}

// Fleet returns the autoscaling group name: <app>-<env>
func Fleet(app, env string) string {
	return app + "-" + env
}

// LaunchTemplate returns the unsuffixed launch template name: <app>-<env>@<version>
func LaunchTemplate(app, env, version string) string {
	return Fleet(app, env) + "@" + version
}

// Image returns the image name: <app>@<version>
func Image(app, version string) string {
	return app + "@" + version
}

// LoadBalancer returns <app>-<env> with non-alphanumerics removed from app
func LoadBalancer(app, env string) string {
	stripped := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return -1
	}, app)
	return stripped + "-" + env
}

// SecurityGroup returns <APP>_<ENV>
func SecurityGroup(app, env string) string {
	return strings.ToUpper(app) + "_" + strings.ToUpper(env)
}

// InstanceProfile returns the instance profile / role name: <app>_<env>
func InstanceProfile(app, env string) string {
	return app + "_" + env
}
