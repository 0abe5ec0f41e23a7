package naming

import (
	"testing"
	"time"

	"github.com/cuemby/fleetdeploy/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestDerive(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	tests := []struct {
		name     string
		in       Input
		expected types.Names
	}{
		{
			name: "production",
			in:   Input{App: "app", Environment: "prod", Version: "1.2.0", DevEnvironment: "development"},
			expected: types.Names{
				Fleet:           "app-prod",
				LaunchTemplate:  "app-prod@1.2.0",
				Image:           "app@1.2.0",
				KeyPair:         "app",
				LoadBalancer:    "app-prod",
				SecurityGroup:   "APP_PROD",
				InstanceProfile: "app_prod",
			},
		},
		{
			name: "punctuation stripped from load balancer only",
			in:   Input{App: "my-web.app", Environment: "staging", Version: "2.0.1", DevEnvironment: "development"},
			expected: types.Names{
				Fleet:           "my-web.app-staging",
				LaunchTemplate:  "my-web.app-staging@2.0.1",
				Image:           "my-web.app@2.0.1",
				KeyPair:         "my-web.app",
				LoadBalancer:    "mywebapp-staging",
				SecurityGroup:   "MY-WEB.APP_STAGING",
				InstanceProfile: "my-web.app_staging",
			},
		},
		{
			name: "development suffix",
			in:   Input{App: "app", Environment: "development", Version: "1.2.0", DevEnvironment: "development"},
			expected: types.Names{
				Fleet:           "app-development",
				LaunchTemplate:  "app-development@1.2.0-1700000000123",
				Image:           "app@1.2.0",
				KeyPair:         "app",
				LoadBalancer:    "app-development",
				SecurityGroup:   "APP_DEVELOPMENT",
				InstanceProfile: "app_development",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Derive(tt.in, now))
		})
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	in := Input{App: "app", Environment: "prod", Version: "1.2.0", DevEnvironment: "development"}

	first := Derive(in, time.UnixMilli(1))
	second := Derive(in, time.UnixMilli(99999))

	assert.Equal(t, first, second)
}

func TestDeriveDevelopmentDiffersOnlyInSuffix(t *testing.T) {
	in := Input{App: "app", Environment: "development", Version: "1.2.0", DevEnvironment: "development"}

	first := Derive(in, time.UnixMilli(1000))
	second := Derive(in, time.UnixMilli(2000))

	assert.NotEqual(t, first.LaunchTemplate, second.LaunchTemplate)
	assert.Equal(t, "app-development@1.2.0-1000", first.LaunchTemplate)
	assert.Equal(t, "app-development@1.2.0-2000", second.LaunchTemplate)

	first.LaunchTemplate, second.LaunchTemplate = "", ""
	assert.Equal(t, first, second)
}
