package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addGlobalFlags(cmd.Flags())
	addDeployFlags(cmd.Flags())
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "billing.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app: billing\nenvironment: staging\nregion: eu-west-1\n"), 0o600))

	cmd := newTestCommand(t,
		"--config", path,
		"--env", "prod",
		"--version", "2.0.0",
		"--instance-class", "m5.large",
	)

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, "billing", cfg.App)
	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, "2.0.0", cfg.Version)
	assert.Equal(t, "m5.large", cfg.InstanceClass)
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, "BASE", cfg.BaseSecurityGroup)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigDefaultsWithoutFlags(t *testing.T) {
	cfg, err := loadConfig(newTestCommand(t))
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "development", cfg.DevEnvironment)
	assert.Error(t, cfg.Validate())
}
