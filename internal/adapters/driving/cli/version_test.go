package cli

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragkit/internal/logger"
)

func withVersion(t *testing.T, v string) {
	t.Helper()
	saved := version
	version = v
	t.Cleanup(func() {
		version = saved
		verbose = false
		logger.SetVerbose(false)
		resetFlags(rootCmd)
	})
}

func TestVersionCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"plain", []string{"version"}, "ragkit 1.0.0-test\n"},
		{"verbose", []string{"version", "--verbose"},
			"ragkit 1.0.0-test (" + runtime.Version() + ", " + runtime.GOOS + "/" + runtime.GOARCH + ")\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withVersion(t, "1.0.0-test")
			out, err := runCLI(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	withVersion(t, "dev")
	_, err := runCLI(t, "version", "extra")
	assert.Error(t, err)
}

func TestSetVersion_IgnoresEmpty(t *testing.T) {
	withVersion(t, "dev")

	SetVersion("1.2.3")
	SetVersion("")
	assert.Equal(t, "1.2.3", version)
}
