package spawn

import (
	"testing"

	"codeberg.org/mutker/tweakctl/internal/errors"
	"codeberg.org/mutker/tweakctl/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartMissingExecutable(t *testing.T) {
	err := New(logger.Nop()).Start(Command{Name: "/nonexistent/tweakctl-backend"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrSpawnFailed, errors.CodeOf(err))
}

func TestElevated(t *testing.T) {
	c := Elevated(Command{Name: "bash", Args: []string{"/vendors/set_fan.sh", "40"}})
	assert.Equal(t, "sudo", c.Name)
	assert.Equal(t, []string{"-n", "bash", "/vendors/set_fan.sh", "40"}, c.Args)

	c = Elevated(Command{
		Name: "nvidia-settings",
		Args: []string{"-a", "[fan:0]/GPUTargetFanSpeed=40"},
		Env:  []string{"DISPLAY=:0"},
	})
	assert.Equal(t, []string{"-n", "--preserve-env=DISPLAY", "nvidia-settings", "-a", "[fan:0]/GPUTargetFanSpeed=40"}, c.Args)
	assert.Equal(t, []string{"DISPLAY=:0"}, c.Env)
	assert.Equal(t, "sudo -n --preserve-env=DISPLAY nvidia-settings -a [fan:0]/GPUTargetFanSpeed=40", c.String())
}
