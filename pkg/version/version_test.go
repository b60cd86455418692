package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	build := &debug.BuildInfo{
		Main:     debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "3f2a9c1d5e6b7a8c"}},
	}

	t.Run("Should prefer stamped values", func(t *testing.T) {
		info := resolve("v1.0.0", "abc1234", build)
		assert.Equal(t, Info{Version: "v1.0.0", Commit: "abc1234"}, info)
		assert.Equal(t, "v1.0.0 (abc1234)", info.String())
	})

	t.Run("Should fall back to embedded module data", func(t *testing.T) {
		info := resolve("", "", build)
		assert.Equal(t, "v0.3.1", info.Version)
		assert.Equal(t, "v0.3.1 (3f2a9c1)", info.String())
	})

	t.Run("Should report unknown for local builds", func(t *testing.T) {
		info := resolve("", "", &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
		assert.Equal(t, Info{Version: "unknown", Commit: "unknown"}, info)
		assert.Equal(t, "unknown", info.String())
	})
}
