package analyze

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectInfractions(t *testing.T) {
	t.Run("Should merge arguments with file lines", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "infractions.txt")
		content := "# inspection 2024-03\nMissing firestopping at rated wall\n\n  EMT not supported within 3 ft of box  \r\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		c := Cmd()
		require.NoError(t, c.Flags().Set("file", path))
		got, err := CollectInfractions(c, []string{"Voltage drop exceeds 3%"})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"Voltage drop exceeds 3%",
			"Missing firestopping at rated wall",
			"EMT not supported within 3 ft of box",
		}, got)
	})

	t.Run("Should read stdin for a dash", func(t *testing.T) {
		c := Cmd()
		c.SetIn(strings.NewReader("GFCI missing at kitchen counter\n"))
		require.NoError(t, c.Flags().Set("file", "-"))
		got, err := CollectInfractions(c, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"GFCI missing at kitchen counter"}, got)
	})

	t.Run("Should require at least one infraction", func(t *testing.T) {
		_, err := CollectInfractions(Cmd(), nil)
		assert.ErrorContains(t, err, "NO_INFRACTIONS")
	})
}
