package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	old := [3]string{Version, GitCommit, BuildTime}
	t.Cleanup(func() { Version, GitCommit, BuildTime = old[0], old[1], old[2] })

	Version, GitCommit, BuildTime = "1.2.3", "abc123", "2024-05-01"
	assert.Equal(t, "v1.2.3 (abc123, built 2024-05-01)", String())
}
