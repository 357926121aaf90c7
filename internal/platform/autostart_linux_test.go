//go:build linux

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDesktopEntry(t *testing.T) {
	content := buildDesktopEntry(AutostartEntry{
		AppName:  "TimeTracker",
		ExecPath: "/opt/time tracker/timetracker",
		Args:     []string{HiddenFlag},
	})
	assert.Contains(t, content, "Name=TimeTracker\n")
	assert.Contains(t, content, `Exec="/opt/time tracker/timetracker" --hidden`)
}
