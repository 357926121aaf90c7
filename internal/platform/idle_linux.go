package platform

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	mutterIdleService = "org.gnome.Mutter.IdleMonitor"
	mutterIdlePath    = "/org/gnome/Mutter/IdleMonitor/Core"
	mutterIdleMethod  = mutterIdleService + ".GetIdletime"
)

// xprintidleProvider shells out to xprintidle on X11 sessions.
type xprintidleProvider struct {
	path string
}

// mutterIdleProvider asks GNOME's idle monitor over the session bus. It is the
// only portable source on Wayland, where X11 idle counters are not exposed.
type mutterIdleProvider struct {
	object dbus.BusObject
}

func newIdleProvider() IdleProvider {
	if provider, ok := newMutterIdleProvider(); ok {
		return provider
	}
	if strings.EqualFold(os.Getenv("XDG_SESSION_TYPE"), "wayland") && os.Getenv("DISPLAY") == "" {
		return unsupportedIdleProvider{}
	}
	path, err := exec.LookPath("xprintidle")
	if err != nil {
		return unsupportedIdleProvider{}
	}
	return &xprintidleProvider{path: path}
}

func newMutterIdleProvider() (IdleProvider, bool) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, false
	}
	provider := &mutterIdleProvider{object: conn.Object(mutterIdleService, dbus.ObjectPath(mutterIdlePath))}
	if _, err := provider.IdleDuration(); err != nil {
		return nil, false
	}
	return provider, true
}

func (provider *mutterIdleProvider) IdleDuration() (time.Duration, error) {
	var idleMillis uint64
	if err := provider.object.Call(mutterIdleMethod, 0).Store(&idleMillis); err != nil {
		return 0, fmt.Errorf("mutter idle monitor: %w", err)
	}
	return clampIdle(time.Duration(idleMillis) * time.Millisecond), nil
}

func (provider *xprintidleProvider) IdleDuration() (time.Duration, error) {
	output, err := exec.Command(provider.path).Output()
	if err != nil {
		return 0, fmt.Errorf("xprintidle: %w", err)
	}
	return parseIdleMillis(string(output))
}
