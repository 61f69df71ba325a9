//go:build darwin

package watcher

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strings"

	"timely/internal/domain"
)

// darwinWatcher reads the frontmost application and window title through
// System Events. Browser tab URLs are fetched for the browsers that expose
// them over AppleScript.
type darwinWatcher struct{}

func newPlatformWatcher() Watcher { return darwinWatcher{} }

const frontmostScript = `tell application "System Events"
	set frontApp to first application process whose frontmost is true
	set appName to name of frontApp
	set windowTitle to ""
	try
		set windowTitle to name of front window of frontApp
	end try
end tell
return appName & linefeed & windowTitle`

var browserTabScripts = map[string]string{
	"Safari":         `tell application "Safari" to return URL of front document`,
	"Google Chrome":  `tell application "Google Chrome" to return URL of active tab of front window`,
	"Arc":            `tell application "Arc" to return URL of active tab of front window`,
	"Brave Browser":  `tell application "Brave Browser" to return URL of active tab of front window`,
	"Microsoft Edge": `tell application "Microsoft Edge" to return URL of active tab of front window`,
}

func (darwinWatcher) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	out, err := exec.CommandContext(ctx, "osascript", "-e", frontmostScript).Output()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("query frontmost window: %w", err)
	}
	app, title, _ := strings.Cut(strings.TrimRight(string(out), "\n"), "\n")

	snap := domain.Snapshot{App: app, Title: title}
	if script, ok := browserTabScripts[app]; ok {
		if raw, err := exec.CommandContext(ctx, "osascript", "-e", script).Output(); err == nil {
			tabURL := strings.TrimSpace(string(raw))
			if parsed, err := url.Parse(tabURL); err == nil && parsed.Host != "" {
				host := strings.TrimPrefix(parsed.Hostname(), "www.")
				snap.URL = &tabURL
				snap.URLDomain = &host
			}
		}
	}
	return snap, nil
}
