package browser

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/jmylchreest/classlist/internal/logger"
)

// chromeEnv overrides Chrome discovery when Config.ExecPath is empty.
const chromeEnv = "CHROME_PATH"

// chromeCandidates lists Chrome/Chromium binaries to try on goos, most
// specific first. Short names are resolved through PATH.
func chromeCandidates(goos string) []string {
	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser", "chrome"}
	switch goos {
	case "darwin":
		return append([]string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}, names...)
	case "windows":
		return append([]string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}, names...)
	default:
		return append(names, "/snap/bin/chromium")
	}
}

// resolveChromePath returns explicit when it names an executable, otherwise
// the discovered binary. An empty result with a nil error leaves the choice
// to chromedp.
func resolveChromePath(explicit string) (string, error) {
	if explicit != "" {
		path, err := exec.LookPath(explicit)
		if err != nil {
			return "", fmt.Errorf("chrome binary %q: %w", explicit, err)
		}
		return path, nil
	}

	candidates := chromeCandidates(runtime.GOOS)
	if env := os.Getenv(chromeEnv); env != "" {
		candidates = append([]string{env}, candidates...)
	}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			logger.Debug("found Chrome binary", "name", name, "path", path)
			return path, nil
		}
	}
	return "", fmt.Errorf("no Chrome binary found (set %s or browser.exec_path)", chromeEnv)
}
