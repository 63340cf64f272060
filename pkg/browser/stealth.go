package browser

import (
	"context"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// stealthScript hides the most common automation fingerprints before any
// page script runs.
const stealthScript = `
(function() {
    Object.defineProperty(navigator, 'webdriver', { get: () => undefined, configurable: true });
    delete Object.getPrototypeOf(navigator).webdriver;

    Object.defineProperty(navigator, 'languages', {
        get: () => Object.freeze(['en-GB', 'en']),
        configurable: true
    });

    if (navigator.plugins.length === 0) {
        const plugins = [{ name: 'Chrome PDF Viewer', filename: 'internal-pdf-viewer' }];
        Object.defineProperty(navigator, 'plugins', { get: () => plugins, configurable: true });
    }

    if (!window.chrome) {
        Object.defineProperty(window, 'chrome', { value: {}, writable: true, configurable: false });
    }
    if (!window.chrome.runtime) {
        window.chrome.runtime = { connect: function() {}, sendMessage: function() {} };
    }

    const query = Permissions.prototype.query;
    Permissions.prototype.query = function(params) {
        if (params.name === 'notifications') {
            return Promise.resolve({ state: Notification.permission });
        }
        return query.call(this, params);
    };
})();
`

// stealthFlags are extra Chrome switches that remove automation indicators.
func stealthFlags() map[string]any {
	return map[string]any{
		"excludeSwitches":                     "enable-automation",
		"useAutomationExtension":              false,
		"disable-features":                    "IsolateOrigins,site-per-process",
		"disable-plugins-discovery":           true,
		"disable-background-timer-throttling": true,
		"disable-renderer-backgrounding":      true,
		"lang":                                "en-GB,en",
	}
}

// injectStealthScript registers stealthScript for every new document. It
// must run before navigation.
func injectStealthScript() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
		return err
	})
}
