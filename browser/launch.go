package browser

import (
	"math/rand"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/stealth"
	"github.com/use-agent/iwsa/config"
	"github.com/use-agent/iwsa/models"
)

// stealthJS is injected on every new page on top of go-rod/stealth's own
// patches. It adds only a sub-pixel canvas-fingerprint noise term (spec §4.6);
// it masks no further automation markers.
const stealthJS = `(() => {
  const origToDataURL = HTMLCanvasElement.prototype.toDataURL;
  HTMLCanvasElement.prototype.toDataURL = function(...args) {
    const ctx = this.getContext('2d');
    if (ctx) {
      const imageData = ctx.getImageData(0, 0, this.width, this.height);
      for (let i = 0; i < imageData.data.length; i += 4) {
        imageData.data[i] = imageData.data[i] ^ (Math.random() < 0.001 ? 1 : 0);
      }
      ctx.putImageData(imageData, 0, 0);
    }
    return origToDataURL.apply(this, args);
  };
})();`

// pickUserAgent returns a randomized entry from the configured UA pool,
// falling back to a single stable default when the pool is empty.
func pickUserAgent(pool []string) string {
	if len(pool) == 0 {
		return "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	}
	return pool[rand.Intn(len(pool))]
}

// pickProxy round-robins through a proxy pool by call count; empty pool means no proxy.
func pickProxy(pool []string, callCount int) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[callCount%len(pool)]
}

// launch starts one new headless browser process with a fresh stealth page,
// applying the same anti-automation flag set per-instance instead of once
// for the whole process.
func launch(cfg config.BrowserConfig, userAgent, proxy string) (*rod.Browser, *rod.Page, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	effectiveProxy := proxy
	if effectiveProxy == "" {
		effectiveProxy = cfg.DefaultProxy
	}
	if effectiveProxy != "" {
		l = l.Proxy(effectiveProxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser instance", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to browser instance", err)
	}

	page, err := stealth.Page(b)
	if err != nil {
		b.MustClose()
		return nil, nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to open stealth page", err)
	}
	if err := page.SetUserAgent(&rod.UserAgentOptions{UserAgent: userAgent}); err != nil {
		b.MustClose()
		return nil, nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to set user agent", err)
	}
	if _, err := page.EvalOnNewDocument(stealthJS); err != nil {
		b.MustClose()
		return nil, nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to inject stealth script", err)
	}

	return b, page, nil
}
