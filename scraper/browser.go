package scraper

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/trendscraper/config"
	"github.com/use-agent/trendscraper/models"
)

// RodLauncher starts one Chromium process per session with a fixed
// capability profile.
type RodLauncher struct {
	cfg     config.BrowserConfig
	blocked map[proto.NetworkResourceType]struct{}
}

// NewRodLauncher creates a launcher for the given browser configuration.
func NewRodLauncher(cfg config.BrowserConfig) (*RodLauncher, error) {
	blocked, err := resourceSet(cfg.BlockedResourceTypes)
	if err != nil {
		return nil, err
	}
	return &RodLauncher{cfg: cfg, blocked: blocked}, nil
}

// newLauncher applies the capability flags. None of them vary per call.
func (r *RodLauncher) newLauncher() *launcher.Launcher {
	l := launcher.New().
		Headless(r.cfg.Headless).
		NoSandbox(true)

	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	if r.cfg.DebugPort > 0 {
		l.Set(flags.RemoteDebuggingPort, strconv.Itoa(r.cfg.DebugPort))
	}
	if r.cfg.BrowserBin != "" {
		l = l.Bin(r.cfg.BrowserBin)
	}
	return l
}

// Launch spawns the browser, connects to it and opens a blank page. A process
// that started but could not be connected to is killed before returning.
func (r *RodLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeSession, "launch canceled", err)
	}

	l := r.newLauncher()

	controlURL, err := l.Launch()
	if err != nil {
		teardown(l)
		return nil, models.NewScrapeError(
			models.ErrCodeSession,
			"failed to launch browser",
			err,
		)
	}
	slog.Debug("browser launched", "controlURL", controlURL, "pid", l.PID())

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		teardown(l)
		return nil, models.NewScrapeError(
			models.ErrCodeSession,
			"failed to connect to browser",
			err,
		)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		teardown(l)
		return nil, models.NewScrapeError(
			models.ErrCodeSession,
			"failed to open page",
			err,
		)
	}

	return &rodSession{
		launcher: l,
		browser:  browser,
		page:     page,
		hijack:   setupHijack(page, r.blocked),
	}, nil
}

// teardown kills the process and removes its profile dir. Cleanup blocks on
// process exit, so it is skipped when nothing was started.
func teardown(l *launcher.Launcher) {
	if l.PID() == 0 {
		return
	}
	l.Kill()
	l.Cleanup()
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	hijack   *rod.HijackRouter

	closeOnce sync.Once
	closeErr  error
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (s *rodSession) Find(ctx context.Context, loc Locator) (Element, error) {
	p := s.page.Context(ctx)

	var (
		el  *rod.Element
		err error
	)
	switch loc.By {
	case ByXPath:
		el, err = p.ElementX(loc.Selector)
	case ByText:
		el, err = p.ElementR(loc.Selector, loc.textPattern())
	default:
		el, err = p.Element(loc.Selector)
	}
	if err != nil {
		return nil, err
	}
	return &rodElement{el: el}, nil
}

func (s *rodSession) FindAny(ctx context.Context, locs ...Locator) (int, Element, error) {
	race := s.page.Context(ctx).Race()
	matched := -1
	for i, loc := range locs {
		switch loc.By {
		case ByXPath:
			race = race.ElementX(loc.Selector)
		case ByText:
			race = race.ElementR(loc.Selector, loc.textPattern())
		default:
			race = race.Element(loc.Selector)
		}
		race = race.Handle(func(*rod.Element) error {
			matched = i
			return nil
		})
	}

	el, err := race.Do()
	if err != nil {
		return -1, nil, err
	}
	return matched, &rodElement{el: el}, nil
}

func (s *rodSession) FindAll(ctx context.Context, loc Locator) ([]Element, error) {
	p := s.page.Context(ctx)

	var (
		els rod.Elements
		err error
	)
	switch loc.By {
	case ByXPath:
		els, err = p.ElementsX(loc.Selector)
	default:
		els, err = p.Elements(loc.Selector)
	}
	if err != nil {
		return nil, err
	}

	out := make([]Element, 0, len(els))
	for _, el := range els {
		if loc.By == ByText {
			txt, err := el.Text()
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(txt) != loc.Text {
				continue
			}
		}
		out = append(out, &rodElement{el: el})
	}
	return out, nil
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

// Close closes the CDP connection and kills the browser process. It is safe
// to call more than once.
func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		if s.hijack != nil {
			_ = s.hijack.Stop()
		}
		s.closeErr = s.browser.Close()
		teardown(s.launcher)
	})
	return s.closeErr
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Input(text string) error { return e.el.Input(text) }

func (e *rodElement) Click() error { return e.el.Click(proto.InputMouseButtonLeft, 1) }

func (e *rodElement) Text() (string, error) { return e.el.Text() }
