package scraper

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/trendscraper/config"
	"github.com/use-agent/trendscraper/models"
)

func testLoginConfig() config.LoginConfig {
	return config.LoginConfig{
		LoginURL:              "https://x.test/i/flow/login",
		StepTimeout:           200 * time.Millisecond,
		NavigationTimeout:     time.Second,
		MaxTrends:             6,
		SkipOptionalSecondary: true,
	}
}

func newTestScraper(l Launcher, logs *bytes.Buffer) *Scraper {
	s := New(l, DefaultLocators(), testLoginConfig(), 1)
	if logs != nil {
		s.SetReporter(NewReporter(slog.New(slog.NewJSONHandler(logs, nil))))
	}
	return s
}

func TestScrape_Success(t *testing.T) {
	l := &fakeLauncher{newDOM: func() *fakeDOM {
		d := happyDOM("#A", "#B", "#C", "#D", "#E", "#F")
		d.set(DefaultLocators().Identifier, &fakeNode{appearAfter: 100 * time.Millisecond})
		return d
	}}
	s := newTestScraper(l, nil)

	res, err := s.Scrape(context.Background(), testCreds)
	require.NoError(t, err)
	assert.Equal(t, []string{"#A", "#B", "#C", "#D", "#E", "#F"}, res.Trends)
	assert.NotEmpty(t, res.RunID)
	assert.False(t, res.CapturedAt.IsZero())

	assert.Equal(t, int32(1), l.launches.Load())
	assert.Equal(t, int32(1), l.closes())
	assert.Equal(t, "navigate:https://x.test/i/flow/login", l.doms[0].Events()[0])

	stats := s.Stats()
	assert.Equal(t, 0, stats.ActiveSessions)
	assert.Equal(t, int64(1), stats.Launched)
	assert.Equal(t, int64(1), stats.Released)
}

func TestScrape_AcquireReleaseParity(t *testing.T) {
	locs := DefaultLocators()
	tests := []struct {
		name  string
		setup func(d *fakeDOM)
		code  string
	}{
		{"navigation fails", func(d *fakeDOM) { d.navErr = errBoom }, models.ErrCodeNavigation},
		{"identifier missing", func(d *fakeDOM) { d.set(locs.Identifier, &fakeNode{never: true}) }, models.ErrCodeLoginTimeout},
		{"secondary missing", func(d *fakeDOM) {
			d.set(locs.SecondaryIdentifier, &fakeNode{never: true})
			d.set(locs.Secret, &fakeNode{never: true})
		}, models.ErrCodeLoginTimeout},
		{"secret input fails", func(d *fakeDOM) { d.set(locs.Secret, &fakeNode{inputErr: errBoom}) }, models.ErrCodeLoginFailed},
		{"home missing", func(d *fakeDOM) { d.set(locs.Home, &fakeNode{never: true}) }, models.ErrCodeLoginTimeout},
		{"trends missing", func(d *fakeDOM) { d.set(locs.Trend, &fakeNode{never: true}) }, models.ErrCodeExtractTimeout},
		{"trends vanish", func(d *fakeDOM) { d.set(locs.Trend, &fakeNode{vanish: true}) }, models.ErrCodeExtractEmpty},
		{"trend text fails", func(d *fakeDOM) { d.set(locs.Trend, &fakeNode{textErr: errBoom}) }, models.ErrCodeExtractFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &fakeLauncher{newDOM: func() *fakeDOM {
				d := happyDOM("#A")
				tt.setup(d)
				return d
			}}
			s := newTestScraper(l, &bytes.Buffer{})

			_, err := s.Scrape(context.Background(), testCreds)
			require.Error(t, err)
			assert.Equal(t, tt.code, models.CodeOf(err))
			assert.Equal(t, int32(1), l.launches.Load())
			assert.Equal(t, int32(1), l.closes())
			assert.Equal(t, 0, s.Stats().ActiveSessions)
		})
	}
}

func TestScrape_LaunchFailure(t *testing.T) {
	l := &fakeLauncher{err: errBoom}
	s := newTestScraper(l, nil)

	_, err := s.Scrape(context.Background(), testCreds)
	assert.Equal(t, models.ErrCodeSession, models.CodeOf(err))
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, int64(0), s.Stats().Launched)
	assert.Equal(t, int64(0), s.Stats().Released)
}

func TestScrape_LaunchKeepsSessionError(t *testing.T) {
	launchErr := models.NewScrapeError(models.ErrCodeSession, "failed to launch browser", errBoom)
	s := newTestScraper(&fakeLauncher{err: launchErr}, nil)

	_, err := s.Scrape(context.Background(), testCreds)
	assert.Same(t, launchErr, err)
}

func TestScrape_HomeNeverAppears(t *testing.T) {
	l := &fakeLauncher{newDOM: func() *fakeDOM {
		d := happyDOM("#A")
		d.set(DefaultLocators().Home, &fakeNode{never: true})
		return d
	}}
	var logs bytes.Buffer
	s := newTestScraper(l, &logs)

	res, err := s.Scrape(context.Background(), testCreds)
	assert.Nil(t, res)
	assert.True(t, models.IsLoginTimeout(err, models.StepAwaitHome))
	assert.Equal(t, int32(1), l.closes())

	assert.Contains(t, logs.String(), `"step":"AwaitHome"`)
	assert.Contains(t, logs.String(), `"page_title":"Log in to X"`)
	assert.NotContains(t, l.doms[0].Events(), "wait:trend")
}

func TestScrape_ConcurrentInvocationsOwnSessions(t *testing.T) {
	l := &fakeLauncher{newDOM: func() *fakeDOM { return happyDOM("#A", "#B") }}
	s := New(l, DefaultLocators(), testLoginConfig(), 2)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.Scrape(context.Background(), testCreds)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(4), l.launches.Load())
	assert.Equal(t, int32(4), l.closes())
	for _, d := range l.doms {
		assert.Equal(t, int32(1), d.closed.Load())
	}
}

func TestScrape_CanceledWhileWaitingForSlot(t *testing.T) {
	l := &fakeLauncher{newDOM: func() *fakeDOM { return happyDOM("#A") }}
	s := newTestScraper(l, nil)
	require.NoError(t, s.sessions.Acquire(context.Background(), 1))
	defer s.sessions.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Scrape(ctx, testCreds)
	assert.Equal(t, models.ErrCodeSession, models.CodeOf(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, int32(0), l.launches.Load())
}

func TestScrape_TrendLimitNeverExceedsSix(t *testing.T) {
	l := &fakeLauncher{newDOM: func() *fakeDOM {
		return happyDOM("#A", "#B", "#C", "#D", "#E", "#F", "#G", "#H", "#I")
	}}
	cfg := testLoginConfig()
	cfg.MaxTrends = 9
	s := New(l, DefaultLocators(), cfg, 1)

	res, err := s.Scrape(context.Background(), testCreds)
	require.NoError(t, err)
	assert.Len(t, res.Trends, models.MaxExtractedTrends)
	assert.Equal(t, "#F", res.Trends[5])
}
