package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/trendscraper/models"
)

// LoginOptions tunes the login flow.
type LoginOptions struct {
	// StepTimeout bounds each stage: its wait plus its interactions.
	StepTimeout time.Duration

	// SkipOptionalSecondary races the secondary identifier input against the
	// password input and skips the checkpoint when the password prompt wins.
	SkipOptionalSecondary bool
}

// Login replays the site's credential flow:
//
//	EnterIdentifier → EnterSecondaryIdentifier → EnterSecret → AwaitHome
//
// Each stage waits for its locator within StepTimeout. Any failure ends the
// flow with a LoginError naming the stage; nothing is retried.
func Login(ctx context.Context, sess Session, locs Locators, creds models.Credentials, opts LoginOptions) error {
	q := &sequencer{sess: sess, locs: locs, creds: creds, opts: opts}

	step := models.StepEnterIdentifier
	for step != "" {
		next, err := q.run(ctx, step)
		if err != nil {
			return err
		}
		slog.Debug("login step complete", "step", step)
		step = next
	}
	return nil
}

type sequencer struct {
	sess  Session
	locs  Locators
	creds models.Credentials
	opts  LoginOptions
}

// run executes one stage under its own deadline and returns the next stage.
// The empty step means the flow is done.
func (q *sequencer) run(ctx context.Context, step models.LoginStep) (models.LoginStep, error) {
	ctx, cancel := context.WithTimeout(ctx, q.opts.StepTimeout)
	defer cancel()

	switch step {
	case models.StepEnterIdentifier:
		if err := q.fill(ctx, step, q.locs.Identifier, q.creds.Identifier, q.locs.Next); err != nil {
			return "", err
		}
		return models.StepEnterSecondaryIdentifier, nil

	case models.StepEnterSecondaryIdentifier:
		if q.opts.SkipOptionalSecondary {
			idx, _, err := q.sess.FindAny(ctx, q.locs.SecondaryIdentifier, q.locs.Secret)
			if err != nil {
				return "", q.waitErr(step, q.locs.SecondaryIdentifier, err)
			}
			if idx == 1 {
				slog.Info("secondary identifier checkpoint not presented, skipping")
				return models.StepEnterSecret, nil
			}
		}
		if err := q.fill(ctx, step, q.locs.SecondaryIdentifier, q.creds.SecondaryIdentifier, q.locs.Next); err != nil {
			return "", err
		}
		return models.StepEnterSecret, nil

	case models.StepEnterSecret:
		if err := q.fill(ctx, step, q.locs.Secret, q.creds.Secret, q.locs.LogIn); err != nil {
			return "", err
		}
		return models.StepAwaitHome, nil

	case models.StepAwaitHome:
		if _, err := q.sess.Find(ctx, q.locs.Home); err != nil {
			return "", q.waitErr(step, q.locs.Home, err)
		}
		return "", nil
	}
	return "", fmt.Errorf("unknown login step %q", step)
}

// fill waits for input, types value into it and clicks submit.
func (q *sequencer) fill(ctx context.Context, step models.LoginStep, input Locator, value string, submit Locator) error {
	el, err := q.sess.Find(ctx, input)
	if err != nil {
		return q.waitErr(step, input, err)
	}
	if err := el.Input(value); err != nil {
		return models.NewLoginError(step, fmt.Sprintf("typing into %s failed", input.Name), err)
	}

	btn, err := q.sess.Find(ctx, submit)
	if err != nil {
		return q.waitErr(step, submit, err)
	}
	if err := btn.Click(); err != nil {
		return models.NewLoginError(step, fmt.Sprintf("clicking %s failed", submit.Name), err)
	}
	return nil
}

func (q *sequencer) waitErr(step models.LoginStep, loc Locator, err error) error {
	return models.NewLoginError(
		step,
		fmt.Sprintf("%s did not appear within %s", loc, q.opts.StepTimeout),
		err,
	)
}
