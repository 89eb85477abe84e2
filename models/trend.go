package models

import (
	"log/slog"
	"time"
)

// TrendSlots is the number of trend columns a persisted record carries.
const TrendSlots = 5

// MaxExtractedTrends caps how many trend entries a scrape reads from the page.
const MaxExtractedTrends = 6

// LoginStep is one stage of the scripted login flow.
type LoginStep string

const (
	StepEnterIdentifier          LoginStep = "EnterIdentifier"
	StepEnterSecondaryIdentifier LoginStep = "EnterSecondaryIdentifier"
	StepEnterSecret              LoginStep = "EnterSecret"
	StepAwaitHome                LoginStep = "AwaitHome"
)

// LoginSteps lists the stages in the order they are executed.
var LoginSteps = []LoginStep{
	StepEnterIdentifier,
	StepEnterSecondaryIdentifier,
	StepEnterSecret,
	StepAwaitHome,
}

// Credentials is the login triple for the automation account. Values are
// injected at configuration time and never persisted or logged.
type Credentials struct {
	Identifier          string
	SecondaryIdentifier string
	Secret              string
}

// Complete reports whether every field needed by the login flow is set.
func (c Credentials) Complete() bool {
	return c.Identifier != "" && c.SecondaryIdentifier != "" && c.Secret != ""
}

func (c Credentials) String() string { return "Credentials{redacted}" }

// LogValue keeps credentials out of structured logs.
func (c Credentials) LogValue() slog.Value { return slog.StringValue("redacted") }

// TrendRecord is the persisted shape of one scrape. Slots beyond the number of
// trends extracted are nil.
type TrendRecord struct {
	ID        string    `json:"id"`
	Trend1    *string   `json:"trend_1"`
	Trend2    *string   `json:"trend_2"`
	Trend3    *string   `json:"trend_3"`
	Trend4    *string   `json:"trend_4"`
	Trend5    *string   `json:"trend_5"`
	Timestamp time.Time `json:"timestamp"`
	IPAddress *string   `json:"ip_address,omitempty"`
}

// NewTrendRecord fills the five trend slots from trends in order. Anything
// past the fifth entry is dropped. The timestamp is kept in UTC at
// microsecond precision, the finest every store backend can hold.
func NewTrendRecord(id string, trends []string, ts time.Time) *TrendRecord {
	var slots [TrendSlots]*string
	for i := 0; i < TrendSlots && i < len(trends); i++ {
		v := trends[i]
		slots[i] = &v
	}
	r := &TrendRecord{ID: id, Timestamp: ts.UTC().Truncate(time.Microsecond)}
	r.SetSlots(slots)
	return r
}

// Slots returns the trend columns in order.
func (r *TrendRecord) Slots() [TrendSlots]*string {
	return [TrendSlots]*string{r.Trend1, r.Trend2, r.Trend3, r.Trend4, r.Trend5}
}

// SetSlots assigns the trend columns in order.
func (r *TrendRecord) SetSlots(s [TrendSlots]*string) {
	r.Trend1, r.Trend2, r.Trend3, r.Trend4, r.Trend5 = s[0], s[1], s[2], s[3], s[4]
}

// Trends returns the non-nil trend values in slot order.
func (r *TrendRecord) Trends() []string {
	out := make([]string, 0, TrendSlots)
	for _, s := range r.Slots() {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}
