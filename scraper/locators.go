package scraper

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/xpath"
	"github.com/goccy/go-yaml"
)

// By selects how a Locator's Selector is interpreted.
type By string

const (
	ByCSS   By = "css"
	ByXPath By = "xpath"
	// ByText matches elements selected by the CSS Selector whose visible
	// text equals Text exactly.
	ByText By = "text"
)

// Locator identifies a DOM element to wait for or interact with.
type Locator struct {
	Name     string `yaml:"-"`
	By       By     `yaml:"by"`
	Selector string `yaml:"selector"`
	Text     string `yaml:"text,omitempty"`
}

func (l Locator) String() string {
	if l.By == ByText {
		return fmt.Sprintf("%s(%s %q)", l.Name, l.Selector, l.Text)
	}
	return fmt.Sprintf("%s(%s)", l.Name, l.Selector)
}

// textPattern is the anchored JS regex used to match Text exactly.
func (l Locator) textPattern() string {
	return "^" + regexp.QuoteMeta(l.Text) + "$"
}

// Validate checks that the selector compiles for its kind.
func (l Locator) Validate() error {
	if l.Selector == "" {
		return fmt.Errorf("locator %s: empty selector", l.Name)
	}
	switch l.By {
	case ByCSS, "":
		if _, err := cascadia.Compile(l.Selector); err != nil {
			return fmt.Errorf("locator %s: invalid css %q: %w", l.Name, l.Selector, err)
		}
	case ByXPath:
		if _, err := xpath.Compile(l.Selector); err != nil {
			return fmt.Errorf("locator %s: invalid xpath %q: %w", l.Name, l.Selector, err)
		}
	case ByText:
		if l.Text == "" {
			return fmt.Errorf("locator %s: text locator needs text", l.Name)
		}
		if _, err := cascadia.Compile(l.Selector); err != nil {
			return fmt.Errorf("locator %s: invalid css %q: %w", l.Name, l.Selector, err)
		}
	default:
		return fmt.Errorf("locator %s: unknown kind %q", l.Name, l.By)
	}
	return nil
}

// Locators is the table of every element the flow touches. Keeping these as
// data means a markup change on the target site only touches this table.
type Locators struct {
	Identifier          Locator
	Next                Locator
	SecondaryIdentifier Locator
	Secret              Locator
	LogIn               Locator
	Home                Locator
	Trend               Locator
}

// DefaultLocators returns the locators observed on the live site.
func DefaultLocators() Locators {
	return Locators{
		Identifier:          Locator{Name: "identifier", By: ByCSS, Selector: `[autocomplete="username"]`},
		Next:                Locator{Name: "next", By: ByXPath, Selector: `//span[text()='Next']`},
		SecondaryIdentifier: Locator{Name: "secondary_identifier", By: ByCSS, Selector: `input[name="text"]:not([autocomplete="username"])`},
		Secret:              Locator{Name: "secret", By: ByCSS, Selector: `[autocomplete="current-password"]`},
		LogIn:               Locator{Name: "log_in", By: ByXPath, Selector: `//span[text()='Log in']`},
		Home:                Locator{Name: "home", By: ByCSS, Selector: `[aria-label="Home"]`},
		Trend:               Locator{Name: "trend", By: ByCSS, Selector: `[data-testid="trend"]`},
	}
}

func (t *Locators) byName() map[string]*Locator {
	return map[string]*Locator{
		"identifier":           &t.Identifier,
		"next":                 &t.Next,
		"secondary_identifier": &t.SecondaryIdentifier,
		"secret":               &t.Secret,
		"log_in":               &t.LogIn,
		"home":                 &t.Home,
		"trend":                &t.Trend,
	}
}

// Validate checks every locator in the table.
func (t Locators) Validate() error {
	var errs []error
	for _, l := range t.byName() {
		errs = append(errs, l.Validate())
	}
	return errors.Join(errs...)
}

// LoadLocators returns the default table with any entries from the YAML file
// at path applied on top. An empty path yields the defaults.
//
//	next:
//	  by: text
//	  selector: span
//	  text: Next
func LoadLocators(path string) (Locators, error) {
	table := DefaultLocators()
	if path == "" {
		return table, table.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Locators{}, fmt.Errorf("read locators file: %w", err)
	}
	if err := table.Apply(data); err != nil {
		return Locators{}, err
	}
	return table, table.Validate()
}

// Apply overrides entries of the table from YAML data keyed by locator name.
func (t *Locators) Apply(data []byte) error {
	var overrides map[string]Locator
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse locators: %w", err)
	}

	slots := t.byName()
	for name, l := range overrides {
		slot, ok := slots[name]
		if !ok {
			return fmt.Errorf("unknown locator %q", name)
		}
		if l.By == "" {
			l.By = ByCSS
		}
		l.Name = name
		*slot = l
	}
	return nil
}
