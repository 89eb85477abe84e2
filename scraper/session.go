package scraper

import "context"

// Element is a DOM node located in a Session.
type Element interface {
	// Input focuses the element and types text into it.
	Input(text string) error
	// Click clicks the element with the left mouse button.
	Click() error
	// Text returns the element's visible text.
	Text() (string, error)
}

// Session is an owned handle to one browser process. It is used by exactly
// one scrape and closed before that scrape returns.
type Session interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// Find blocks until an element matching loc is present or ctx is done.
	Find(ctx context.Context, loc Locator) (Element, error)

	// FindAny blocks until one of locs matches and returns its index.
	FindAny(ctx context.Context, locs ...Locator) (int, Element, error)

	// FindAll returns the current matches for loc in DOM order without waiting.
	FindAll(ctx context.Context, loc Locator) ([]Element, error)

	// HTML returns the full markup of the current page.
	HTML(ctx context.Context) (string, error)

	// Close terminates the browser process.
	Close() error
}

// Launcher starts browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}
