package tracker

import "sync"

// PathObserver turns route changes into pageviews. It recomputes the full
// path (base path plus query string) on every change and opens a new
// pageview only when the composed path actually differs from the previous
// one, so benign re-notifications never duplicate page_start events.
type PathObserver struct {
	client *Client

	mu   sync.Mutex
	prev string
	stop func()
}

func NewPathObserver(client *Client) *PathObserver {
	return &PathObserver{client: client}
}

// Observe records the current route. Closing the previous pageview before
// opening the next keeps start/end records strictly bracketed.
func (o *PathObserver) Observe(path, query string) {
	full := path
	if query != "" {
		full += "?" + query
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if full == o.prev {
		return
	}
	if o.stop != nil {
		o.stop()
	}
	o.stop = o.client.Pageview(full)
	o.prev = full
}

// Close ends the currently open pageview, if any.
func (o *PathObserver) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stop != nil {
		o.stop()
		o.stop = nil
	}
}
