package visual

import "strings"

// ChainState is the display state of a step's illustration.
type ChainState int

const (
	Loading ChainState = iota
	Loaded
	Unavailable
)

func (s ChainState) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Unavailable:
		return "unavailable"
	}
	return "loading"
}

// FallbackChain walks a step's illustration URLs in order. Once every URL
// has failed the chain is Unavailable and stays there.
type FallbackChain struct {
	urls  []string
	idx   int
	state ChainState
}

// NewFallbackChain builds a chain from the primary URL followed by the
// alternatives. Blank entries are skipped.
func NewFallbackChain(primary string, alternatives []string) *FallbackChain {
	c := &FallbackChain{}
	for _, u := range append([]string{primary}, alternatives...) {
		if strings.TrimSpace(u) != "" {
			c.urls = append(c.urls, u)
		}
	}
	if len(c.urls) == 0 {
		c.state = Unavailable
	}
	return c
}

// Current returns the URL being attempted. ok is false once Unavailable.
func (c *FallbackChain) Current() (u string, ok bool) {
	if c.state == Unavailable {
		return "", false
	}
	return c.urls[c.idx], true
}

// Fail records that the current URL did not load and advances. It returns
// the next URL, or ok=false when the chain is exhausted.
func (c *FallbackChain) Fail() (next string, ok bool) {
	if c.state == Unavailable {
		return "", false
	}
	if c.idx+1 >= len(c.urls) {
		c.state = Unavailable
		return "", false
	}
	c.idx++
	c.state = Loading
	return c.urls[c.idx], true
}

// Loaded marks the current URL as successfully displayed.
func (c *FallbackChain) Loaded() {
	if c.state != Unavailable {
		c.state = Loaded
	}
}

// State returns the chain's state.
func (c *FallbackChain) State() ChainState {
	return c.state
}

// Unavailable reports whether every URL has failed.
func (c *FallbackChain) Unavailable() bool {
	return c.state == Unavailable
}

// Len returns the number of URLs in the chain.
func (c *FallbackChain) Len() int {
	return len(c.urls)
}
