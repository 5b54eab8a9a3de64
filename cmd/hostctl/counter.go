package main

import (
	"context"
	"time"

	"github.com/wippyai/stickyhost/host"
)

const capCounter = "counter"

// counter is the built-in hosted object.
type counter struct {
	started time.Time
	calls   int
	site    host.Site
}

func newCounter() (*counter, error) {
	return &counter{}, nil
}

func (c *counter) InitialConstruct() error {
	c.started = time.Now()
	return nil
}

func (c *counter) QueryCapability(name string) bool {
	return name == capCounter
}

func (c *counter) SetSite(s host.Site) {
	c.site = s
}

func (c *counter) Inc() int {
	c.calls++
	return c.calls
}

func (c *counter) Uptime() time.Duration {
	return time.Since(c.started)
}

// Schedule posts n increments to the counter's own loop without waiting.
func (c *counter) Schedule(n int) error {
	for i := 0; i < n; i++ {
		if err := c.site.Post(func(context.Context) { c.Inc() }); err != nil {
			return err
		}
	}
	return nil
}
