// Copyright (c) 2019 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package awareness spreads shard copies across failure domains identified
// by node attributes, e.g. zone or rack.
package awareness

import (
	"sync"
	"sync/atomic"

	xlog "github.com/m3db/m3x/log"
)

// Settings is an immutable snapshot of awareness configuration. A decision
// takes one Settings at entry and uses it throughout, so a concurrent
// reload can never mix attribute lists and forced groups from different
// generations.
type Settings interface {
	// Attributes returns the awareness attribute names in configured
	// order. Empty means awareness balancing is disabled.
	Attributes() []string

	// ForcedValues returns the forced value set for the attribute, or nil
	// if none is configured
	ForcedValues(attribute string) []string
}

// Update is a dynamic change to awareness configuration. Attributes and
// forced groups can be updated independently.
type Update struct {
	// Attributes replaces the attribute list when non-nil. A non-nil
	// empty list disables awareness balancing.
	Attributes []string

	// ForcedGroups merges into the forced groups: attributes named with a
	// non-empty value set overwrite their entry, existing entries not
	// named are retained. There is no removal path.
	ForcedGroups map[string][]string
}

// Config holds the awareness settings in effect and accepts dynamic
// updates from the configuration collaborator
type Config interface {
	// Current returns the settings in effect
	Current() Settings

	// Apply merges the update into the current settings and atomically
	// publishes the result
	Apply(u Update)
}

type settings struct {
	attributes []string
	forced     map[string][]string
}

// accessors return copies so a caller cannot mutate a published snapshot

func (s *settings) Attributes() []string { return cloneStrings(s.attributes) }

func (s *settings) ForcedValues(attribute string) []string { return cloneStrings(s.forced[attribute]) }

type config struct {
	mtx    sync.Mutex // serializes Apply
	curr   atomic.Value
	logger xlog.Logger
}

// NewConfig returns a Config with the given initial attributes and forced
// value groups
func NewConfig(attributes []string, forcedGroups map[string][]string, opts Options) Config {
	if opts == nil {
		opts = NewOptions()
	}
	c := &config{logger: opts.InstrumentOptions().Logger()}
	c.curr.Store(newSettings(attributes, forcedGroups))
	return c
}

func newSettings(attributes []string, forcedGroups map[string][]string) *settings {
	s := &settings{
		attributes: cloneStrings(attributes),
		forced:     make(map[string][]string, len(forcedGroups)),
	}
	for name, values := range forcedGroups {
		if len(values) > 0 {
			s.forced[name] = cloneStrings(values)
		}
	}
	return s
}

func (c *config) Current() Settings {
	return c.curr.Load().(*settings)
}

func (c *config) Apply(u Update) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	curr := c.curr.Load().(*settings)
	next := &settings{attributes: curr.attributes, forced: curr.forced}

	if u.Attributes != nil {
		c.logger.Infof("updating awareness attributes from %v to %v", curr.attributes, u.Attributes)
		next.attributes = cloneStrings(u.Attributes)
	}

	if len(u.ForcedGroups) > 0 {
		forced := make(map[string][]string, len(curr.forced)+len(u.ForcedGroups))
		for name, values := range curr.forced {
			forced[name] = values
		}
		for name, values := range u.ForcedGroups {
			if len(values) > 0 {
				forced[name] = cloneStrings(values)
			}
		}
		next.forced = forced
	}

	c.curr.Store(next)
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	cloned := make([]string, len(values))
	copy(cloned, values)
	return cloned
}
