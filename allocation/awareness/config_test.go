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

package awareness

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigCopiesInputs(t *testing.T) {
	attrs := []string{"zone"}
	groups := map[string][]string{"zone": {"a", "b"}}
	cfg := NewConfig(attrs, groups, nil)

	attrs[0] = "mutated"
	groups["zone"][0] = "mutated"

	s := cfg.Current()
	assert.Equal(t, []string{"zone"}, s.Attributes())
	assert.Equal(t, []string{"a", "b"}, s.ForcedValues("zone"))
	assert.Nil(t, s.ForcedValues("rack"))
}

func TestSettingsAccessorsCopy(t *testing.T) {
	cfg := NewConfig([]string{"zone", "rack"}, map[string][]string{"zone": {"a", "b"}}, nil)

	cfg.Current().Attributes()[0] = "mutated"
	cfg.Current().ForcedValues("zone")[0] = "mutated"

	s := cfg.Current()
	assert.Equal(t, []string{"zone", "rack"}, s.Attributes())
	assert.Equal(t, []string{"a", "b"}, s.ForcedValues("zone"))
}

func TestNewConfigDropsEmptyGroups(t *testing.T) {
	cfg := NewConfig([]string{"zone"}, map[string][]string{"zone": {}}, nil)
	assert.Nil(t, cfg.Current().ForcedValues("zone"))
}

func TestApplyNilAttributesLeavesList(t *testing.T) {
	cfg := NewConfig([]string{"zone"}, nil, nil)

	cfg.Apply(Update{ForcedGroups: map[string][]string{"zone": {"a"}}})
	s := cfg.Current()
	assert.Equal(t, []string{"zone"}, s.Attributes())
	assert.Equal(t, []string{"a"}, s.ForcedValues("zone"))
}

func TestApplyEmptyAttributesDisables(t *testing.T) {
	cfg := NewConfig([]string{"zone"}, nil, nil)

	cfg.Apply(Update{Attributes: []string{}})
	assert.Len(t, cfg.Current().Attributes(), 0)
}

func TestApplyForcedGroupsMerge(t *testing.T) {
	cfg := NewConfig([]string{"zone", "rack"}, map[string][]string{
		"zone": {"a", "b"},
		"rack": {"r1"},
	}, nil)

	cfg.Apply(Update{ForcedGroups: map[string][]string{
		"zone": {"a", "b", "c"}, // overwrites
		"rack": {},              // ignored, no removal path
	}})

	s := cfg.Current()
	assert.Equal(t, []string{"a", "b", "c"}, s.ForcedValues("zone"))
	assert.Equal(t, []string{"r1"}, s.ForcedValues("rack"))
}

func TestApplyRetainsUnmentionedGroups(t *testing.T) {
	cfg := NewConfig(nil, map[string][]string{"zone": {"a"}}, nil)

	cfg.Apply(Update{Attributes: []string{"zone", "rack"}})
	cfg.Apply(Update{ForcedGroups: map[string][]string{"rack": {"r1", "r2"}}})

	s := cfg.Current()
	assert.Equal(t, []string{"a"}, s.ForcedValues("zone"))
	assert.Equal(t, []string{"r1", "r2"}, s.ForcedValues("rack"))
}

func TestConcurrentApplyConsistentSnapshots(t *testing.T) {
	// two coherent configuration versions, concurrent readers must never
	// observe the attribute list of one paired with the forced values of
	// the other
	versionA := Update{
		Attributes:   []string{"zone"},
		ForcedGroups: map[string][]string{"zone": {"a", "b"}},
	}
	versionB := Update{
		Attributes:   []string{"zone", "rack"},
		ForcedGroups: map[string][]string{"zone": {"a", "b", "c"}},
	}

	cfg := NewConfig(versionA.Attributes, versionA.ForcedGroups, nil)

	var (
		torn int32
		done int32
		wg   sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if i%2 == 0 {
				cfg.Apply(versionB)
			} else {
				cfg.Apply(versionA)
			}
		}
		atomic.StoreInt32(&done, 1)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for atomic.LoadInt32(&done) == 0 {
				s := cfg.Current()
				forced := s.ForcedValues("zone")
				switch len(s.Attributes()) {
				case 1:
					if len(forced) != 2 {
						atomic.AddInt32(&torn, 1)
					}
				case 2:
					if len(forced) != 3 {
						atomic.AddInt32(&torn, 1)
					}
				default:
					atomic.AddInt32(&torn, 1)
				}
			}
		}()
	}

	wg.Wait()
	require.Zero(t, atomic.LoadInt32(&torn))
}
