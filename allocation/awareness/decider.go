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
	"github.com/m3db/m3allocator/allocation"
	"github.com/m3db/m3allocator/routing"

	"github.com/uber-go/tally"
)

// Decider is the awareness capacity decider. Attributes exposes the
// configured attribute list so other allocation logic can tell whether
// awareness balancing is active.
type Decider interface {
	allocation.Decider

	// Attributes returns the awareness attribute names currently in effect
	Attributes() []string
}

type deciderMetrics struct {
	allocateYes tally.Counter
	allocateNo  tally.Counter
	remainYes   tally.Counter
	remainNo    tally.Counter
}

func newDeciderMetrics(scope tally.Scope) deciderMetrics {
	return deciderMetrics{
		allocateYes: scope.Counter("allocate-yes"),
		allocateNo:  scope.Counter("allocate-no"),
		remainYes:   scope.Counter("remain-yes"),
		remainNo:    scope.Counter("remain-no"),
	}
}

type decider struct {
	cfg     Config
	metrics deciderMetrics
}

// NewDecider returns a Decider evaluating awareness capacity against the
// given config
func NewDecider(cfg Config, opts Options) Decider {
	if opts == nil {
		opts = NewOptions()
	}
	scope := opts.InstrumentOptions().MetricsScope().SubScope("awareness")
	return &decider{cfg: cfg, metrics: newDeciderMetrics(scope)}
}

func (d *decider) Attributes() []string {
	return d.cfg.Current().Attributes()
}

func (d *decider) CanAllocate(c routing.Copy, n routing.Node, s routing.Snapshot) allocation.Decision {
	if d.withinCapacity(c, n, s, true) {
		d.metrics.allocateYes.Inc(1)
		return allocation.DecisionYes
	}
	d.metrics.allocateNo.Inc(1)
	return allocation.DecisionNo
}

func (d *decider) CanRemain(c routing.Copy, n routing.Node, s routing.Snapshot) bool {
	if d.withinCapacity(c, n, s, false) {
		d.metrics.remainYes.Inc(1)
		return true
	}
	d.metrics.remainNo.Inc(1)
	return false
}

// withinCapacity checks every configured attribute dimension in order,
// the first failing dimension rejects the candidate. With moveToNode the
// candidate placement is simulated on top of the current distribution,
// without it the copy's current residency is checked as is.
func (d *decider) withinCapacity(c routing.Copy, n routing.Node, snap routing.Snapshot, moveToNode bool) bool {
	// Take one settings snapshot for the whole evaluation.
	cfg := d.cfg.Current()
	attributes := cfg.Attributes()
	if len(attributes) == 0 {
		return true
	}

	shardCount := snap.NumReplicas(c.ID().Index) + 1 // 1 for primary

	for _, attribute := range attributes {
		// every node in an awareness-governed placement must declare all
		// configured attributes, a node missing one is rejected until its
		// attributes are fixed
		nodeValue, ok := n.Attribute(attribute)
		if !ok {
			return false
		}

		// count the distinct attribute values in the cluster and the
		// started copies of this shard per attribute value, attributing a
		// relocating copy to the node it is moving to rather than the node
		// it still sits on
		valuesInCluster := make(map[string]struct{})
		copiesPerValue := make(map[string]int)
		for _, other := range snap.Nodes() {
			if v, ok := other.Attribute(attribute); ok {
				valuesInCluster[v] = struct{}{}
			}
			for _, cp := range other.Copies() {
				if cp.ID() != c.ID() {
					continue
				}
				switch {
				case cp.Relocating():
					if target := snap.Node(cp.RelocationTarget()); target != nil {
						if v, ok := target.Attribute(attribute); ok {
							copiesPerValue[v]++
						}
					}
				case cp.Started():
					if v, ok := other.Attribute(attribute); ok {
						copiesPerValue[v]++
					}
				}
			}
		}

		if moveToNode {
			if c.Assigned() {
				residentID := c.NodeID()
				if c.Relocating() {
					residentID = c.RelocationTarget()
				}
				if residentID != n.ID() {
					// moving between nodes, move the counts around as well
					if resident := snap.Node(residentID); resident != nil {
						if v, ok := resident.Attribute(attribute); ok {
							if _, counted := copiesPerValue[v]; counted {
								copiesPerValue[v]--
							} else {
								copiesPerValue[v] = 0
							}
						}
					}
					copiesPerValue[nodeValue]++
				}
			} else {
				copiesPerValue[nodeValue]++
			}
		}

		// forced values with no copies yet still count as slots to balance
		// across, so the allocator does not over-pack the values that do
		// exist while waiting for the rest to appear
		numValues := len(valuesInCluster)
		for _, forced := range cfg.ForcedValues(attribute) {
			if _, ok := copiesPerValue[forced]; !ok {
				numValues++
			}
		}

		required := shardCount / numValues
		leftover := shardCount % numValues
		if required == 0 {
			// more attribute values than copies, one copy per value and no
			// leftover
			required = 1
			leftover = 0
		}
		slack := 0
		if leftover != 0 {
			slack = 1
		}

		if copiesPerValue[nodeValue] > required+slack {
			return false
		}
	}

	return true
}
