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

// Package allocation defines the admission contract the shard allocator
// consults for every (shard copy, node) candidate.
package allocation

import (
	"github.com/m3db/m3allocator/routing"
)

// Decision is the verdict for a single allocation candidate
type Decision int

const (
	// DecisionNo rejects the candidate, the allocator should try another
	// node or defer the placement
	DecisionNo Decision = iota

	// DecisionYes admits the candidate
	DecisionYes
)

func (d Decision) String() string {
	if d == DecisionYes {
		return "yes"
	}
	return "no"
}

// Decider answers whether a shard copy may be placed on, or remain on, a
// node. Deciders are pure functions of their inputs and compose
// conjunctively with other deciders in the allocator loop.
type Decider interface {
	// CanAllocate returns whether the copy may be placed on the node,
	// given the cluster snapshot
	CanAllocate(c routing.Copy, n routing.Node, s routing.Snapshot) Decision

	// CanRemain returns whether the copy may keep its current residency
	// on the node
	CanRemain(c routing.Copy, n routing.Node, s routing.Snapshot) bool
}
