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

// Package routing models the read-only view of cluster shard placement
// that allocation deciders evaluate against.
package routing

import "fmt"

// ID identifies a single shard of an index
type ID struct {
	Index string
	Shard int
}

func (id ID) String() string {
	return fmt.Sprintf("%s/%d", id.Index, id.Shard)
}

// State describes the placement lifecycle of a shard copy
type State int

const (
	// Unassigned means the copy is not placed on any node
	Unassigned State = iota

	// Initializing means the copy is being recovered on a node
	Initializing

	// Started means the copy is active on a node
	Started

	// Relocating means the copy is moving from its node to another node
	Relocating
)

func (s State) String() string {
	switch s {
	case Unassigned:
		return "unassigned"
	case Initializing:
		return "initializing"
	case Started:
		return "started"
	case Relocating:
		return "relocating"
	}
	return "unknown"
}

// Copy is one copy, primary or replica, of a shard. A Copy is an immutable
// value, the Set methods return an updated Copy.
type Copy struct {
	id       ID
	primary  bool
	state    State
	nodeID   string
	targetID string
}

// NewCopy returns an unassigned Copy of the given shard
func NewCopy(id ID, primary bool) Copy {
	return Copy{id: id, primary: primary}
}

// SetInitializing returns the Copy recovering onto the given node
func (c Copy) SetInitializing(nodeID string) Copy {
	c.state = Initializing
	c.nodeID = nodeID
	c.targetID = ""
	return c
}

// SetStarted returns the Copy active on the given node
func (c Copy) SetStarted(nodeID string) Copy {
	c.state = Started
	c.nodeID = nodeID
	c.targetID = ""
	return c
}

// SetRelocating returns the Copy moving from its current node to the
// given target node
func (c Copy) SetRelocating(targetNodeID string) Copy {
	c.state = Relocating
	c.targetID = targetNodeID
	return c
}

// ID returns the shard identity of the copy
func (c Copy) ID() ID { return c.id }

// Primary returns true if the copy is the primary of its shard
func (c Copy) Primary() bool { return c.primary }

// State returns the placement state of the copy
func (c Copy) State() State { return c.state }

// NodeID returns the node currently holding the copy, empty if unassigned
func (c Copy) NodeID() string { return c.nodeID }

// RelocationTarget returns the node the copy is moving to, empty unless
// the copy is relocating
func (c Copy) RelocationTarget() string { return c.targetID }

// Assigned returns true if the copy is placed on a node
func (c Copy) Assigned() bool { return c.state != Unassigned }

// Started returns true if the copy is active on its node
func (c Copy) Started() bool { return c.state == Started }

// Relocating returns true if the copy is moving between nodes
func (c Copy) Relocating() bool { return c.state == Relocating }

func (c Copy) String() string {
	role := "replica"
	if c.primary {
		role = "primary"
	}
	if c.state == Relocating {
		return fmt.Sprintf("[%s %s %s on %s -> %s]", c.id, role, c.state, c.nodeID, c.targetID)
	}
	return fmt.Sprintf("[%s %s %s on %s]", c.id, role, c.state, c.nodeID)
}

// Node is a cluster node carrying attributes and assigned shard copies
type Node interface {
	// ID returns the node id
	ID() string

	// Attribute returns the node's value for the named attribute
	Attribute(name string) (string, bool)

	// Attributes returns all attributes of the node
	Attributes() map[string]string

	// Copies returns the shard copies assigned to the node
	Copies() []Copy
}

// Snapshot is a stable view of cluster placement for the duration of one
// allocation decision. Implementations must not mutate mid evaluation.
type Snapshot interface {
	// Nodes returns all nodes in the cluster
	Nodes() []Node

	// Node returns the node with the given id, or nil
	Node(id string) Node

	// NumReplicas returns the configured replica count for the index
	NumReplicas(index string) int
}
