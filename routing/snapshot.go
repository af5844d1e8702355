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

package routing

import (
	"encoding/json"
	"fmt"
	"sort"
)

// node implements Node
type node struct {
	id     string
	attrs  map[string]string
	copies []Copy
}

// NewNode returns a Node with the given attributes and assigned copies.
// Callers must not mutate the attribute map afterwards.
func NewNode(id string, attributes map[string]string, copies ...Copy) Node {
	return &node{id: id, attrs: attributes, copies: copies}
}

func (n *node) ID() string { return n.id }

func (n *node) Attribute(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

func (n *node) Attributes() map[string]string { return n.attrs }

func (n *node) Copies() []Copy { return n.copies }

// snapshot implements Snapshot
type snapshot struct {
	nodes    []Node
	byID     map[string]Node
	replicas map[string]int
}

// NewSnapshot returns a Snapshot over the given nodes and per-index
// replica counts
func NewSnapshot(nodes []Node, numReplicas map[string]int) Snapshot {
	byID := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID()] = n
	}
	return &snapshot{nodes: nodes, byID: byID, replicas: numReplicas}
}

func (s *snapshot) Nodes() []Node { return s.nodes }

func (s *snapshot) Node(id string) Node {
	if n, ok := s.byID[id]; ok {
		return n
	}
	return nil
}

func (s *snapshot) NumReplicas(index string) int { return s.replicas[index] }

// NewSnapshotFromJSON creates a Snapshot from JSON
func NewSnapshotFromJSON(data []byte) (Snapshot, error) {
	var sj snapshotJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return nil, err
	}
	return snapshotFromJSON(sj)
}

func (s *snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotToJSON(s))
}

type copyJSON struct {
	Index        string
	Shard        int
	Primary      bool
	State        string
	Node         string
	RelocatingTo string
}

type nodeJSON struct {
	ID         string
	Attributes map[string]string
	Copies     []copyJSON
}

type nodeJSONs []nodeJSON

func (nj nodeJSONs) Len() int           { return len(nj) }
func (nj nodeJSONs) Less(i, j int) bool { return nj[i].ID < nj[j].ID }
func (nj nodeJSONs) Swap(i, j int)      { nj[i], nj[j] = nj[j], nj[i] }

type snapshotJSON struct {
	Nodes       nodeJSONs
	NumReplicas map[string]int
}

func snapshotToJSON(s *snapshot) snapshotJSON {
	njs := make(nodeJSONs, 0, len(s.nodes))
	for _, n := range s.nodes {
		njs = append(njs, nodeToJSON(n))
	}
	sort.Sort(njs)
	return snapshotJSON{Nodes: njs, NumReplicas: s.replicas}
}

func nodeToJSON(n Node) nodeJSON {
	copies := n.Copies()
	cjs := make([]copyJSON, 0, len(copies))
	for _, c := range copies {
		cjs = append(cjs, copyJSON{
			Index:        c.ID().Index,
			Shard:        c.ID().Shard,
			Primary:      c.Primary(),
			State:        c.State().String(),
			Node:         c.NodeID(),
			RelocatingTo: c.RelocationTarget(),
		})
	}
	return nodeJSON{ID: n.ID(), Attributes: n.Attributes(), Copies: cjs}
}

func snapshotFromJSON(sj snapshotJSON) (Snapshot, error) {
	nodes := make([]Node, 0, len(sj.Nodes))
	for _, nj := range sj.Nodes {
		copies := make([]Copy, 0, len(nj.Copies))
		for _, cj := range nj.Copies {
			c, err := copyFromJSON(cj)
			if err != nil {
				return nil, err
			}
			copies = append(copies, c)
		}
		nodes = append(nodes, NewNode(nj.ID, nj.Attributes, copies...))
	}
	return NewSnapshot(nodes, sj.NumReplicas), nil
}

func copyFromJSON(cj copyJSON) (Copy, error) {
	c := NewCopy(ID{Index: cj.Index, Shard: cj.Shard}, cj.Primary)
	switch cj.State {
	case Unassigned.String():
	case Initializing.String():
		c = c.SetInitializing(cj.Node)
	case Started.String():
		c = c.SetStarted(cj.Node)
	case Relocating.String():
		c = c.SetStarted(cj.Node).SetRelocating(cj.RelocatingTo)
	default:
		return Copy{}, fmt.Errorf("invalid shard copy state %q", cj.State)
	}
	return c, nil
}
