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

// Package mem provides an in-process kv.Store for tests and embedding.
package mem

import (
	"sync"

	"github.com/m3db/m3allocator/kv"

	"github.com/golang/protobuf/proto"
)

// NewStore returns a new in-process kv store
func NewStore() kv.Store {
	return &store{
		values:     make(map[string]kv.Value),
		watchables: make(map[string]kv.ValueWatchable),
	}
}

// NewValue returns a kv.Value around the given proto at a version
func NewValue(version int, msg proto.Message) kv.Value {
	data, _ := proto.Marshal(msg)
	return kv.NewValue(data, version)
}

type store struct {
	sync.Mutex

	values     map[string]kv.Value
	watchables map[string]kv.ValueWatchable
}

func (s *store) Get(key string) (kv.Value, error) {
	s.Lock()
	defer s.Unlock()

	if v, ok := s.values[key]; ok {
		return v, nil
	}

	return nil, kv.ErrNotFound
}

func (s *store) Watch(key string) (kv.ValueWatch, error) {
	s.Lock()
	watchable, ok := s.watchables[key]
	if !ok {
		// A watch may be set up before the key exists, the first Set
		// notifies it.
		watchable = kv.NewValueWatchable()
		s.watchables[key] = watchable
	}
	s.Unlock()

	_, w, err := watchable.Watch()
	return w, err
}

func (s *store) Set(key string, v proto.Message) (int, error) {
	data, err := proto.Marshal(v)
	if err != nil {
		return 0, err
	}

	s.Lock()
	defer s.Unlock()

	version := 1
	if curr, ok := s.values[key]; ok {
		version = curr.Version() + 1
	}
	return version, s.updateWithLock(key, kv.NewValue(data, version))
}

func (s *store) SetIfNotExists(key string, v proto.Message) (int, error) {
	data, err := proto.Marshal(v)
	if err != nil {
		return 0, err
	}

	s.Lock()
	defer s.Unlock()

	if _, ok := s.values[key]; ok {
		return 0, kv.ErrAlreadyExists
	}
	return 1, s.updateWithLock(key, kv.NewValue(data, 1))
}

func (s *store) CheckAndSet(key string, version int, v proto.Message) (int, error) {
	data, err := proto.Marshal(v)
	if err != nil {
		return 0, err
	}

	s.Lock()
	defer s.Unlock()

	currVersion := 0
	if curr, ok := s.values[key]; ok {
		currVersion = curr.Version()
	}
	if currVersion != version {
		return 0, kv.ErrVersionMismatch
	}
	return version + 1, s.updateWithLock(key, kv.NewValue(data, version+1))
}

// updateWithLock stores the value and notifies any watches, it assumes the
// store lock is held.
func (s *store) updateWithLock(key string, v kv.Value) error {
	s.values[key] = v
	if watchable, ok := s.watchables[key]; ok {
		return watchable.Update(v)
	}
	return nil
}
