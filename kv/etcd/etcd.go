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

// Package etcd provides a kv.Store backed by etcd.
package etcd

import (
	"fmt"
	"sync"
	"time"

	"github.com/m3db/m3allocator/kv"

	"github.com/coreos/etcd/clientv3"
	"github.com/golang/protobuf/proto"
	xlog "github.com/m3db/m3x/log"
	xretry "github.com/m3db/m3x/retry"
	"golang.org/x/net/context"
)

var noopCancel func()

// NewStore returns a kv store backed by the given etcd client
func NewStore(client *clientv3.Client, opts Options) kv.Store {
	return newStore(client.KV, client.Watcher, opts)
}

func newStore(kvc clientv3.KV, watcher clientv3.Watcher, opts Options) kv.Store {
	return &store{
		opts:    opts,
		kv:      kvc,
		watcher: watcher,
		subs:    map[string]kv.ValueWatchable{},
		retrier: xretry.NewRetrier(opts.RetryOptions()),
		logger:  opts.InstrumentOptions().Logger(),
	}
}

type store struct {
	sync.Mutex

	opts    Options
	kv      clientv3.KV
	watcher clientv3.Watcher
	subs    map[string]kv.ValueWatchable
	retrier xretry.Retrier
	logger  xlog.Logger
}

func (s *store) Get(key string) (kv.Value, error) {
	ctx, cancel := s.context()
	defer cancel()

	r, err := s.kv.Get(ctx, s.opts.KeyFn()(key))
	if err != nil {
		return nil, err
	}

	if r.Count == 0 {
		return nil, kv.ErrNotFound
	}

	if r.Count > 1 {
		return nil, fmt.Errorf("received %d values for key %s, expecting 1", r.Count, key)
	}

	return kv.NewValue(r.Kvs[0].Value, int(r.Kvs[0].Version)), nil
}

func (s *store) Watch(key string) (kv.ValueWatch, error) {
	s.Lock()
	sub, ok := s.subs[key]
	if !ok {
		sub = kv.NewValueWatchable()
		s.subs[key] = sub

		// seed the watchable with the current value so a subscriber sees
		// the settings in effect without waiting for the first etcd event
		if err := s.refresh(sub, key); err != nil && err != kv.ErrNotFound {
			s.logger.Warnf("failed to fetch initial value for key %s: %v", key, err)
		}

		events := s.watcher.Watch(
			context.Background(),
			s.opts.KeyFn()(key),
			clientv3.WithProgressNotify(),
		)
		go s.watchUpdates(key, sub, events)
	}
	s.Unlock()

	_, w, err := sub.Watch()
	return w, err
}

func (s *store) watchUpdates(key string, sub kv.ValueWatchable, events clientv3.WatchChan) {
	checkIdle := time.Tick(s.opts.WatchChanCheckInterval())

	for {
		select {
		case r := <-events:
			if err := r.Err(); err != nil {
				s.logger.Errorf("received error on watch channel for key %s: %v", key, err)
			}

			// Get may fail transiently right after a notification, retry
			// rather than waiting for the next event.
			err := s.retrier.Attempt(func() error {
				err := s.refresh(sub, key)
				if err == kv.ErrNotFound {
					// a deleted key is not a settings transition, the last
					// observed value stays in effect
					return nil
				}
				return err
			})
			if err != nil {
				s.logger.Errorf("received notification for key %s, but failed to get value: %v", key, err)
			}
		case <-checkIdle:
			if s.reapIfIdle(key) {
				return
			}
		}
	}
}

// refresh pushes the stored value for the key into the watchable unless
// the watchable already holds that version or newer
func (s *store) refresh(sub kv.ValueWatchable, key string) error {
	v, err := s.Get(key)
	if err != nil {
		return err
	}

	if curr := sub.Get(); curr != nil && curr.Version() >= v.Version() {
		return nil
	}
	return sub.Update(v)
}

// reapIfIdle closes and removes the watchable for the key if nothing
// subscribes to it anymore, releasing the etcd watch goroutine
func (s *store) reapIfIdle(key string) bool {
	s.Lock()
	defer s.Unlock()

	sub, ok := s.subs[key]
	if !ok {
		s.logger.Warnf("unexpected: key %s is already cleaned up", key)
		return true
	}

	if sub.NumWatches() != 0 {
		return false
	}

	sub.Close()
	delete(s.subs, key)
	return true
}

func (s *store) Set(key string, v proto.Message) (int, error) {
	data, err := proto.Marshal(v)
	if err != nil {
		return 0, err
	}

	ctx, cancel := s.context()
	defer cancel()

	r, err := s.kv.Put(ctx, s.opts.KeyFn()(key), string(data), clientv3.WithPrevKV())
	if err != nil {
		return 0, err
	}

	if r.PrevKv == nil {
		return 1, nil
	}
	return int(r.PrevKv.Version + 1), nil
}

func (s *store) SetIfNotExists(key string, v proto.Message) (int, error) {
	version, err := s.putAtVersion(key, 0, v)
	if err == kv.ErrVersionMismatch {
		return 0, kv.ErrAlreadyExists
	}
	return version, err
}

func (s *store) CheckAndSet(key string, version int, v proto.Message) (int, error) {
	return s.putAtVersion(key, version, v)
}

// putAtVersion writes the value in a transaction conditional on the key
// sitting at the given version, version 0 meaning the key does not exist
func (s *store) putAtVersion(key string, version int, v proto.Message) (int, error) {
	data, err := proto.Marshal(v)
	if err != nil {
		return 0, err
	}

	ctx, cancel := s.context()
	defer cancel()

	etcdKey := s.opts.KeyFn()(key)
	r, err := s.kv.Txn(ctx).
		If(clientv3.Compare(clientv3.Version(etcdKey), "=", version)).
		Then(clientv3.OpPut(etcdKey, string(data))).
		Commit()
	if err != nil {
		return 0, err
	}
	if !r.Succeeded {
		return 0, kv.ErrVersionMismatch
	}

	return version + 1, nil
}

func (s *store) context() (context.Context, context.CancelFunc) {
	ctx := context.Background()
	cancel := noopCancel
	if timeout := s.opts.RequestTimeout(); timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	return ctx, cancel
}
