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

package etcd

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m3db/m3allocator/generated/proto/allocationpb"
	"github.com/m3db/m3allocator/kv"

	"github.com/coreos/etcd/clientv3"
	"github.com/coreos/etcd/etcdserver/etcdserverpb"
	"github.com/coreos/etcd/mvcc/mvccpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func testProto(values ...string) *allocationpb.StringArrayProto {
	return &allocationpb.StringArrayProto{Values: values}
}

func testStore() (kv.Store, *fakeKV, *fakeWatcher) {
	fkv := newFakeKV()
	fw := newFakeWatcher()
	return newStore(fkv, fw, NewOptions()), fkv, fw
}

func TestStoreGetNotFound(t *testing.T) {
	s, _, _ := testStore()
	_, err := s.Get("foo")
	assert.Equal(t, kv.ErrNotFound, err)
}

func TestStoreSetGetVersions(t *testing.T) {
	s, _, _ := testStore()

	version, err := s.Set("foo", testProto("bar"))
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	version, err = s.Set("foo", testProto("baz"))
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	v, err := s.Get("foo")
	require.NoError(t, err)
	assert.Equal(t, 2, v.Version())

	var p allocationpb.StringArrayProto
	require.NoError(t, v.Unmarshal(&p))
	assert.Equal(t, []string{"baz"}, p.Values)
}

func TestStoreSetIfNotExists(t *testing.T) {
	s, _, _ := testStore()

	version, err := s.SetIfNotExists("foo", testProto("bar"))
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	_, err = s.SetIfNotExists("foo", testProto("baz"))
	assert.Equal(t, kv.ErrAlreadyExists, err)
}

func TestStoreCheckAndSet(t *testing.T) {
	s, _, _ := testStore()

	_, err := s.CheckAndSet("foo", 1, testProto("bar"))
	assert.Equal(t, kv.ErrVersionMismatch, err)

	version, err := s.CheckAndSet("foo", 0, testProto("bar"))
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	version, err = s.CheckAndSet("foo", 1, testProto("baz"))
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	_, err = s.CheckAndSet("foo", 1, testProto("qux"))
	assert.Equal(t, kv.ErrVersionMismatch, err)
}

func TestStoreKeyFn(t *testing.T) {
	fkv := newFakeKV()
	opts := NewOptions().SetKeyFn(func(key string) string { return "settings/" + key })
	s := newStore(fkv, newFakeWatcher(), opts)

	_, err := s.Set("foo", testProto("bar"))
	require.NoError(t, err)

	fkv.Lock()
	_, mapped := fkv.kvs["settings/foo"]
	_, raw := fkv.kvs["foo"]
	fkv.Unlock()
	assert.True(t, mapped)
	assert.False(t, raw)

	v, err := s.Get("foo")
	require.NoError(t, err)
	assert.Equal(t, 1, v.Version())
}

func TestWatchSeedsCurrentValue(t *testing.T) {
	s, _, _ := testStore()

	_, err := s.Set("foo", testProto("bar"))
	require.NoError(t, err)

	w, err := s.Watch("foo")
	require.NoError(t, err)
	defer w.Close()

	// the current value is delivered without any etcd event
	select {
	case <-w.C():
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no initial notification received")
	}
	assert.Equal(t, 1, w.Get().Version())
}

func TestWatchNotification(t *testing.T) {
	s, _, fw := testStore()

	w, err := s.Watch("foo")
	require.NoError(t, err)
	defer w.Close()

	assert.Nil(t, w.Get())

	_, err = s.Set("foo", testProto("bar"))
	require.NoError(t, err)
	fw.notify()

	select {
	case <-w.C():
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no notification received")
	}
	assert.Equal(t, 1, w.Get().Version())
}

func TestWatchDeletedKeyKeepsValue(t *testing.T) {
	s, fkv, fw := testStore()

	_, err := s.Set("foo", testProto("bar"))
	require.NoError(t, err)

	w, err := s.Watch("foo")
	require.NoError(t, err)
	defer w.Close()
	<-w.C()
	require.Equal(t, 1, w.Get().Version())

	fkv.Lock()
	delete(fkv.kvs, "foo")
	fkv.Unlock()
	fw.notify()

	// the deletion must not clear or replace the last observed value
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, w.Get().Version())
}

// fakeKV implements clientv3.KV over a process-local map
type fakeKV struct {
	sync.Mutex

	kvs map[string]*mvccpb.KeyValue
}

func newFakeKV() *fakeKV {
	return &fakeKV{kvs: map[string]*mvccpb.KeyValue{}}
}

// putWithLock stores the value, bumps the version and returns the
// previous entry, it assumes the fake's lock is held
func (f *fakeKV) putWithLock(key, value string) *mvccpb.KeyValue {
	prev := f.kvs[key]
	version := int64(1)
	if prev != nil {
		version = prev.Version + 1
	}
	f.kvs[key] = &mvccpb.KeyValue{Key: []byte(key), Value: []byte(value), Version: version}
	return prev
}

func (f *fakeKV) Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	f.Lock()
	defer f.Unlock()

	r := &clientv3.GetResponse{}
	if entry, ok := f.kvs[key]; ok {
		r.Count = 1
		r.Kvs = []*mvccpb.KeyValue{entry}
	}
	return r, nil
}

func (f *fakeKV) Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	f.Lock()
	defer f.Unlock()

	return &clientv3.PutResponse{PrevKv: f.putWithLock(key, val)}, nil
}

func (f *fakeKV) Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error) {
	return nil, errors.New("not supported")
}

func (f *fakeKV) Compact(ctx context.Context, rev int64, opts ...clientv3.CompactOption) (*clientv3.CompactResponse, error) {
	return nil, errors.New("not supported")
}

func (f *fakeKV) Do(ctx context.Context, op clientv3.Op) (clientv3.OpResponse, error) {
	return clientv3.OpResponse{}, errors.New("not supported")
}

func (f *fakeKV) Txn(ctx context.Context) clientv3.Txn {
	return &fakeTxn{kv: f}
}

// fakeTxn evaluates version compares against the fake's map
type fakeTxn struct {
	kv   *fakeKV
	cmps []clientv3.Cmp
	ops  []clientv3.Op
}

func (t *fakeTxn) If(cs ...clientv3.Cmp) clientv3.Txn {
	t.cmps = append(t.cmps, cs...)
	return t
}

func (t *fakeTxn) Then(ops ...clientv3.Op) clientv3.Txn {
	t.ops = append(t.ops, ops...)
	return t
}

func (t *fakeTxn) Else(ops ...clientv3.Op) clientv3.Txn {
	return t
}

func (t *fakeTxn) Commit() (*clientv3.TxnResponse, error) {
	t.kv.Lock()
	defer t.kv.Unlock()

	for _, c := range t.cmps {
		cmp := etcdserverpb.Compare(c)
		curr := int64(0)
		if entry, ok := t.kv.kvs[string(cmp.Key)]; ok {
			curr = entry.Version
		}
		if curr != cmp.GetVersion() {
			return &clientv3.TxnResponse{Succeeded: false}, nil
		}
	}

	for _, op := range t.ops {
		t.kv.putWithLock(string(op.KeyBytes()), string(op.ValueBytes()))
	}
	return &clientv3.TxnResponse{Succeeded: true}, nil
}

// fakeWatcher implements clientv3.Watcher over a channel tests push
// notifications into
type fakeWatcher struct {
	ch chan clientv3.WatchResponse
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{ch: make(chan clientv3.WatchResponse, 16)}
}

func (w *fakeWatcher) Watch(ctx context.Context, key string, opts ...clientv3.OpOption) clientv3.WatchChan {
	return w.ch
}

func (w *fakeWatcher) Close() error { return nil }

func (w *fakeWatcher) notify() {
	w.ch <- clientv3.WatchResponse{}
}
