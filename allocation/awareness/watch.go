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
	"errors"

	"github.com/m3db/m3allocator/generated/proto/allocationpb"
	"github.com/m3db/m3allocator/kv"

	xlog "github.com/m3db/m3x/log"
)

var errNilStore = errors.New("kv store is nil")

// Watch subscribes to dynamic awareness settings stored under key and
// applies every update to cfg. The returned watch can be closed to stop
// receiving updates.
func Watch(store kv.Store, key string, cfg Config, opts Options) (kv.ValueWatch, error) {
	if store == nil {
		return nil, errNilStore
	}
	if opts == nil {
		opts = NewOptions()
	}
	logger := opts.InstrumentOptions().Logger()

	w, err := store.Watch(key)
	if err != nil {
		return nil, err
	}

	go func() {
		for range w.C() {
			applyValue(cfg, key, w.Get(), logger)
		}
	}()

	return w, nil
}

func applyValue(cfg Config, key string, v kv.Value, logger xlog.Logger) {
	if v == nil {
		// a deleted key does not unset awareness settings, forced groups
		// are additive-only and the attribute list keeps its last value
		logger.Warnf("nil value for key %s, keeping current awareness settings", key)
		return
	}

	var update allocationpb.AwarenessProto
	if err := v.Unmarshal(&update); err != nil {
		logger.Errorf("invalid awareness settings for key %s version %d: %v", key, v.Version(), err)
		return
	}

	cfg.Apply(updateFromProto(&update))
	logger.WithFields(
		xlog.NewField("key", key),
		xlog.NewField("version", v.Version()),
	).Infof("awareness settings updated")
}

func updateFromProto(p *allocationpb.AwarenessProto) Update {
	var u Update
	if p.Attributes != nil {
		u.Attributes = p.Attributes.Values
		if u.Attributes == nil {
			// present but empty disables awareness balancing
			u.Attributes = []string{}
		}
	}
	if len(p.Groups) > 0 {
		u.ForcedGroups = make(map[string][]string, len(p.Groups))
		for _, g := range p.Groups {
			u.ForcedGroups[g.Name] = g.Values
		}
	}
	return u
}
