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
	"time"

	"github.com/m3db/m3x/instrument"
	xretry "github.com/m3db/m3x/retry"
)

const (
	defaultRequestTimeout         = 10 * time.Second
	defaultWatchChanCheckInterval = 10 * time.Minute
)

// KeyFn maps a store key to the key used in etcd
type KeyFn func(key string) string

// Options are options for an etcd backed kv store
type Options interface {
	// SetKeyFn sets the KeyFn
	SetKeyFn(value KeyFn) Options

	// KeyFn returns the KeyFn
	KeyFn() KeyFn

	// SetRequestTimeout sets the timeout for etcd requests
	SetRequestTimeout(value time.Duration) Options

	// RequestTimeout returns the timeout for etcd requests
	RequestTimeout() time.Duration

	// SetWatchChanCheckInterval sets the interval for idle watch cleanup
	SetWatchChanCheckInterval(value time.Duration) Options

	// WatchChanCheckInterval returns the interval for idle watch cleanup
	WatchChanCheckInterval() time.Duration

	// SetRetryOptions sets the retry options for watch updates
	SetRetryOptions(value xretry.Options) Options

	// RetryOptions returns the retry options for watch updates
	RetryOptions() xretry.Options

	// SetInstrumentOptions sets the instrument options
	SetInstrumentOptions(value instrument.Options) Options

	// InstrumentOptions returns the instrument options
	InstrumentOptions() instrument.Options
}

type options struct {
	keyFn                  KeyFn
	requestTimeout         time.Duration
	watchChanCheckInterval time.Duration
	retryOpts              xretry.Options
	instrumentOpts         instrument.Options
}

// NewOptions returns a new set of options
func NewOptions() Options {
	return &options{
		keyFn:                  func(key string) string { return key },
		requestTimeout:         defaultRequestTimeout,
		watchChanCheckInterval: defaultWatchChanCheckInterval,
		retryOpts:              xretry.NewOptions(),
		instrumentOpts:         instrument.NewOptions(),
	}
}

func (o *options) SetKeyFn(value KeyFn) Options {
	opts := *o
	opts.keyFn = value
	return &opts
}

func (o *options) KeyFn() KeyFn {
	return o.keyFn
}

func (o *options) SetRequestTimeout(value time.Duration) Options {
	opts := *o
	opts.requestTimeout = value
	return &opts
}

func (o *options) RequestTimeout() time.Duration {
	return o.requestTimeout
}

func (o *options) SetWatchChanCheckInterval(value time.Duration) Options {
	opts := *o
	opts.watchChanCheckInterval = value
	return &opts
}

func (o *options) WatchChanCheckInterval() time.Duration {
	return o.watchChanCheckInterval
}

func (o *options) SetRetryOptions(value xretry.Options) Options {
	opts := *o
	opts.retryOpts = value
	return &opts
}

func (o *options) RetryOptions() xretry.Options {
	return o.retryOpts
}

func (o *options) SetInstrumentOptions(value instrument.Options) Options {
	opts := *o
	opts.instrumentOpts = value
	return &opts
}

func (o *options) InstrumentOptions() instrument.Options {
	return o.instrumentOpts
}
