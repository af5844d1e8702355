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

package kv

import (
	xwatch "github.com/m3db/m3x/watch"
)

type valueWatchable struct {
	w xwatch.Watchable
}

// NewValueWatchable returns a ValueWatchable
func NewValueWatchable() ValueWatchable {
	return &valueWatchable{w: xwatch.NewWatchable()}
}

func (w *valueWatchable) IsClosed() bool {
	return w.w.IsClosed()
}

func (w *valueWatchable) Close() {
	w.w.Close()
}

func (w *valueWatchable) Get() Value {
	return valueFromInterface(w.w.Get())
}

func (w *valueWatchable) Watch() (Value, ValueWatch, error) {
	value, watch, err := w.w.Watch()
	if err != nil {
		return nil, nil, err
	}

	return valueFromInterface(value), &valueWatch{w: watch}, nil
}

func (w *valueWatchable) NumWatches() int {
	return w.w.NumWatches()
}

func (w *valueWatchable) Update(v Value) error {
	return w.w.Update(v)
}

func valueFromInterface(v interface{}) Value {
	if v == nil {
		return nil
	}
	return v.(Value)
}

type valueWatch struct {
	w xwatch.Watch
}

func (w *valueWatch) Close() {
	w.w.Close()
}

func (w *valueWatch) C() <-chan struct{} {
	return w.w.C()
}

func (w *valueWatch) Get() Value {
	return valueFromInterface(w.w.Get())
}
