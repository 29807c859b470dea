// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pushqueue decouples producer latency from server write latency
// by buffering points in memory and writing them from a single background
// worker (§4.10). It hides transient server unavailability and amortizes
// schema discovery across writes to the same measurement.
package pushqueue

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/solidcoredata/tsdb/client"
	"github.com/solidcoredata/tsdb/ts"
)

// retryDelay is how long the worker sleeps after a failed write batch
// before retrying (§4.10 step 3). A var, not a const, so tests can shrink
// it rather than waiting out the real 30s backoff.
var retryDelay = 30 * time.Second

// PushCallback is invoked once per point, in append order, after its batch
// has been written successfully.
type PushCallback func(p ts.Point, cookie interface{})

// PushQueue asynchronously pushes points to a single Client. It owns that
// Client exclusively: callers must not also use it directly, and the
// Client itself remains unsafe for concurrent use outside of PushQueue
// (§5).
type PushQueue struct {
	client   *client.Client
	pushCB   PushCallback
	throttle time.Duration

	mu          sync.Mutex
	cond        *sync.Cond
	queue       map[string][]ts.Point
	cookieQueue map[string][]interface{}
	schemas     map[schemaKey]ts.Schema
	running     bool
	workerDone  chan struct{}
}

type schemaKey struct {
	database, measurement string
}

// New creates a PushQueue over an existing Client and starts its
// background worker. throttle, if non-zero, is slept at the top of every
// worker iteration to smooth write bursts.
func New(c *client.Client, throttle time.Duration, pushCB PushCallback) *PushQueue {
	q := &PushQueue{
		client:      c,
		pushCB:      pushCB,
		throttle:    throttle,
		queue:       make(map[string][]ts.Point),
		cookieQueue: make(map[string][]interface{}),
		schemas:     make(map[schemaKey]ts.Schema),
	}
	q.cond = sync.NewCond(&q.mu)
	q.start()
	return q
}

func (q *PushQueue) start() {
	q.running = true
	q.workerDone = make(chan struct{})
	go q.pushLoop(q.workerDone)
}

// Append adds a single point under path ("database/measurement/series"),
// with an optional caller-supplied cookie delivered to the push callback.
func (q *PushQueue) Append(p ts.Point, path string, cookie interface{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue[path] = append(q.queue[path], p)
	q.cookieQueue[path] = append(q.cookieQueue[path], cookie)
	q.cond.Signal()
}

// AppendList adds a list of points under path. If cookies is nil, every
// point gets a nil cookie.
func (q *PushQueue) AppendList(ps []ts.Point, path string, cookies []interface{}) {
	if cookies == nil {
		cookies = make([]interface{}, len(ps))
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue[path] = append(q.queue[path], ps...)
	q.cookieQueue[path] = append(q.cookieQueue[path], cookies...)
	q.cond.Signal()
}

// Flush signals the worker to drain the current queue and stop, waits for
// it to exit, then starts a fresh worker. Unlike the reference
// implementation's busy-spin on the queue, Flush coordinates shutdown
// entirely through the queue's own condition variable: no goroutine ever
// polls an empty loop.
func (q *PushQueue) Flush() {
	q.mu.Lock()
	q.running = false
	q.cond.Signal()
	done := q.workerDone
	q.mu.Unlock()

	<-done

	q.mu.Lock()
	q.start()
	q.mu.Unlock()
}

// pushLoop is the single background worker. It runs until running is false
// and the queue is empty, then closes done.
func (q *PushQueue) pushLoop(done chan struct{}) {
	defer close(done)

	for {
		if q.throttle > 0 {
			time.Sleep(q.throttle)
		}

		q.mu.Lock()
		for len(q.queue) == 0 && q.running {
			q.cond.Wait()
		}
		if len(q.queue) == 0 && !q.running {
			q.mu.Unlock()
			return
		}
		queue := q.queue
		cookies := q.cookieQueue
		q.queue = make(map[string][]ts.Point)
		q.cookieQueue = make(map[string][]interface{})
		q.mu.Unlock()

		for path, points := range queue {
			q.writeBatch(path, points, cookies[path])
		}
	}
}

// writeBatch resolves path's schema (from cache or via GetSchema) and
// writes points, retrying indefinitely on any error (§4.10 step 3). It
// never surfaces an error to the producer. Points under a well-formed path
// are never dropped; points under a path that does not split into
// database/measurement/series are logged and dropped.
func (q *PushQueue) writeBatch(path string, points []ts.Point, cookies []interface{}) {
	database, measurement, series, err := splitPath(path)
	if err != nil {
		log.Printf("pushqueue: %v; dropping %d points for malformed path %q", err, len(points), path)
		return
	}
	key := schemaKey{database: database, measurement: measurement}

	q.mu.Lock()
	schema, haveSchema := q.schemas[key]
	q.mu.Unlock()

	ctx := context.Background()
	for {
		if !haveSchema {
			s, err := q.client.GetSchema(ctx, database, measurement)
			if err != nil {
				log.Printf("pushqueue: get schema for %q: %v; retrying in %s", path, err, retryDelay)
				time.Sleep(retryDelay)
				continue
			}
			schema = s
			haveSchema = true
			q.mu.Lock()
			q.schemas[key] = schema
			q.mu.Unlock()
		}

		if err := q.client.WritePoints(ctx, database, measurement, series, schema, points); err != nil {
			log.Printf("pushqueue: write points for %q: %v; retrying in %s", path, err, retryDelay)
			// Retry write_points with the same cached schema; GetSchema is
			// only retried while it is the failing step (§4.10 step 3).
			time.Sleep(retryDelay)
			continue
		}
		break
	}

	if q.pushCB != nil {
		for i, p := range points {
			q.pushCB(p, cookies[i])
		}
	}
}

func splitPath(path string) (database, measurement, series string, err error) {
	parts := strings.Split(path, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("malformed path %q, want database/measurement/series", path)
	}
	return parts[0], parts[1], parts[2], nil
}
