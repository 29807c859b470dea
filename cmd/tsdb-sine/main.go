// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command tsdb-sine is a test point generator: it samples a sine wave
// every 100ms and pushes it into a single series through a PushQueue, the
// Go equivalent of the original client_test.py smoke script.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math"
	"strings"
	"time"

	"github.com/solidcoredata/tsdb/client"
	"github.com/solidcoredata/tsdb/client/pushqueue"
	"github.com/solidcoredata/tsdb/config"
	"github.com/solidcoredata/tsdb/internal/start"
	"github.com/solidcoredata/tsdb/ts"
)

var (
	path   = flag.String("path", "test_db/sine_points/test_series", "database/measurement/series path to write into")
	period = flag.Duration("period", 100*time.Millisecond, "sample interval")
)

func main() {
	cfg := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	c, err := cfg.NewClient()
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	database, measurement, _, err := splitPath(*path)
	if err != nil {
		log.Fatal(err)
	}
	setupCtx, cancel := context.WithTimeout(context.Background(), *cfg.Timeout)
	if err := ensureSchema(setupCtx, c, database, measurement); err != nil {
		cancel()
		log.Fatal(err)
	}
	cancel()

	q := pushqueue.New(c, 0, func(p ts.Point, cookie interface{}) {
		log.Printf("delivered %v", p)
	})

	if err := start.Start(context.Background(), 5*time.Second, func(ctx context.Context) error {
		return sample(ctx, q)
	}); err != nil {
		if _, ok := err.(*start.ShutdownTimeoutError); ok {
			log.Printf("%v; flushing queue anyway, sample loop may still be appending", err)
		} else {
			log.Print(err)
		}
	}
	q.Flush()
}

// ensureSchema creates the database and measurement tsdb-sine writes into,
// tolerating StatusMeasurementExists so the driver can be restarted against
// an already-provisioned series.
func ensureSchema(ctx context.Context, c *client.Client, database, measurement string) error {
	if err := c.CreateDatabase(ctx, database); err != nil {
		return err
	}
	schema := ts.Schema{Fields: []ts.Field{{Type: ts.FieldF64, Name: "value"}}}
	if err := c.CreateMeasurement(ctx, database, measurement, schema); err != nil {
		if se, ok := err.(*ts.StatusError); !ok || se.Code != ts.StatusMeasurementExists {
			return err
		}
	}
	return nil
}

func sample(ctx context.Context, q *pushqueue.PushQueue) error {
	ticker := time.NewTicker(*period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := time.Now()
			tMs := (now.UnixNano() / 1e6) % 10000
			v := math.Sin((float64(tMs) / 10000) * 2 * math.Pi)
			p := ts.Point{
				ts.TimeField: uint64(now.UnixNano()),
				"value":      v,
			}
			q.Append(p, *path, nil)
		}
	}
}

func splitPath(path string) (database, measurement, series string, err error) {
	parts := strings.SplitN(path, "/", 3)
	if len(parts) != 3 {
		return "", "", "", errors.New("tsdb-sine: path must be database/measurement/series")
	}
	return parts[0], parts[1], parts[2], nil
}
