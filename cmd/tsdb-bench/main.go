// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command tsdb-bench drives a database/measurement/series path through
// SelectPoints and SumPoints, printing every chunk it receives. It exists
// to smoke-test the streaming paths against a live server the way a
// developer would exercise select_points/sum_points by hand.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/solidcoredata/tsdb/client"
	"github.com/solidcoredata/tsdb/config"
	"github.com/solidcoredata/tsdb/internal/start"
	"github.com/solidcoredata/tsdb/ts"
)

var (
	path     = flag.String("path", "", "database/measurement/series path to read from")
	window   = flag.Duration("window", 0, "if non-zero, run SumPoints with this window instead of SelectPoints")
	limit    = flag.Uint64("limit", ts.DefaultNLimit, "max points per SelectPoints call")
	fromLast = flag.Bool("last", false, "select the newest points instead of the oldest")
)

func main() {
	cfg := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	c, err := cfg.NewClient()
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	database, measurement, series, err := splitPath(*path)
	if err != nil {
		log.Fatal(err)
	}

	if err := start.Start(context.Background(), 5*time.Second, func(ctx context.Context) error {
		if *window > 0 {
			return runSums(ctx, c, database, measurement, series)
		}
		return runSelect(ctx, c, database, measurement, series)
	}); err != nil {
		log.Fatal(err)
	}
}

func runSelect(ctx context.Context, c *client.Client, database, measurement, series string) error {
	schema, err := c.GetSchema(ctx, database, measurement)
	if err != nil {
		return fmt.Errorf("get schema: %w", err)
	}

	open := c.SelectPoints
	if *fromLast {
		open = c.SelectLastPoints
	}
	stream, err := open(ctx, database, measurement, series, schema, nil, 0, ts.DefaultTimeLast, *limit)
	if err != nil {
		return fmt.Errorf("open select stream: %w", err)
	}
	defer stream.Close()

	total := 0
	for {
		chunk, err := stream.Next()
		if err != nil {
			return fmt.Errorf("read chunk: %w", err)
		}
		if chunk == nil {
			break
		}
		total += chunk.NPoints
		fmt.Println(chunk.String())
	}
	fmt.Printf("%d points total\n", total)
	return nil
}

func runSums(ctx context.Context, c *client.Client, database, measurement, series string) error {
	schema, err := c.GetSchema(ctx, database, measurement)
	if err != nil {
		return fmt.Errorf("get schema: %w", err)
	}
	fields := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		fields[i] = f.Name
	}

	stream, err := c.SumPoints(ctx, database, measurement, series, fields, 0, ts.DefaultTimeLast, uint64(window.Nanoseconds()))
	if err != nil {
		return fmt.Errorf("open sums stream: %w", err)
	}
	defer stream.Close()

	total := 0
	for {
		chunk, err := stream.Next()
		if err != nil {
			return fmt.Errorf("read sums chunk: %w", err)
		}
		if chunk == nil {
			break
		}
		total += len(chunk.Timestamps)
		for name, sums := range chunk.Sums {
			fmt.Printf("%s: %v (n=%v)\n", name, sums, chunk.NPoints[name])
		}
	}
	fmt.Printf("%d windows total\n", total)
	return nil
}

func splitPath(path string) (database, measurement, series string, err error) {
	parts := strings.SplitN(path, "/", 3)
	if len(parts) != 3 {
		return "", "", "", errors.New("tsdb-bench: -path must be database/measurement/series")
	}
	return parts[0], parts[1], parts[2], nil
}
