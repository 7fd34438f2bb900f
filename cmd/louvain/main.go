// Command louvain clusters an edge list and prints a JSON summary to stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-louvain/pkg/edgelist"
	"github.com/dd0wney/cluso-louvain/pkg/logging"
	"github.com/dd0wney/cluso-louvain/pkg/louvain"
	"github.com/dd0wney/cluso-louvain/pkg/metrics"
	"github.com/dd0wney/cluso-louvain/pkg/server"
	"github.com/dd0wney/cluso-louvain/pkg/tracing"
)

// summary is the JSON document written to stdout
type summary struct {
	RunID          string              `json:"run_id"`
	Input          string              `json:"input"`
	Nodes          uint64              `json:"nodes"`
	Edges          int                 `json:"edges"`
	Levels         int                 `json:"levels"`
	Communities    uint64              `json:"communities"`
	Modularities   []float64           `json:"modularities"`
	Iterations     []int               `json:"iterations"`
	DurationMillis int64               `json:"duration_ms"`
	Largest        []louvain.Community `json:"largest,omitempty"`
	Assignments    map[uint64]uint64   `json:"assignments,omitempty"`
}

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

// realMain runs the command and returns its exit code: 2 for bad arguments,
// 130 when interrupted, 1 for any other failure
func realMain(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "louvain: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewJSONLogger(stderr, logging.ParseLevel(cfg.LogLevel))
	logging.SetDefaultLogger(logger)
	logging.Info("starting",
		logging.String("input", cfg.Input),
		logging.Int("concurrency", cfg.Louvain.Concurrency),
		logging.Bool("random_neighbor", cfg.Louvain.RandomNeighbor),
	)

	if err := run(ctx, cfg, logger, stdout); err != nil {
		if errors.Is(err, louvain.ErrCancelled) {
			logging.Warn("clustering interrupted", logging.Error(err))
			return 130
		}
		logging.ErrorLog("clustering failed", logging.Error(err))
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg fileConfig, logger logging.Logger, out io.Writer) error {
	shutdown, err := tracing.Init("louvain")
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	started := time.Now()
	reg := metrics.NewRegistry()
	if cfg.MetricsAddr != "" {
		srv := server.NewMetricsServer(cfg.MetricsAddr, reg, logger)
		if err := srv.Start(); err != nil {
			return err
		}
		defer srv.Shutdown(server.DefaultShutdownTimeout)
	}

	loadTimer := logging.StartTimer(logger, "edge list loaded", logging.String("input", cfg.Input))
	loaded, err := edgelist.ReadFile(cfg.Input, edgelist.Options{Relabel: cfg.Relabel})
	if err != nil {
		return err
	}
	loadTimer.End(logging.Nodes(loaded.Graph.NodeCount()), logging.Int("edges", loaded.Edges))

	l, err := louvain.New(cfg.Louvain, louvain.WithLogger(logger), louvain.WithMetrics(reg))
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := l.Run(ctx, loaded.Graph, nil)
	if err != nil {
		return err
	}
	reg.UpdateSystemMetrics(started)

	s := summary{
		RunID:          res.RunID,
		Input:          cfg.Input,
		Nodes:          loaded.Graph.NodeCount(),
		Edges:          loaded.Edges,
		Levels:         res.Levels,
		Communities:    res.CommunityCount,
		Modularities:   res.Modularities,
		Iterations:     res.Iterations,
		DurationMillis: time.Since(start).Milliseconds(),
	}
	for _, c := range louvain.Summarize(loaded.Graph, nil, res) {
		if len(s.Largest) == cfg.Top {
			break
		}
		// members are reported by input label
		if cfg.Assignments {
			for i, node := range c.Nodes {
				c.Nodes[i] = loaded.Label(node)
			}
		} else {
			c.Nodes = nil
		}
		s.Largest = append(s.Largest, c)
	}
	if cfg.Assignments {
		s.Assignments = make(map[uint64]uint64, len(res.Communities))
		for node, c := range res.Communities {
			s.Assignments[loaded.Label(uint64(node))] = c
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
