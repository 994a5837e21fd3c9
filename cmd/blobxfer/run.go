package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/input-output-hk/blobxfer"
	"github.com/input-output-hk/blobxfer/config"
	xferrors "github.com/input-output-hk/blobxfer/errors"
	"github.com/input-output-hk/blobxfer/metrics"
	"github.com/input-output-hk/blobxfer/storeapi"
)

// outcome is the per-request entry of the run output, in request order.
type outcome struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
	Code     string `json:"code,omitempty"`
}

func runTransferCmd(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	requestPath := fs.String("request", "", "request file (JSON or YAML, one request or a list)")
	configPath := fs.String("config", "", "configuration file (YAML)")
	dryRun := fs.Bool("dry-run", false, "read the source but write to an in-memory destination")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *requestPath == "" {
		fmt.Fprintln(stderr, "run: -request is required")
		return 2
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}
	logger := newLogger(cfg, stderr)

	requests, err := loadRequests(*requestPath)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}

	m, stopMetrics, err := startMetrics(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}
	defer stopMetrics()

	results, err := transferAll(ctx, cfg, requests, m, logger, *dryRun)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}
	if err := printJSON(stdout, results); err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}

	for _, r := range results {
		if r.Error != "" {
			return 1
		}
	}
	return 0
}

// transferAll runs every request with at most cfg.Parallel in flight. One
// client is built per GCP project; a failed request does not stop the others.
func transferAll(
	ctx context.Context,
	cfg *config.Config,
	requests []blobxfer.Request,
	m metrics.Metrics,
	logger *slog.Logger,
	dryRun bool,
) ([]outcome, error) {
	resolver, err := newResolver(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	st := &stores{cfg: cfg, resolver: resolver, logger: logger, dryRun: dryRun}

	src, err := st.source(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]outcome, len(requests))
	clients := make(map[string]*blobxfer.Client)
	for i, req := range requests {
		if err := req.Validate(); err != nil {
			results[i] = failure(err)
			continue
		}
		if _, ok := clients[req.GCPProjectID]; ok {
			continue
		}
		client, release, err := newClient(ctx, st, src, req.GCPProjectID, m, logger)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(); err != nil && logger != nil {
				logger.WarnContext(ctx, "failed to close destination", "project", req.GCPProjectID, "error", err)
			}
		}()
		clients[req.GCPProjectID] = client
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Parallel)
	for i, req := range requests {
		client, ok := clients[req.GCPProjectID]
		if !ok || results[i].Error != "" {
			continue
		}
		g.Go(func() error {
			srcDesc, dstDesc := req.Descriptors()
			srcDesc.Store = cfg.Source.Store
			result, err := client.Transfer(gctx, srcDesc, dstDesc)
			if err != nil {
				results[i] = failure(err)
				return nil
			}
			results[i] = outcome{Response: result.Message}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func newClient(
	ctx context.Context,
	st *stores,
	src storeapi.Source,
	projectID string,
	m metrics.Metrics,
	logger *slog.Logger,
) (*blobxfer.Client, func() error, error) {
	dst, release, err := st.destination(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	t := st.cfg.Transfer
	client, err := blobxfer.New(src, dst,
		blobxfer.WithBatchThreshold(t.BatchThreshold),
		blobxfer.WithChunkSize(t.ChunkSize),
		blobxfer.WithConcurrency(t.Concurrency),
		blobxfer.WithContentType(t.ContentType),
		blobxfer.WithContentTypeDetection(t.DetectContentType),
		blobxfer.WithRetry(st.cfg.RetryPolicy()),
		blobxfer.WithMetrics(m),
		blobxfer.WithLogger(logger))
	if err != nil {
		_ = release()
		return nil, nil, err
	}
	return client, release, nil
}

func failure(err error) outcome {
	o := outcome{Error: err.Error()}
	var te *xferrors.TransferError
	if errors.As(err, &te) {
		o.Code = string(te.Code())
	}
	return o
}

// loadRequests decodes one request or a list. JSON input is read as YAML.
func loadRequests(path string) ([]blobxfer.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("request file %s is empty", path)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse request file: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("request file %s is empty", path)
	}

	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		var requests []blobxfer.Request
		if err := root.Decode(&requests); err != nil {
			return nil, fmt.Errorf("failed to decode requests: %w", err)
		}
		if len(requests) == 0 {
			return nil, fmt.Errorf("request file %s contains no requests", path)
		}
		return requests, nil
	}

	var req blobxfer.Request
	if err := root.Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	return []blobxfer.Request{req}, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// startMetrics serves /metrics when an address is configured. The returned
// function shuts the server down.
func startMetrics(cfg *config.Config, logger *slog.Logger) (metrics.Metrics, func(), error) {
	if cfg.Metrics.Addr == "" {
		return metrics.Noop{}, func() {}, nil
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.NewProm(cfg.Metrics.Namespace, reg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HandlerFor(reg))
	srv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", cfg.Metrics.Addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", cfg.Metrics.Addr)

	return m, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
