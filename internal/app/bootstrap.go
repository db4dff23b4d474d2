// Package app runs the full analysis pipeline: load records, build the
// graph, fan the analyzers out over the sealed snapshot, assemble and store
// the artifact.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/artifact"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/config"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/engine/compliance"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/engine/connectivity"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/engine/flows"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/findings"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/graph"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/ingest"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/providers/awslive"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/storage"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/telemetry"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/version"
)

// Result is what a completed run hands the caller for rendering.
type Result struct {
	Artifact *artifact.Artifact
	RunKey   string
}

// Run executes one analysis end to end and persists the artifact.
func Run(ctx context.Context, cfg config.Config) (*Result, error) {
	tr := telemetry.Tracer()
	ctx, span := tr.Start(ctx, "analysis.run")
	defer span.End()

	rs, err := loadRecords(ctx, cfg)
	if err != nil {
		return nil, err
	}

	g, buildFindings, err := ingest.Build(rs)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	collector := findings.NewCollector()
	collector.Add(buildFindings...)

	engine := compliance.NewEngine()
	if cfg.RulesFile != "" {
		dynamic, err := compliance.LoadDynamicRules(cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("load rules %s: %w", cfg.RulesFile, err)
		}
		for _, r := range dynamic {
			engine.Register(r)
		}
		slog.Info("Operator rules loaded", "file", cfg.RulesFile, "rules", len(dynamic))
	}

	paths := analyze(ctx, g, engine, collector)

	art := artifact.Build(g, collector.All(), paths, version.Version, time.Now())
	span.SetAttributes(
		attribute.Int("graph.nodes", len(art.Nodes)),
		attribute.Int("findings", len(art.Findings)),
	)

	raw, err := art.MarshalIndent()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}
	key, err := storage.SaveRun(ctx, store, raw, art.Metadata.GeneratedAt)
	if err != nil {
		return nil, err
	}

	slog.Info("Analysis complete", "artifact", key, "summary", art.Summary())
	return &Result{Artifact: art, RunKey: key}, nil
}

func loadRecords(ctx context.Context, cfg config.Config) (*ingest.RecordSet, error) {
	switch cfg.Source.Kind {
	case config.SourceAWS:
		p, err := awslive.New(ctx, cfg.Source.Region, cfg.Source.Profile, cfg.Source.Account)
		if err != nil {
			return nil, err
		}
		return p.Snapshot(ctx)
	case config.SourceFile, "":
		return ingest.LoadRecords(cfg.Source.Path)
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// analyze fans the three analyzers out over the sealed graph. They share
// nothing but the snapshot and the collector, so they run concurrently.
func analyze(ctx context.Context, g *graph.Graph, engine *compliance.Engine, collector *findings.Collector) []flows.FlowPath {
	tr := telemetry.Tracer()
	var wg sync.WaitGroup
	var paths []flows.FlowPath

	run := func(name string, fn func() []findings.Finding) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, span := tr.Start(ctx, name, trace.WithAttributes(attribute.String("analyzer", name)))
			defer span.End()

			fs := fn()
			collector.Add(fs...)
			if errCount := countErrors(fs); errCount > 0 {
				span.SetStatus(codes.Error, fmt.Sprintf("%d error findings", errCount))
			}
			slog.Debug("Analyzer completed", "name", name, "findings", len(fs))
		}()
	}

	run("compliance", func() []findings.Finding { return engine.Evaluate(g) })
	run("connectivity", func() []findings.Finding { return connectivity.Validate(g) })
	run("flows", func() []findings.Finding {
		var fs []findings.Finding
		paths, fs = flows.Resolve(g)
		return fs
	})

	wg.Wait()
	return paths
}

func countErrors(fs []findings.Finding) int {
	n := 0
	for _, f := range fs {
		if f.Severity == findings.SeverityError {
			n++
		}
	}
	return n
}
