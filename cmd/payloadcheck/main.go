// Command payloadcheck runs saved weather-service responses through the same
// bounded fetch and extraction path the service uses, and reports whether
// each payload fits its byte cap and token budget and which fields it yields.
// Use it to size limits against real captures before deploying.
//
// Usage:
//
//	go run ./cmd/payloadcheck \
//	  --observations testdata/observations.json \
//	  --forecast testdata/forecast.json \
//	  --warnings testdata/warnings.json
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/couchcryptid/weather-bom-service/internal/adapter/bom"
	"github.com/couchcryptid/weather-bom-service/internal/adapter/memory"
	"github.com/couchcryptid/weather-bom-service/internal/domain"
	"github.com/couchcryptid/weather-bom-service/internal/observability"
	"github.com/couchcryptid/weather-bom-service/internal/pipeline"
)

// phase tracks pass/fail for one payload.
type phase struct {
	name   string
	fields []string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	files := map[string]*string{
		domain.FeedObservations: flag.String("observations", "", "saved observations response"),
		domain.FeedForecast:     flag.String("forecast", "", "saved daily forecast response"),
		domain.FeedWarnings:     flag.String("warnings", "", "saved warnings response"),
	}
	flag.Parse()

	paths := map[string]string{}
	for feed, p := range files {
		if *p != "" {
			paths[feed] = *p
		}
	}
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(paths))
}

func run(paths map[string]string) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	f := &fileFetcher{paths: paths}
	client := bom.NewClient("file://", f, bom.DefaultLimits(), metrics, logger)

	fmt.Println("=== Payload Check ===")
	fmt.Println()

	var phases []*phase
	for _, feed := range []string{domain.FeedObservations, domain.FeedForecast, domain.FeedWarnings} {
		if _, ok := paths[feed]; !ok {
			continue
		}
		phases = append(phases, check(feed, client, metrics, logger))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-16s %-24s %d fields\n", p.name, status, len(p.fields))
	}

	for _, p := range phases {
		fmt.Printf("\n--- %s ---\n", p.name)
		for _, name := range p.fields {
			fmt.Printf("  %s\n", name)
		}
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll payloads passed.")
		return 0
	}
	fmt.Println("\nPayload check FAILED.")
	return 1
}

func check(feed string, client *bom.Client, metrics *observability.Metrics, logger *slog.Logger) *phase {
	p := &phase{name: feed}
	store := memory.NewStore()
	feeds := pipeline.Feeds{
		Observations: feed == domain.FeedObservations,
		Forecast:     feed == domain.FeedForecast,
		Warnings:     feed == domain.FeedWarnings,
	}
	pl := pipeline.New(fixedCode("file"), client, store, feeds, logger, metrics)
	if err := pl.RunCycle(context.Background()); err != nil {
		p.errorf("%s: %v", domain.Classify(err), err)
	}
	p.fields = store.Names()
	if p.passed() && len(p.fields) == 0 {
		p.errorf("no recognised fields")
	}
	return p
}

type fixedCode string

func (c fixedCode) Code(context.Context) (string, error) { return string(c), nil }

// fileFetcher serves feed URLs from local files with the same cap semantics
// as the network fetcher.
type fileFetcher struct {
	paths map[string]string
}

func (f *fileFetcher) Fetch(_ context.Context, url string, buf []byte) (int, error) {
	var path string
	for feed, p := range f.paths {
		suffix := "/" + feed
		if feed == domain.FeedForecast {
			suffix = "/forecasts/daily"
		}
		if strings.HasSuffix(url, suffix) {
			path = p
		}
	}
	if path == "" {
		return 0, fmt.Errorf("%w: no file for %s", domain.ErrTransport, url)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	if len(data) > len(buf) {
		return 0, fmt.Errorf("%w: %d bytes, cap %d", domain.ErrTooLarge, len(data), len(buf))
	}
	if len(data) == 0 {
		return 0, domain.ErrEmpty
	}
	return copy(buf, data), nil
}
