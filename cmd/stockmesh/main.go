// Command stockmesh runs the stock research agent.
//
//	stockmesh [-env .env] serve
//	stockmesh [-env .env] ask [-no-cache] [-json] [-max-iterations n] "question"
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hupe1980/stockmesh/agent"
	"github.com/hupe1980/stockmesh/core"
	"github.com/hupe1980/stockmesh/logging"
	"github.com/hupe1980/stockmesh/server"
)

var errUsage = errors.New("usage: stockmesh [-env file] serve | ask [-no-cache] [-json] [-max-iterations n] <question>")

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	args := flag.Args()
	if len(args) == 0 {
		return errUsage
	}

	logger := logging.New(*cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	switch args[0] {
	case "serve":
		srv := server.New(a.mesh.Agent(), func(o *server.Options) {
			o.Config = *cfg.HTTP
			o.Quotes = a.quotes
			o.Filings = a.filings
			o.Logger = logger
		})
		return srv.ListenAndServe(ctx)
	case "ask":
		return ask(ctx, a, args[1:], os.Stdout)
	default:
		return errUsage
	}
}

func ask(ctx context.Context, a *app, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	noCache := fs.Bool("no-cache", false, "bypass the response cache")
	asJSON := fs.Bool("json", false, "print the full response as JSON")
	maxIterations := fs.Int("max-iterations", 0, "override the round ceiling")
	if err := fs.Parse(args); err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return errUsage
	}

	var optFns []func(o *agent.QueryOptions)
	if *noCache {
		optFns = append(optFns, agent.WithoutCache())
	}
	if *maxIterations > 0 {
		optFns = append(optFns, agent.WithMaxIterations(*maxIterations))
	}

	resp := a.mesh.Agent().Query(ctx, question, optFns...)

	if *asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	printResponse(w, resp)
	return nil
}

func printResponse(w io.Writer, resp core.AgentResponse) {
	fmt.Fprintln(w, resp.Answer)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "termination: %s, iterations: %d, elapsed: %dms, cache hit: %t\n",
		resp.Metadata.TerminationReason, resp.Metadata.Iterations, resp.Metadata.ElapsedMs, resp.Metadata.CacheHit)
	if len(resp.Metadata.CapabilitiesUsed) > 0 {
		fmt.Fprintf(w, "tools used: %s\n", strings.Join(resp.Metadata.CapabilitiesUsed, ", "))
	}
	for _, step := range resp.Metadata.ReasoningSteps {
		fmt.Fprintf(w, "  %s\n", step)
	}
}
