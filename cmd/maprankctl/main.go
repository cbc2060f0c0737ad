package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/use-agent/maprank/browser"
	"github.com/use-agent/maprank/config"
	"github.com/use-agent/maprank/pipeline"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(newBrowserRunner)
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newBrowserRunner wires the real browser pipeline.
func newBrowserRunner(target pipeline.Target, bcfg config.BrowserConfig, pcfg config.PipelineConfig) searcher {
	return pipeline.NewRunner(browser.NewManager(bcfg, pcfg), target, pcfg)
}
