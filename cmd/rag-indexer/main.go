package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/futig/rag-chat/internal/builder"
)

func main() {
	indexer, err := builder.BuildIndexer()
	if err != nil {
		color.Red("Failed to build indexer: %v", err)
		os.Exit(1)
	}
	defer indexer.Close()

	paths := flag.Args()
	if len(paths) == 0 {
		paths = []string{"./data"}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	color.Cyan("Indexing %v", paths)
	start := time.Now()

	stats, err := indexer.Run(ctx, paths, func(done, total int) {
		fmt.Printf("\r%s %d/%d chunks", color.BlueString("embedding"), done, total)
	})
	fmt.Println()
	if err != nil {
		color.Red("Indexing failed: %v", err)
		indexer.Close()
		os.Exit(1)
	}

	color.Green("Indexed %d documents into %d chunks (dimension %d) in %s",
		stats.Documents, stats.Chunks, stats.Dimension, time.Since(start).Round(time.Millisecond))
}
