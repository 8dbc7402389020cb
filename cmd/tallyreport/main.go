package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/vncsmyrnk/tally/internal/bootstrap"
	"github.com/vncsmyrnk/tally/internal/config"
	"github.com/vncsmyrnk/tally/internal/core/ports"
)

func main() {
	config.LoadDotEnv()

	var format string
	cfg, err := config.Load("tallyreport", os.Args[1:], func(fs *flag.FlagSet) {
		fs.StringVar(&format, "format", "table", "Output format (table or json)")
	})
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := bootstrap.NewLogger(cfg.LogLevel)

	// Bound the whole job so a stuck backend cannot hang it indefinitely.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	summaries, err := app.Summary.SummarizeAllPolls(ctx)
	if err != nil {
		logger.Error("failed to summarize polls", "error", err)
		os.Exit(1)
	}

	if err := render(os.Stdout, format, summaries); err != nil {
		logger.Error("failed to write report", "error", err)
		os.Exit(1)
	}
}

func render(w io.Writer, format string, summaries []ports.PollResponse) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	case "table":
		return renderTable(w, summaries)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func renderTable(w io.Writer, summaries []ports.PollResponse) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tYES\tNO\tQUESTION")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\n", s.PollID, s.YesVotes, s.NoVotes, s.Question)
	}
	return tw.Flush()
}
