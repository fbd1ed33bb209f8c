package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seisview/seisview/pkg/cli"
	"github.com/seisview/seisview/pkg/quality"
	"github.com/seisview/seisview/pkg/stats"
	"github.com/seisview/seisview/pkg/stream"
)

var (
	ingestJournal  string
	ingestInterval time.Duration
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [url]",
	Short: "Connect to a tile server and run the ingest pipeline",
	Long: `Connect to a tile server, validate and decompress the incoming tile
stream, and display live pipeline statistics. Decoded tiles are counted and
discarded; rendering is up to the embedding application.

The url argument overrides the configured server.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestJournal, "journal", "", "append msgpack stats snapshots to this file")
	ingestCmd.Flags().DurationVar(&ingestInterval, "interval", time.Second, "stats refresh interval")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	url := cfg.Server
	if len(args) > 0 {
		url = args[0]
	}
	if url == "" {
		return fmt.Errorf("no server: pass a url or set server in %s", cfg.Path())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := stream.Dial(ctx, url, stream.Options{
		Limits:    cfg.Limits,
		Scheduler: cfg.Scheduler,
		Quality:   cfg.Quality,
	})
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer session.Close()

	var journal *stats.Journal
	if ingestJournal != "" {
		f, err := os.OpenFile(ingestJournal, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer f.Close()
		journal = stats.NewJournal(f)
	}

	agg := stats.NewAggregator(session.Decoder(), session.Scheduler(), session.Controller())
	view := cli.NewStatsView(cli.DefaultTheme)

	// Tile consumption doubles as the fps probe feeding the controller.
	tileCount := make(chan int, 1)
	go func() {
		n := 0
		for range session.Tiles() {
			n++
			select {
			case tileCount <- n:
			default:
			}
		}
	}()

	go func() {
		for msg, err := range session.Controls() {
			if err != nil {
				fmt.Fprintf(os.Stderr, "control: %v\n", err)
				continue
			}
			if verbose {
				fmt.Fprintf(os.Stderr, "control: %+v\n", msg)
			}
		}
	}()

	fmt.Printf("session %s connected to %s\n", session.ID(), url)
	ticker := time.NewTicker(ingestInterval)
	defer ticker.Stop()
	lastTiles := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			total := lastTiles
			select {
			case total = <-tileCount:
			default:
			}
			fps := float64(total-lastTiles) / ingestInterval.Seconds()
			lastTiles = total
			session.Controller().UpdateMetrics(&quality.MetricsUpdate{FPS: quality.Float(fps)})

			snap := agg.Snapshot()
			if journal != nil {
				if err := journal.Append(snap); err != nil {
					return err
				}
			}
			fmt.Println(view.Render(snap))
		}
	}
}
