// Command saltbot-replay browses recorded episode traces.
//
//	saltbot-replay path/to/episode.jsonl.zst
//	saltbot-replay -index episodes.db            # list recent episodes
//	saltbot-replay -index episodes.db <episode>  # open one by id
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nstehr/saltbot/saltbot-core/model"
	"github.com/nstehr/saltbot/saltbot-core/trace"
)

func main() {
	indexPath := flag.String("index", "", "episode index database")
	limit := flag.Int("n", 20, "episodes to list")
	flag.Parse()

	if err := run(*indexPath, *limit, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "saltbot-replay:", err)
		os.Exit(1)
	}
}

func run(indexPath string, limit int, args []string) error {
	ctx := context.Background()
	if indexPath == "" {
		if len(args) != 1 {
			return fmt.Errorf("usage: saltbot-replay [-index db] <trace file | episode id>")
		}
		return browse(filepath.Base(args[0]), args[0])
	}

	idx, err := trace.OpenIndex(indexPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	if len(args) == 0 {
		eps, err := idx.Recent(ctx, limit)
		if err != nil {
			return err
		}
		return listEpisodes(os.Stdout, eps)
	}

	ep, ok, err := idx.Get(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("episode %s not in %s", args[0], indexPath)
	}
	if ep.TracePath == "" {
		return fmt.Errorf("episode %s was recorded without a trace", ep.ID)
	}
	return browse(fmt.Sprintf("%s (%s, %s)", ep.ID, ep.Player, ep.Profile), ep.TracePath)
}

func browse(title, path string) error {
	steps, err := trace.ReadSteps(path)
	if err != nil {
		return err
	}
	p := tea.NewProgram(newViewer(title, steps, model.DefaultRegistry()), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func listEpisodes(w io.Writer, eps []trace.Episode) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPLAYER\tPROFILE\tSTARTED\tOUTCOME\tSTEPS\tACTIONS")
	for _, ep := range eps {
		outcome := ep.Outcome
		if !ep.Ended() {
			outcome = "(running)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			ep.ID, ep.Player, ep.Profile, ep.StartedAt.Local().Format("2006-01-02 15:04:05"),
			strings.TrimSpace(outcome), ep.Steps, ep.Actions)
	}
	return tw.Flush()
}
