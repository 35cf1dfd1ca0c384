package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ozanyurtsever/promopipe/internal/changeset"
)

func changesetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changeset",
		Short: "Classify candidate URLs against the stored state",
		Long: `Read a list of candidate source URLs (one per line) and report which
are new, incomplete, or already complete, without extracting anything.`,
		RunE: runChangeset,
	}

	cmd.Flags().String("input", "", "file with one candidate URL per line")
	cmd.Flags().String("card", "", "card name the candidates belong to")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("card")

	return cmd
}

func runChangeset(cmd *cobra.Command, _ []string) error {
	input, _ := cmd.Flags().GetString("input")
	card, _ := cmd.Flags().GetString("card")

	urls, err := loadURLs(input)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	optimizer := changeset.NewOptimizer(store, slog.Default())
	result, err := optimizer.Classify(ctx, urls, card)
	if err != nil {
		return err
	}

	for _, url := range result.ToProcess {
		fmt.Printf("%-10s %s\n", result.States[url], url)
	}
	fmt.Printf("new: %d  incomplete: %d  complete: %d\n",
		result.Stats.New, result.Stats.Incomplete, result.Stats.Complete)
	return nil
}

func loadURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return urls, nil
}
