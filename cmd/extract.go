package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"sjsage522/metaworker/internal/model"
)

type extractFlags struct {
	source  string
	title   string
	noCache bool
	retry   bool
	timeout time.Duration
}

func (f extractFlags) options() model.Options {
	return model.Options{
		Timeout:     f.timeout,
		EnableRetry: f.retry,
		EnableCache: !f.noCache,
	}
}

func newCmdExtract() *cobra.Command {
	var flags extractFlags

	cmd := &cobra.Command{
		Use:   "extract <url> [flags]",
		Short: "Extract one listing or detail page",
		Example: heredoc.Doc(`
			$ metaworker extract "https://www.javbus.com/ABC-123"
			$ metaworker extract "https://javdb.com/search?q=ABC-123" --source javdb --title ABC-123 --retry
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			f, err := newFactory(c.Context())
			if err != nil {
				return err
			}
			defer f.Close()

			item := model.Item{
				ID:         uuid.NewString(),
				URL:        strings.TrimSpace(args[0]),
				Title:      flags.title,
				SourceHint: flags.source,
			}
			rec := f.Engine.ExtractSingle(c.Context(), item, flags.options())
			if err := printJSON(c.OutOrStdout(), rec); err != nil {
				return err
			}
			if rec.ExtractionStatus == model.StatusError || rec.ExtractionStatus == model.StatusTimeout {
				return fmt.Errorf("extraction %s: %s", rec.ExtractionStatus, rec.Error)
			}
			return nil
		},
	}

	addExtractFlags(cmd, &flags)
	cmd.Flags().StringVar(&flags.title, "title", "", "Title or code of the wanted item, used to rank listing links")
	return cmd
}

func addExtractFlags(cmd *cobra.Command, flags *extractFlags) {
	cmd.Flags().StringVar(&flags.source, "source", "", "Source id to use instead of detecting it from the url")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "Skip the cache lookup and store")
	cmd.Flags().BoolVar(&flags.retry, "retry", false, "Retry a failed fetch or parse once")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Per fetch timeout (default FETCH_TIMEOUT_MS)")
}

func newCmdBatch() *cobra.Command {
	var (
		flags       extractFlags
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "batch <file> [flags]",
		Short: "Extract every url listed in a file",
		Long: heredoc.Doc(`
			Read one url per line, optionally followed by whitespace and a title.
			Blank lines and lines starting with # are skipped. Use - for stdin.
		`),
		Example: heredoc.Doc(`
			$ metaworker batch urls.txt --concurrency 4 > records.json
			$ cat urls.txt | metaworker batch - --no-cache
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			in := c.InOrStdin()
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer file.Close()
				in = file
			}
			items, err := readBatch(in, flags.source)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				return fmt.Errorf("no urls in %s", args[0])
			}

			f, err := newFactory(c.Context())
			if err != nil {
				return err
			}
			defer f.Close()

			opts := flags.options()
			opts.MaxConcurrency = concurrency
			stderr := c.ErrOrStderr()
			opts.OnProgress = func(p model.Progress) {
				fmt.Fprintf(stderr, "[%d/%d] %s %s\n", p.Current, p.Total, p.Status, p.ItemID)
			}
			return printJSON(c.OutOrStdout(), f.Engine.ExtractBatch(c.Context(), items, opts))
		},
	}

	addExtractFlags(cmd, &flags)
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Items extracted per wave (default MAX_CONCURRENCY)")
	return cmd
}

// readBatch parses "url [title]" lines; item ids are line numbers
func readBatch(r io.Reader, sourceHint string) ([]model.Item, error) {
	var items []model.Item
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		u, title := text, ""
		if i := strings.IndexAny(text, " \t"); i >= 0 {
			u, title = text[:i], text[i+1:]
		}
		items = append(items, model.Item{
			ID:         strconv.Itoa(line),
			URL:        u,
			Title:      strings.TrimSpace(title),
			SourceHint: sourceHint,
		})
	}
	return items, scanner.Err()
}
