package cmd

import (
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"sjsage522/metaworker/services/snapshot"
)

func newCmdCache() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache <command>",
		Short: "Inspect and manage the extraction cache",
		Long: heredoc.Doc(`
			Manage the cache selected by CACHE_BACKEND. The memory backend lives
			only as long as one process, so these commands are meant for the
			redis, memcache and bolt backends.
		`),
	}
	cmd.AddCommand(newCmdCacheStats(), newCmdCacheClear(), newCmdCacheExport(), newCmdCacheImport())
	return cmd
}

func newCmdCacheStats() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			f, err := newFactory(c.Context())
			if err != nil {
				return err
			}
			defer f.Close()
			return printJSON(c.OutOrStdout(), f.Engine.CacheStats(c.Context()))
		},
	}
}

func newCmdCacheClear() *cobra.Command {
	var entry string

	cmd := &cobra.Command{
		Use:   "clear [flags]",
		Short: "Remove every entry, or the entry of one url",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			f, err := newFactory(c.Context())
			if err != nil {
				return err
			}
			defer f.Close()

			if entry != "" {
				deleted := f.Engine.DeleteCacheEntry(c.Context(), entry)
				fmt.Fprintf(c.OutOrStdout(), "deleted=%t\n", deleted)
				return nil
			}
			f.Engine.ClearCache(c.Context())
			fmt.Fprintln(c.OutOrStdout(), "cache cleared")
			return nil
		},
	}

	cmd.Flags().StringVar(&entry, "url", "", "Only remove the entry cached for this url")
	return cmd
}

func newCmdCacheExport() *cobra.Command {
	return &cobra.Command{
		Use:   "export <path|s3://bucket/key>",
		Short: "Write a snapshot of the cache",
		Example: heredoc.Doc(`
			$ metaworker cache export ./cache.json
			$ S3_ENDPOINT=http://localhost:9000 metaworker cache export s3://snapshots/cache.json
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			loc, err := snapshot.ParseLocation(args[0])
			if err != nil {
				return err
			}
			f, err := newFactory(c.Context())
			if err != nil {
				return err
			}
			defer f.Close()

			storage, err := snapshot.Open(c.Context(), f.Config, loc)
			if err != nil {
				return err
			}
			snap := f.Engine.ExportCache(c.Context())
			if err := snapshot.Write(c.Context(), storage, loc.Key, snap); err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "exported %d entries to %s\n", len(snap.Entries), args[0])
			return nil
		},
	}
}

func newCmdCacheImport() *cobra.Command {
	return &cobra.Command{
		Use:   "import <path|s3://bucket/key>",
		Short: "Load a cache snapshot, skipping expired entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			loc, err := snapshot.ParseLocation(args[0])
			if err != nil {
				return err
			}
			f, err := newFactory(c.Context())
			if err != nil {
				return err
			}
			defer f.Close()

			storage, err := snapshot.Open(c.Context(), f.Config, loc)
			if err != nil {
				return err
			}
			snap, err := snapshot.Read(c.Context(), storage, loc.Key)
			if err != nil {
				return err
			}
			n, err := f.Engine.ImportCache(c.Context(), snap)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "imported %d of %d entries from %s\n", n, len(snap.Entries), args[0])
			return nil
		},
	}
}
