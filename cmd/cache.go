package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adalundhe/seam/core/cache"
	"github.com/adalundhe/seam/core/history"
	"github.com/adalundhe/seam/core/storage"
)

var cacheClearAll bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the co-change cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached co-change snapshots",
	Long: `Remove the cached snapshot for the current repository, forcing the next
scan to read the full history. With --all, remove the whole cache directory.`,
	Args: cobra.NoArgs,
	RunE: runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheClearCmd.Flags().BoolVar(&cacheClearAll, "all", false, "Remove snapshots for every repository")
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg := current.config
	dir := cfg.CacheDir(current.dirs)
	out := cmd.OutOrStdout()

	if cfg.Cache.Backend == cache.BackendMemory {
		fmt.Fprintln(out, "Memory cache holds nothing between runs.")
		return nil
	}

	if cacheClearAll {
		if err := storage.RemoveWithin(dir, current.dirs.Cache); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Fprintf(out, "Removed %s\n", dir)
		return nil
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Fprintln(out, "Cache is empty.")
		return nil
	}

	log, err := history.NewGitLog(repoDir)
	if err != nil {
		return err
	}
	key := storage.CacheKey(log.Root(), "cochange")
	log.Close()

	store, err := cache.Open(cfg.Cache.Backend, dir)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer store.Close()

	if err := store.Delete(cmd.Context(), key); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	current.logger.Debug("cache entry removed", "key", key, "dir", dir)
	fmt.Fprintf(out, "Cleared co-change cache for %s\n", log.Root())
	return nil
}
