// Package cli implements the timealign CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rcliao/timealign/internal/catalog"
	"github.com/rcliao/timealign/internal/config"
	"github.com/rcliao/timealign/pkg/interp"
	"github.com/rcliao/timealign/pkg/recmeta"
)

var (
	catalogPath string
	formatFlag  string
	cacheChunks int
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "timealign",
	Short: "Query recordings of heterogeneous signals on a common clock",
	Long:  "A CLI for time-indexed recordings. Sample dense traces and frame sequences at arbitrary timestamps, generate mock recordings, and keep a local catalog of recording roots.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&catalogPath, "catalog", "d", "", "Catalog database path (default: $TIMEALIGN_CATALOG or ~/.timealign/catalog.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "", "Output format: json or csv (default: $TIMEALIGN_FORMAT or json)")
	RootCmd.PersistentFlags().IntVar(&cacheChunks, "cache-chunks", -1, "Decoded screen chunks to keep in memory (default: $TIMEALIGN_CACHE_CHUNKS or 0)")
}

var cfg *config.Config

func envConfig() *config.Config {
	if cfg == nil {
		c, err := config.New()
		if err != nil {
			exitErr("load config", err)
		}
		cfg = c
	}
	return cfg
}

func getCatalogPath() string {
	if catalogPath != "" {
		return catalogPath
	}
	if c := envConfig(); c.CatalogPath != "" {
		return c.CatalogPath
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".timealign", "catalog.db")
}

func getFormat() string {
	if formatFlag != "" {
		return formatFlag
	}
	return envConfig().Format
}

func getCacheChunks() int {
	if cacheChunks >= 0 {
		return cacheChunks
	}
	return envConfig().CacheChunks
}

func openCatalog() (*catalog.Catalog, error) {
	return catalog.Open(getCatalogPath())
}

// newRegistry builds the interpolator registry used by commands that
// open recordings, honoring the chunk-cache setting for screens.
func newRegistry() *interp.Registry {
	reg := interp.NewRegistry()
	if n := getCacheChunks(); n > 0 {
		reg.Register(interp.ModalityScreen, func(root string, rec *recmeta.Recording) (interp.Interpolator, error) {
			return interp.NewScreen(root, rec, interp.WithChunkCache(n))
		})
	}
	return reg
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
