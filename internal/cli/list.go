package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/timealign/internal/catalog"
	"github.com/rcliao/timealign/pkg/interp"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged recordings",
		Run:   runList,
	}

	cmd.Flags().StringP("modality", "m", "", "Filter by modality")
	cmd.Flags().String("overlaps", "", "Filter by time overlap, as from,to")
	cmd.Flags().IntP("limit", "l", 50, "Max results")
	cmd.Flags().Bool("roots-only", false, "Only output recording roots")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	modality, _ := cmd.Flags().GetString("modality")
	overlapsStr, _ := cmd.Flags().GetString("overlaps")
	limit, _ := cmd.Flags().GetInt("limit")
	rootsOnly, _ := cmd.Flags().GetBool("roots-only")

	var overlaps *interp.TimeInterval
	if overlapsStr != "" {
		iv, err := parseInterval(overlapsStr)
		if err != nil {
			exitErr("list", err)
		}
		overlaps = iv
	}

	c, err := openCatalog()
	if err != nil {
		exitErr("open catalog", err)
	}
	defer c.Close()

	entries, err := c.List(cmd.Context(), catalog.Filter{
		Modality: modality,
		Overlaps: overlaps,
		Limit:    limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	if rootsOnly {
		for _, e := range entries {
			fmt.Println(e.Root)
		}
		return
	}

	b, _ := json.MarshalIndent(entries, "", "  ")
	fmt.Println(string(b))
}

func parseInterval(s string) (*interp.TimeInterval, error) {
	from, to, found := strings.Cut(s, ",")
	if !found {
		return nil, fmt.Errorf("bad interval %q, want from,to", s)
	}
	start, err := strconv.ParseFloat(strings.TrimSpace(from), 64)
	if err != nil {
		return nil, fmt.Errorf("bad interval %q: %w", s, err)
	}
	end, err := strconv.ParseFloat(strings.TrimSpace(to), 64)
	if err != nil {
		return nil, fmt.Errorf("bad interval %q: %w", s, err)
	}
	return &interp.TimeInterval{Start: start, End: end}, nil
}
