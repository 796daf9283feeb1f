package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Index recordings into the catalog",
		Long:  "Walk a directory tree, find every recording root (a directory with a meta.yml), and index it into the catalog. Broken recordings are logged and skipped.",
		Args:  cobra.ExactArgs(1),
		Run:   runScan,
	}

	RootCmd.AddCommand(cmd)
}

func runScan(cmd *cobra.Command, args []string) {
	c, err := openCatalog()
	if err != nil {
		exitErr("open catalog", err)
	}
	defer c.Close()

	indexed, err := c.Scan(cmd.Context(), args[0])
	if err != nil {
		exitErr("scan", err)
	}

	b, _ := json.Marshal(map[string]interface{}{
		"dir":     args[0],
		"indexed": indexed,
	})
	fmt.Println(string(b))
}
