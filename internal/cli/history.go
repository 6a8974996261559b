package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved revisions (newest first)",
		Run:   runHistory,
	}

	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	cfg := loadConfig(cmd)
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	revs, err := s.History(cmd.Context(), cfg.Document.Key, limit)
	if err != nil {
		exitErr("history", err)
	}

	b, _ := json.MarshalIndent(revs, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
