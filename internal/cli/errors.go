package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "errors",
		Short: "Show the diagnostic record of the last failed save",
		Run:   runErrors,
	}

	RootCmd.AddCommand(cmd)
}

func runErrors(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	m, _ := newManager(cfg, s)
	rec, err := m.LastError(cmd.Context())
	if err != nil {
		exitErr("errors", err)
	}
	if rec == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "{}")
		return
	}

	b, _ := json.MarshalIndent(rec, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
