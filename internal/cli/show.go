package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored canvas document",
		Run:   runShow,
	}

	RootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	m, _ := newManager(cfg, s)
	doc, err := m.Load(cmd.Context())
	if err != nil {
		exitErr("load", err)
	}
	if doc == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "{}")
		return
	}

	b, _ := json.MarshalIndent(doc, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
