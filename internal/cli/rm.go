package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/canvas-state/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Delete the stored canvas and its history",
		Run:   runRm,
	}

	cmd.Flags().Bool("errors", false, "Also delete the diagnostic record")

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	withErrors, _ := cmd.Flags().GetBool("errors")

	cfg := loadConfig(cmd)
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	m, _ := newManager(cfg, s)
	if err := s.Rm(cmd.Context(), m.Key()); err != nil {
		exitErr("rm", err)
	}
	if withErrors {
		if err := s.Rm(cmd.Context(), m.ErrorKey()); err != nil && !errors.Is(err, store.ErrNotFound) {
			exitErr("rm", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"key":%q}`+"\n", m.Key())
}
