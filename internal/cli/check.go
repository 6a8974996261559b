package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/canvas-state/internal/model"
	"github.com/rcliao/canvas-state/internal/snapshot"
)

func init() {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Dry-run a restore of the stored canvas",
		Long:  "Rebuild the stored canvas (or a past revision) in memory and report which cards and connections restore. Nothing is saved.",
		Run:   runCheck,
	}

	cmd.Flags().StringP("revision", "r", "", "Revision id to check instead of the current document")

	RootCmd.AddCommand(cmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	revision, _ := cmd.Flags().GetString("revision")

	cfg := loadConfig(cmd)
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	m, _ := newManager(cfg, s)

	var doc *model.Document
	if revision != "" {
		rev, err := s.Revision(cmd.Context(), revision)
		if err != nil {
			exitErr("revision", err)
		}
		doc, err = snapshot.DecodeStrict([]byte(rev.Value))
		if err != nil {
			exitErr("decode revision", err)
		}
	} else {
		doc, err = m.Load(cmd.Context())
		if err != nil {
			exitErr("load", err)
		}
	}
	if doc == nil {
		fmt.Fprintln(cmd.OutOrStdout(), `{"ok":true,"restored":false}`)
		return
	}

	out, err := m.Restore(cmd.Context(), doc)
	if err != nil {
		exitErr("restore", err)
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
