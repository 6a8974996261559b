package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/canvas-state/internal/snapshot"
	"github.com/rcliao/canvas-state/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "revert",
		Short: "Make a past revision the current document",
		Run:   runRevert,
	}

	cmd.Flags().StringP("revision", "r", "", "Revision id (required)")
	cmd.MarkFlagRequired("revision")

	RootCmd.AddCommand(cmd)
}

func runRevert(cmd *cobra.Command, args []string) {
	revision, _ := cmd.Flags().GetString("revision")

	cfg := loadConfig(cmd)
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rev, err := s.Revision(cmd.Context(), revision)
	if err != nil {
		exitErr("revision", err)
	}
	if rev.Key != cfg.Document.Key {
		exitErr("revert", fmt.Errorf("revision %s belongs to key %q", revision, rev.Key))
	}
	if _, err := snapshot.DecodeStrict([]byte(rev.Value)); err != nil {
		exitErr("revert", err)
	}

	blob, err := s.Put(cmd.Context(), store.PutParams{Key: rev.Key, Value: rev.Value})
	if err != nil {
		exitErr("put", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"key":%q,"revision_id":%q}`+"\n", blob.Key, blob.RevisionID)
}
