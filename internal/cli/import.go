package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/canvas-state/internal/model"
	"github.com/rcliao/canvas-state/internal/snapshot"
	"github.com/rcliao/canvas-state/internal/state"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a canvas document",
		Long:  "Read a canvas document from stdin, rebuild it, and save the rebuilt canvas. Prints the restore outcome.",
		Run:   runImport,
	}

	cmd.Flags().StringP("format", "f", "json", "Input format: json or cbor")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	format, _ := cmd.Flags().GetString("format")

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}
	doc, err := decodeInput(data, format)
	if err != nil {
		exitErr("parse "+format, err)
	}

	cfg := loadConfig(cmd)
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	m, sc := newManager(cfg, s)
	saver := state.NewAutosaver(m, state.AutosaveOptions{
		Debounce:     cfg.Autosave.Debounce,
		InitialDelay: cfg.Autosave.InitialDelay,
		Logger:       newLogger(cfg),
	})
	saver.Observe(sc)
	defer saver.Stop()

	out, err := m.Restore(cmd.Context(), doc)
	if err != nil {
		exitErr("restore", err)
	}
	if err := saver.Flush(cmd.Context()); err != nil {
		exitErr("save", err)
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func decodeInput(data []byte, format string) (*model.Document, error) {
	switch format {
	case "json":
		return snapshot.DecodeStrict(data)
	case "cbor":
		return snapshot.UnmarshalCBOR(data)
	}
	return nil, fmt.Errorf("unknown format %q (use json or cbor)", format)
}
