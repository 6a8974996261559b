package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/canvas-state/internal/snapshot"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored canvas",
		Long:  "Write the stored canvas document to stdout as JSON or CBOR.",
		Run:   runExport,
	}

	cmd.Flags().StringP("format", "f", "json", "Output format: json or cbor")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	format, _ := cmd.Flags().GetString("format")

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
		doc = snapshot.Encode(time.Now(), nil, nil, nil)
	}

	switch format {
	case "json":
		b, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
	case "cbor":
		b, err := snapshot.MarshalCBOR(doc)
		if err != nil {
			exitErr("encode cbor", err)
		}
		cmd.OutOrStdout().Write(b)
	default:
		exitErr("export", fmt.Errorf("unknown format %q (use json or cbor)", format))
	}
}
