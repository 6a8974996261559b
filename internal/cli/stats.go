package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/canvas-state/internal/model"
	"github.com/rcliao/canvas-state/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show storage and canvas statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

// canvasSummary counts what the stored document holds.
type canvasSummary struct {
	Key          string `json:"key"`
	SavedAt      string `json:"saved_at"`
	PromptCards  int    `json:"prompt_cards"`
	Placeholders int    `json:"placeholders"`
	TextCards    int    `json:"text_cards"`
	Connections  int    `json:"connections"`
}

type statsReport struct {
	*store.Stats
	Canvas    *canvasSummary     `json:"canvas,omitempty"`
	LastError *model.ErrorRecord `json:"last_error,omitempty"`
}

func summarize(key string, doc *model.Document) *canvasSummary {
	if doc == nil {
		return nil
	}
	sum := &canvasSummary{
		Key:         key,
		SavedAt:     doc.SavedAt,
		PromptCards: len(doc.PromptCards),
		TextCards:   len(doc.TextCards),
		Connections: len(doc.Connections),
	}
	for _, p := range doc.PromptCards {
		sum.Placeholders += len(p.Placeholders)
	}
	return sum
}

func runStats(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	st, err := s.Stats(cmd.Context(), getDBPath(cfg))
	if err != nil {
		exitErr("stats", err)
	}

	m, _ := newManager(cfg, s)
	doc, err := m.Load(cmd.Context())
	if err != nil {
		exitErr("load", err)
	}
	rec, err := m.LastError(cmd.Context())
	if err != nil {
		exitErr("errors", err)
	}

	b, _ := json.MarshalIndent(statsReport{Stats: st, Canvas: summarize(m.Key(), doc), LastError: rec}, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
