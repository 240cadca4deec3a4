package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
)

// importFile is the on-disk form accepted by the import command. It mirrors
// the POST /knowledge-bases body; a bare array is treated as its data.
type importFile struct {
	Name           string          `json:"name"`
	Data           json.RawMessage `json:"data"`
	UpdateMode     string          `json:"updateMode"`
	DatasetVersion string          `json:"datasetVersion"`
}

type importOptions struct {
	name           string
	mode           string
	datasetVersion string
}

func newImportCmd(root *rootOptions) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Upload a knowledge base from a JSON file",
		Long: `Reads a JSON file and reconciles it into the configured store, exactly as a
POST /knowledge-bases request would. The file holds either the request body
({"name", "data", "updateMode", "datasetVersion"}) or just the record array.
Flags override fields from the file. Without a name the file's base name is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			f, err := parseImportFile(raw)
			if err != nil {
				return err
			}
			if opts.name != "" {
				f.Name = opts.name
			}
			if f.Name == "" {
				f.Name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			if opts.mode != "" {
				f.UpdateMode = opts.mode
			}
			if opts.datasetVersion != "" {
				f.DatasetVersion = opts.datasetVersion
			}

			mode, err := domain.ParseUpdateMode(f.UpdateMode)
			if err != nil {
				return err
			}
			records, err := domain.ParseRecords(f.Data)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), root.envFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.knowledgeBaseService().Sync(cmd.Context(), domain.SyncRequest{
				OwnerID:        a.cfg.OwnerID,
				Name:           f.Name,
				Records:        records,
				DatasetVersion: f.DatasetVersion,
				Mode:           mode,
			})
			if err != nil {
				return err
			}
			return writeImportResult(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "knowledge base name")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "update mode: smart or replace")
	cmd.Flags().StringVar(&opts.datasetVersion, "dataset-version", "", "dataset version label")
	return cmd
}

// parseImportFile accepts a request body object or a bare record array.
func parseImportFile(raw []byte) (*importFile, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, domain.ValidationError("import file is empty")
	}
	if trimmed[0] == '[' {
		return &importFile{Data: json.RawMessage(trimmed)}, nil
	}
	var f importFile
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, domain.ValidationError("invalid import file: %v", err)
	}
	return &f, nil
}

type importSummary struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	ItemCount int              `json:"itemCount"`
	Stats     domain.SyncStats `json:"stats"`
}

func writeImportResult(w io.Writer, result *domain.SyncResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(importSummary{
		ID:        result.ID,
		Name:      result.Name,
		ItemCount: result.ItemCount,
		Stats:     result.Stats,
	})
}
