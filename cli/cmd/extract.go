package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Lxiba/ResumeTruth-AI/internal/config"
	"github.com/Lxiba/ResumeTruth-AI/internal/extract"
	"github.com/spf13/cobra"
)

var extractJSON bool

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract plain text from a document",
	Long: `Extract runs the full tier pipeline against a local file and prints the
resulting plain text. Tier configuration (cloud OCR credentials, timeouts,
thresholds) is read the same way the server reads it: resumetruth.yaml plus
RESUMETRUTH_* environment variables.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print the full result as JSON")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	service := buildService(cfg)
	result, err := service.ExtractText(context.Background(), extract.Document{
		Data:     data,
		Filename: filepath.Base(path),
	})
	if err != nil {
		return err
	}

	if extractJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Text)
	if result.TooLong {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: text is %d characters, over the configured limit\n", result.Characters)
	}
	return nil
}

// buildService assembles the pipeline for one-shot CLI use, without metrics.
func buildService(cfg *config.Config) *extract.Service {
	ex := cfg.Extraction

	var cloud *extract.CloudOCRClient
	if ex.CloudOCR.Enabled {
		cloud = extract.NewCloudOCRClient(extract.CloudOCRConfig{
			APIKey:      ex.CloudOCR.APIKey,
			Endpoint:    ex.CloudOCR.Endpoint,
			Engine:      ex.CloudOCR.Engine,
			Language:    ex.CloudOCR.Language,
			MaxFileSize: ex.CloudOCR.MaxFileSize,
			Timeout:     ex.CloudOCR.Timeout,
		})
	}

	var localOCR *extract.LocalOCR
	if ex.LocalOCR.Enabled {
		engine := extract.NewTesseractEngine()
		if engine.Available() {
			localOCR = extract.NewLocalOCR(engine, ex.LocalOCR.Languages, ex.LocalOCR.PageTimeout)
		}
	}

	pipeline := extract.NewPipeline(
		cloud,
		extract.NewTextLayerExtractor(ex.MaxPages, ex.MinCharsPerPage),
		extract.NewPDFRasterizer(),
		localOCR,
		ex.MinCharsPerPage,
		nil,
	)

	return extract.NewService(pipeline, ex.TooLongThreshold)
}
