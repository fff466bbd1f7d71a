// Package cmd provides the Cobra commands for the ResumeTruth CLI.
package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Global flags
	debug bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "resumetruth",
	Short: "ResumeTruth CLI - Extract text from resume documents",
	Long: `ResumeTruth CLI runs the document text-extraction pipeline locally.

It accepts PDF, DOCX, TXT and RTF files and returns the best-effort plain
text, falling back from cloud OCR to the embedded text layer to local
Tesseract OCR as needed.

Get started:
  resumetruth extract resume.pdf
  resumetruth --help`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		if debug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		}
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
}
