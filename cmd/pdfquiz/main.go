package main

import (
	"os"

	"pdfquiz"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cli holds what every subcommand shares
type cli struct {
	configPath string
	verbose    bool
	cfg        *pdfquiz.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:   "pdfquiz",
		Short: "Summarize a PDF and quiz yourself on it from the terminal",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pdfquiz.LoadConfig(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			pdfquiz.SetVerbose(c.verbose || cfg.Log.Verbose)
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "path to YAML config (default config.yaml if present)")
	cmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newSummarizeCmd(c))
	cmd.AddCommand(newPlayCmd(c))
	cmd.AddCommand(newHistoryCmd(c))
	return cmd
}

func (c *cli) generator() *pdfquiz.Generator {
	return pdfquiz.NewGenerator(c.cfg.Generator())
}

// openArchive returns nil when no archive path is configured
func (c *cli) openArchive() (*pdfquiz.Archive, error) {
	if c.cfg.Archive.Path == "" {
		return nil, nil
	}
	archive, err := pdfquiz.OpenArchive(c.cfg.Archive.Path)
	if err != nil {
		return nil, err
	}
	if err := archive.CreateTables(); err != nil {
		archive.Close()
		return nil, err
	}
	return archive, nil
}
