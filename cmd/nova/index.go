package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jorge-rr00/newbackend/internal/cli"
	"github.com/jorge-rr00/newbackend/pkg/domain"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the knowledge index",
}

var indexAddCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Extract documents and add them to a domain index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label, _ := cmd.Flags().GetString("domain")
		chunk, _ := cmd.Flags().GetInt("chunk-size")
		d, ok := domain.ParseDomain(label)
		if !ok {
			return fmt.Errorf("%w: %q (use financial or legal)", domain.ErrInvalidDomain, label)
		}

		svc, err := openStorage(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := svc.OpenKnowledge(); err != nil {
			return err
		}
		ext, err := cli.NewExtractor(svc.Config.Extraction, svc.Logger)
		if err != nil {
			return err
		}

		n, err := cli.IndexFiles(cmd.Context(), ext, svc.Indexer, d, args, os.ReadFile, chunk)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d passages into %s\n", n, d)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexAddCmd)

	indexAddCmd.Flags().StringP("domain", "d", "", "Target domain: financial or legal")
	indexAddCmd.Flags().Int("chunk-size", cli.DefaultChunkSize, "Maximum passage length in characters")
	_ = indexAddCmd.MarkFlagRequired("domain")
}
