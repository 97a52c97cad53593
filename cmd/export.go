package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var exportOutDir string

var exportCmd = &cobra.Command{
	Use:   "export [company]",
	Short: "Write the CSV export of a company",
	Long: `Write every analysis of a company, archived ones included, to a CSV file.
Omit the company to export analyses stored without one.`,
	Example: `  seo-dashboard export "Example Inc" --out exports
  seo-dashboard export`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		company := ""
		if len(args) == 1 {
			company = args[0]
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		filename, content, err := a.service.ExportCompany(cmd.Context(), company)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(exportOutDir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		path := filepath.Join(exportOutDir, filename)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		color.Green("✓ Exported to %s", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutDir, "out", "o", ".", "Output directory")
}
