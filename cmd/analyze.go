package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/seo-optimizer/dashboard/dashboard"
	"github.com/seo-optimizer/dashboard/store"
)

var analyzeCompany string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Analyze one page and store the result",
	Example: `  seo-dashboard analyze https://example.com --company "Example Inc"
  seo-dashboard analyze https://example.com/pricing`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		color.Cyan("🔎 Analyzing %s", args[0])
		_, record, err := a.service.Analyze(cmd.Context(), dashboard.NewState(), args[0], analyzeCompany)
		if err != nil {
			return err
		}
		color.Green("✓ Stored analysis %s", record.ID)
		printRecord(record)

		view, err := a.service.Recommendations(cmd.Context(), record.ID)
		if err != nil {
			return err
		}
		color.Cyan("\n📋 Score %.1f/100", view.Score)
		for _, rec := range view.Recommendations {
			color.Yellow("  • %s", rec)
		}
		return nil
	},
}

func printRecord(r *store.Record) {
	label := color.New(color.Bold).SprintFunc()
	pair := func(name, current, suggested, context string) {
		fmt.Printf("\n%s\n", label(name))
		fmt.Printf("  current:   %s\n", current)
		color.Green("  suggested: %s", suggested)
		if context != "" {
			fmt.Printf("  %s\n", context)
		}
	}
	pair("Title", r.CurrentTitle, r.SuggestedTitle, r.TitleContext)
	pair("Description", r.CurrentDescription, r.SuggestedDescription, r.DescriptionContext)
	pair("H1", r.CurrentH1, r.SuggestedH1, r.H1Context)

	fmt.Printf("\n%s\n", label("Metrics"))
	fmt.Printf("  readability:    %.2f\n", r.ReadabilityScore)
	fmt.Printf("  words:          %d\n", r.ContentLength)
	fmt.Printf("  load time:      %.2fs\n", r.PageSpeed)
	fmt.Printf("  page size:      %d bytes\n", r.PageSize)
	fmt.Printf("  mobile ready:   %t\n", r.MobileFriendly)
	fmt.Printf("  links:          %d internal, %d external\n", len(r.InternalLinks), len(r.ExternalLinks))
	if len(r.BrokenLinks) > 0 {
		color.Red("  broken links:   %d", len(r.BrokenLinks))
		for _, l := range r.BrokenLinks {
			color.Red("    %s", l)
		}
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeCompany, "company", "", "", "Company the page belongs to")
}
