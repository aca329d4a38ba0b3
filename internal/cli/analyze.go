package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sitepanel/sitepanel/internal/client"
	"github.com/sitepanel/sitepanel/internal/persona"
	"github.com/sitepanel/sitepanel/internal/report"
	"github.com/sitepanel/sitepanel/internal/service"
)

var (
	analyzePersona string
	analyzeRemote  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Run a single persona against a website",
	Long: `Run one persona through a website and print its journey report.

The persona is read from the personas YAML config by its key. With
--remote, the run is submitted to a sitepanel server as a background
job and progress is streamed here.

Examples:
  sitepanel analyze https://example.com --persona dev_dana
  sitepanel analyze https://example.com --persona buyer_bob --remote`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzePersona, "persona", "p", "", "persona key from the personas config (required)")
	analyzeCmd.Flags().BoolVar(&analyzeRemote, "remote", false, "submit to a sitepanel server instead of running locally")
	_ = analyzeCmd.MarkFlagRequired("persona")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	url := args[0]

	p, err := persona.LoadNamed(personasFile, analyzePersona)
	if err != nil {
		return err
	}

	if analyzeRemote {
		c := client.New("")
		jobID, err := c.StartAnalysis(cmd.Context(), client.AnalysisRequest{
			URL:     url,
			Persona: analyzePersona,
		})
		if err != nil {
			return fmt.Errorf("submit analysis: %w", err)
		}
		fmt.Printf("Submitted job %s\n", jobID)
		return runJobProgress(c, jobID)
	}

	svc, err := service.New(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Analyzing %s as %s...\n", url, p.Name)
	rep, err := svc.RunAnalysis(context.Background(), p, url)
	if rep != nil {
		printReport(rep)
	}
	return err
}

func printReport(rep *report.AnalysisReport) {
	fmt.Printf("\nPersona:  %s\n", rep.PersonaName)
	fmt.Printf("Site:     %s\n", rep.StartURL)
	fmt.Printf("Pages:    %d\n", len(rep.PagesAnalyzed))
	fmt.Printf("Coverage: %.0f%%\n", rep.InformationCoverage*100)
	fmt.Printf("Exit:     %s\n", rep.ExitReason)
	if len(rep.FoundCTAs) > 0 {
		fmt.Printf("CTAs:     %s\n", strings.Join(rep.FoundCTAs, ", "))
	}

	fmt.Println("\nJourney:")
	for i, step := range rep.NavigationPath {
		fmt.Printf("  %d. %s\n     %s\n", i+1, step.URL, step.Reason)
	}

	if rep.FinalConclusion != "" {
		fmt.Printf("\nConclusion:\n%s\n", rep.FinalConclusion)
	}
	if rep.Error != "" {
		fmt.Printf("\nRun ended with error: %s\n", rep.Error)
	}
}
