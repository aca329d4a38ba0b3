package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sitepanel/sitepanel/internal/client"
	"github.com/sitepanel/sitepanel/internal/persona"
	"github.com/sitepanel/sitepanel/internal/report"
	"github.com/sitepanel/sitepanel/internal/service"
)

var (
	focusGroupPersonas []string
	focusGroupRemote   bool
)

var focusGroupCmd = &cobra.Command{
	Use:   "focus-group <url>",
	Short: "Run a panel of personas against a website",
	Long: `Run several personas through the same website and aggregate their
findings into a focus group report.

Without --persona flags, every persona in the personas config takes
part. With --remote, the run is submitted to a sitepanel server as a
background job and progress is streamed here.

Examples:
  sitepanel focus-group https://example.com
  sitepanel focus-group https://example.com -p dev_dana -p buyer_bob`,
	Args: cobra.ExactArgs(1),
	RunE: runFocusGroup,
}

func init() {
	focusGroupCmd.Flags().StringSliceVarP(&focusGroupPersonas, "persona", "p", nil, "persona key to include (repeatable, default all)")
	focusGroupCmd.Flags().BoolVar(&focusGroupRemote, "remote", false, "submit to a sitepanel server instead of running locally")
	rootCmd.AddCommand(focusGroupCmd)
}

func runFocusGroup(cmd *cobra.Command, args []string) error {
	url := args[0]

	if focusGroupRemote {
		c := client.New("")
		jobID, err := c.StartFocusGroup(cmd.Context(), client.FocusGroupRequest{
			URL:      url,
			Personas: focusGroupPersonas,
		})
		if err != nil {
			return fmt.Errorf("submit focus group: %w", err)
		}
		fmt.Printf("Submitted job %s\n", jobID)
		return runJobProgress(c, jobID)
	}

	group, err := loadGroup()
	if err != nil {
		return err
	}

	svc, err := service.New(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Running focus group of %d personas against %s...\n", len(group), url)
	rep, err := svc.RunFocusGroup(context.Background(), group, url)
	if rep != nil {
		printFocusGroupReport(rep)
	}
	return err
}

// loadGroup resolves the --persona flags against the personas config.
// No flags means every configured persona participates.
func loadGroup() ([]persona.Persona, error) {
	all, err := persona.LoadFile(personasFile)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no personas configured in %s", personasFile)
	}

	if len(focusGroupPersonas) == 0 {
		keys := make([]string, 0, len(all))
		for key := range all {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		group := make([]persona.Persona, 0, len(keys))
		for _, key := range keys {
			group = append(group, all[key])
		}
		return group, nil
	}

	group := make([]persona.Persona, 0, len(focusGroupPersonas))
	for _, key := range focusGroupPersonas {
		p, ok := all[key]
		if !ok {
			return nil, fmt.Errorf("persona %q not found in %s", key, personasFile)
		}
		group = append(group, p)
	}
	return group, nil
}

func printFocusGroupReport(rep *report.FocusGroupReport) {
	fmt.Printf("\nSite:     %s\n", rep.URL)
	fmt.Printf("Personas: %d\n", rep.NumPersonas)
	fmt.Printf("Status:   %s\n", rep.Status)

	printPatterns("Common likes", rep.CommonPatterns.Likes)
	printPatterns("Common dislikes", rep.CommonPatterns.Dislikes)
	printPatterns("Common expectations", rep.CommonPatterns.Expectations)

	fmt.Println("\nIndividual runs:")
	for _, r := range rep.IndividualReports {
		line := fmt.Sprintf("  %s: %d pages, coverage %.0f%%, exit: %s",
			r.PersonaName, len(r.PagesAnalyzed), r.InformationCoverage*100, r.ExitReason)
		if r.Error != "" {
			line += fmt.Sprintf(" (error: %s)", r.Error)
		}
		fmt.Println(line)
	}

	if rep.Summary != "" {
		fmt.Printf("\nSummary:\n%s\n", rep.Summary)
	}
}

func printPatterns(title string, patterns []report.PatternCount) {
	if len(patterns) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", title)
	for _, p := range patterns {
		text := p.Text
		if len(text) > 100 {
			text = strings.TrimSpace(text[:100]) + "..."
		}
		fmt.Printf("  %dx %s\n", p.Count, text)
	}
}
