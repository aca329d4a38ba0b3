package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sitepanel/sitepanel/internal/llm"
	"github.com/sitepanel/sitepanel/internal/persona"
)

var (
	generateRole    string
	generateLevel   string
	generateGoal    string
	generateContext string
	generateCount   int
	generateOutput  string
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "Manage analysis personas",
}

var personasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured personas",
	Run: func(cmd *cobra.Command, args []string) {
		all, err := persona.LoadFile(personasFile)
		if err != nil {
			exitWithError("loading personas: %v", err)
		}
		if len(all) == 0 {
			fmt.Printf("No personas configured in %s\n", personasFile)
			return
		}

		keys := make([]string, 0, len(all))
		for key := range all {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			p := all[key]
			fmt.Printf("%s: %s\n", key, p.Name)
			fmt.Printf("  interests: %s\n", strings.Join(p.Interests, ", "))
			fmt.Printf("  needs:     %s\n", strings.Join(p.Needs, ", "))
			if len(p.Goals) > 0 {
				fmt.Printf("  goals:     %s\n", strings.Join(p.Goals, ", "))
			}
		}
	},
}

var personasGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate persona variations from a template",
	Long: `Generate persona variations from a role template using the model.

The generated personas are printed as YAML, keyed by their file slug,
in the same format the personas config uses. With --output they are
written to a file instead.

Example:
  sitepanel personas generate --role "backend developer" \
    --goal "evaluate the product for the team" --count 3`,
	RunE: runPersonasGenerate,
}

func init() {
	personasGenerateCmd.Flags().StringVar(&generateRole, "role", "", "role of the user, e.g. \"backend developer\" (required)")
	personasGenerateCmd.Flags().StringVar(&generateLevel, "experience-level", "", "experience level, e.g. \"senior\"")
	personasGenerateCmd.Flags().StringVar(&generateGoal, "goal", "", "primary goal on the website (required)")
	personasGenerateCmd.Flags().StringVar(&generateContext, "context", "", "situation the persona is in")
	personasGenerateCmd.Flags().IntVar(&generateCount, "count", 1, "number of variations to generate")
	personasGenerateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "write the personas as YAML to this file")
	_ = personasGenerateCmd.MarkFlagRequired("role")
	_ = personasGenerateCmd.MarkFlagRequired("goal")

	personasCmd.AddCommand(personasListCmd)
	personasCmd.AddCommand(personasGenerateCmd)
	rootCmd.AddCommand(personasCmd)
}

func runPersonasGenerate(cmd *cobra.Command, args []string) error {
	model, err := llm.NewModel(cfg)
	if err != nil {
		return err
	}
	limiter := llm.NewLimiter(model, cfg.MinCallDelay, cfg.MaxCallDelay, logger)

	tmpl := persona.Template{
		Role:            generateRole,
		ExperienceLevel: generateLevel,
		PrimaryGoal:     generateGoal,
		Context:         generateContext,
	}

	gen := persona.NewGenerator(limiter, logger)
	personas, err := gen.Generate(context.Background(), tmpl, generateCount)
	if err != nil {
		return fmt.Errorf("generating personas: %w", err)
	}

	keyed := make(map[string]persona.Persona, len(personas))
	for _, p := range personas {
		keyed[p.FileSlug()] = p
	}
	out, err := yaml.Marshal(keyed)
	if err != nil {
		return err
	}

	if generateOutput != "" {
		if err := os.WriteFile(generateOutput, out, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", generateOutput, err)
		}
		fmt.Printf("Wrote %d personas to %s\n", len(personas), generateOutput)
		return nil
	}
	fmt.Print(string(out))
	return nil
}
