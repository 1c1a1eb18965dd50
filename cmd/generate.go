package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/laissez-faire/mealplanner/internal/models"
	"github.com/laissez-faire/mealplanner/internal/planner"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newGenerateCmd(root *rootOptions) *cobra.Command {
	var (
		req        models.RecipeRequest
		priority   string
		format     string
		promptOnly bool
		flags      providerFlags
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one batch of recipes and print it",
		Long: `Runs the same pipeline as POST /api/generate once and prints the
enriched recipes to stdout.`,
		Example: `  # Five vegetarian dinners for two, as YAML
  mealplanner generate --count 5 --people 2 --diet vegetarian --format yaml

  # Show the prompt without calling the model
  mealplanner generate --count 3 --people 4 --kid-friendly --prompt-only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unsupported format: %s", format)
			}
			req.Priority = models.Priority(priority)

			cfg, err := loadConfig(cmd, root, &flags)
			if err != nil {
				return err
			}
			svc, err := planner.New(cfg)
			if err != nil {
				return err
			}

			if promptOnly {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), svc.Prompt(req))
				return err
			}

			recipes, err := svc.Plan(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("failed to generate recipes: %w", err)
			}
			return writeRecipes(cmd.OutOrStdout(), recipes, format)
		},
	}

	cmd.Flags().IntVarP(&req.Count, "count", "n", 5, "Number of recipes")
	cmd.Flags().IntVar(&req.People, "people", 4, "Number of people to cook for")
	cmd.Flags().StringVar(&req.Diet, "diet", "", "Dietary restriction, e.g. vegetarian")
	cmd.Flags().BoolVar(&req.KidFriendly, "kid-friendly", false, "Prefer kid-friendly recipes")
	cmd.Flags().StringVar(&priority, "priority", string(models.PriorityBalanced),
		`Planning priority ("Balanced", "Cheaper Ingredients", "Fewer Ingredients", "Fancier Meals")`)
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json, yaml)")
	cmd.Flags().BoolVar(&promptOnly, "prompt-only", false, "Print the composed prompt and exit")
	flags.register(cmd)

	return cmd
}

// writeRecipes prints the batch exactly as the API would return it. YAML is
// produced from the JSON encoding so pass-through members survive.
func writeRecipes(w io.Writer, recipes []models.Recipe, format string) error {
	if recipes == nil {
		recipes = []models.Recipe{}
	}

	data, err := json.MarshalIndent(recipes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode recipes: %w", err)
	}

	if format == "json" {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to convert recipes: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write yaml: %w", err)
	}
	return enc.Close()
}
