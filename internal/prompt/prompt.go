package prompt

import (
	"fmt"
	"strings"

	"github.com/laissez-faire/mealplanner/internal/models"
)

// SystemInstruction describes the recipe schema and the standing rules sent
// ahead of every request.
const SystemInstruction = `You are a meal planning API. You do not invent recipes. You find REAL, existing recipes from reputable websites (like AllRecipes, FoodNetwork, SeriousEats, BonAppetit, NYT Cooking, etc).
Structure the response as an array of recipe objects.
Each object must have:
- id (number)
- title (string: The exact title from the website)
- description (short string)
- cuisine (string)
- kidFriendly (boolean)
- rating (number, between 3.0 and 5.0)
- reviewCount (number)
- ingredients (array of objects: {name, amount (number), unit, category, emoji (string)})
- instructions (array of strings - summary of steps)
- servings (number, default 4)
- sourceUrl (string: The ACTUAL URL to the specific recipe on the web. Do NOT use a search query URL.)
- imageSearchQuery (string: 2-4 keywords describing the finished dish for a stock photo search)

Categories must be one of: %s.
Minimize food waste by reusing ingredients across recipes where logical.
Prefer real recipes from reputable sources over invented ones.`

const (
	balancedDirective = "Balance cost, ease, and flavor."
	cheaperDirective  = "Prioritize recipes known for being budget-friendly."
	fewerDirective    = "Prioritize recipes with short ingredient lists (5-7 items)."
	fancierDirective  = "Prioritize highly-rated gourmet recipes."

	kidFriendlyClause = "Select recipes that are generally considered kid-friendly."
	outputClause      = "Return ONLY the JSON array, with no prose and no markdown code fences. Ensure 'sourceUrl' is a real, valid link."
)

// Directive returns the priority specific instruction. Unknown or empty
// priorities fall back to the balanced text.
func Directive(p models.Priority) string {
	switch p {
	case models.PriorityCheaperIngredients:
		return cheaperDirective
	case models.PriorityFewerIngredients:
		return fewerDirective
	case models.PriorityFancierMeals:
		return fancierDirective
	default:
		return balancedDirective
	}
}

// System returns the fixed schema instruction block.
func System() string {
	names := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		names[i] = string(c)
	}
	return fmt.Sprintf(SystemInstruction, strings.Join(names, ", "))
}

// Compose builds the full instruction payload for req. It performs no I/O
// and the same request always yields the same string.
func Compose(req models.RecipeRequest) string {
	var b strings.Builder
	b.WriteString(System())
	b.WriteString("\n")

	diet := strings.TrimSpace(req.Diet)
	if diet != "" {
		diet += " "
	}
	fmt.Fprintf(&b, "Find %d distinct %sdinner recipes for %d people.\n", req.Count, diet, req.People)

	if req.KidFriendly {
		b.WriteString(kidFriendlyClause)
		b.WriteString("\n")
	}
	b.WriteString(Directive(req.Priority))
	b.WriteString("\n")
	b.WriteString(outputClause)

	return b.String()
}
