package prompt

import (
	"strings"
	"testing"

	"github.com/laissez-faire/mealplanner/internal/models"
)

func TestComposeDeterministic(t *testing.T) {
	req := models.RecipeRequest{
		Count:       4,
		People:      3,
		Diet:        "pescatarian",
		KidFriendly: true,
		Priority:    models.PriorityFancierMeals,
	}

	first := Compose(req)
	for i := 0; i < 5; i++ {
		if got := Compose(req); got != first {
			t.Fatalf("Compose returned a different prompt on call %d", i+2)
		}
	}
}

func TestComposeFewerIngredientsRequest(t *testing.T) {
	got := Compose(models.RecipeRequest{
		Count:       3,
		People:      2,
		Diet:        "vegetarian",
		KidFriendly: true,
		Priority:    models.PriorityFewerIngredients,
	})

	for _, want := range []string{
		"Find 3 distinct vegetarian dinner recipes",
		"vegetarian",
		"2 people",
		"kid-friendly",
		"short ingredient lists",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}

	if !strings.HasSuffix(got, outputClause) {
		t.Errorf("Expected prompt to end with the JSON-only instruction, got tail %q", got[len(got)-80:])
	}
}

func TestDirective(t *testing.T) {
	tests := []struct {
		name     string
		priority models.Priority
		expected string
	}{
		{name: "balanced", priority: models.PriorityBalanced, expected: balancedDirective},
		{name: "cheaper", priority: models.PriorityCheaperIngredients, expected: cheaperDirective},
		{name: "fewer", priority: models.PriorityFewerIngredients, expected: fewerDirective},
		{name: "fancier", priority: models.PriorityFancierMeals, expected: fancierDirective},
		{name: "empty falls back", priority: "", expected: balancedDirective},
		{name: "unknown falls back", priority: "Spicier Meals", expected: balancedDirective},
		{name: "match is exact", priority: "fewer ingredients", expected: balancedDirective},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Directive(tt.priority); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestComposeOptionalClauses(t *testing.T) {
	got := Compose(models.RecipeRequest{Count: 2, People: 4})

	if strings.Contains(got, kidFriendlyClause) {
		t.Error("Expected no kid-friendly clause when kidFriendly is false")
	}
	if !strings.Contains(got, "Find 2 distinct dinner recipes for 4 people.") {
		t.Error("Expected blank diet to be omitted from the request line")
	}
	if !strings.Contains(got, balancedDirective) {
		t.Error("Expected balanced directive when priority is absent")
	}
}

func TestSystemListsCategories(t *testing.T) {
	got := System()
	for _, c := range models.Categories {
		if !strings.Contains(got, string(c)) {
			t.Errorf("Expected system instruction to list category %s", c)
		}
	}
	if strings.Contains(got, "%s") {
		t.Error("Expected category placeholder to be filled")
	}
	for _, want := range []string{"reusing ingredients", "REAL, existing recipes", "imageSearchQuery"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected system instruction to contain %q", want)
		}
	}
}
