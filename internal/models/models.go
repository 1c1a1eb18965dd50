package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Priority selects how the generation service trades off cost, effort and flair.
type Priority string

const (
	PriorityBalanced           Priority = "Balanced"
	PriorityCheaperIngredients Priority = "Cheaper Ingredients"
	PriorityFewerIngredients   Priority = "Fewer Ingredients"
	PriorityFancierMeals       Priority = "Fancier Meals"
)

// RecipeRequest holds the meal-planning preferences for one call.
// Missing fields are not validated; zero values are passed through.
type RecipeRequest struct {
	Count       int      `json:"count"`
	People      int      `json:"people"`
	Diet        string   `json:"diet"`
	KidFriendly bool     `json:"kidFriendly"`
	Priority    Priority `json:"priority"`
}

// UnmarshalJSON reads a request body leniently. A member of the wrong type
// is coerced where that is obvious (3.0 or "3" for a count, any truthy value
// for kidFriendly) and otherwise left at its zero value. Only syntactically
// invalid JSON is an error.
func (r *RecipeRequest) UnmarshalJSON(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("request body is not valid JSON")
	}

	*r = RecipeRequest{}
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		// Valid JSON that is not an object carries no fields.
		return nil
	}

	r.Count = readCount(raw, "count")
	r.People = readCount(raw, "people")
	r.Diet = readText(raw, "diet")
	r.KidFriendly = readTruthy(raw, "kidFriendly")

	var priority string
	if read(raw, "priority", &priority) {
		r.Priority = Priority(priority)
	}
	return nil
}

func readCount(raw map[string]json.RawMessage, key string) int {
	var n float64
	if read(raw, key, &n) {
		return int(math.Trunc(n))
	}
	var s string
	if read(raw, key, &s) {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return int(math.Trunc(n))
		}
	}
	return 0
}

func readText(raw map[string]json.RawMessage, key string) string {
	var s string
	if read(raw, key, &s) {
		return s
	}
	var v any
	if read(raw, key, &v) {
		switch v.(type) {
		case float64, bool:
			return string(bytes.TrimSpace(raw[key]))
		}
	}
	return ""
}

func readTruthy(raw map[string]json.RawMessage, key string) bool {
	var v any
	if !read(raw, key, &v) {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// Category is the shopping aisle an ingredient belongs to.
type Category string

const (
	CategoryProduce      Category = "Produce"
	CategoryMeat         Category = "Meat"
	CategoryPantry       Category = "Pantry"
	CategoryDairy        Category = "Dairy"
	CategoryBakery       Category = "Bakery"
	CategorySpices       Category = "Spices"
	CategoryRefrigerated Category = "Refrigerated"
)

// Categories lists the allowed ingredient categories in display order.
var Categories = []Category{
	CategoryProduce,
	CategoryMeat,
	CategoryPantry,
	CategoryDairy,
	CategoryBakery,
	CategorySpices,
	CategoryRefrigerated,
}

// Valid reports whether c is one of the fixed categories. Parsing never
// calls this; out-of-enum values are passed through to callers untouched.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Ingredient is a single line of a recipe's ingredient list.
type Ingredient struct {
	Name     string   `json:"name"`
	Amount   float64  `json:"amount"`
	Unit     string   `json:"unit"`
	Category Category `json:"category"`
	Emoji    string   `json:"emoji,omitempty"`
}

// DefaultServings is assumed when the model omits servings.
const DefaultServings = 4

// Recipe is one recipe record as returned by the generation service.
//
// The typed fields are a read-only view of the model's JSON object. The
// object itself is kept member by member and re-encoded unchanged, so values
// that do not fit the typed view (a string amount, an unknown category, extra
// members) survive a round trip. ImageURL is the only field written after
// parsing; use SetImageURL.
type Recipe struct {
	ID               float64      `json:"id"`
	Title            string       `json:"title"`
	Description      string       `json:"description,omitempty"`
	Cuisine          string       `json:"cuisine,omitempty"`
	KidFriendly      bool         `json:"kidFriendly"`
	Rating           *float64     `json:"rating,omitempty"`
	ReviewCount      *int         `json:"reviewCount,omitempty"`
	Ingredients      []Ingredient `json:"ingredients"`
	Instructions     []string     `json:"instructions"`
	Servings         int          `json:"servings"`
	SourceURL        string       `json:"sourceUrl"`
	ImageSearchQuery string       `json:"imageSearchQuery,omitempty"`
	ImageURL         *string      `json:"imageUrl"`

	raw      map[string]json.RawMessage
	keys     []string
	resolved bool
}

// SetImageURL records the outcome of image resolution. A nil url is
// encoded as "imageUrl": null.
func (r *Recipe) SetImageURL(url *string) {
	r.ImageURL = url
	r.resolved = true
}

// Raw returns the verbatim JSON of a member of the original object.
func (r *Recipe) Raw(key string) (json.RawMessage, bool) {
	v, ok := r.raw[key]
	return v, ok
}

// UnmarshalJSON keeps every member of the object and fills the typed view on
// a best-effort basis. Only a non-object value is an error.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("recipe must be a JSON object")
	}

	raw, keys, err := decodeObject(trimmed)
	if err != nil {
		return err
	}

	*r = Recipe{raw: raw, keys: keys, Servings: DefaultServings}

	read(raw, "id", &r.ID)
	read(raw, "title", &r.Title)
	read(raw, "description", &r.Description)
	read(raw, "cuisine", &r.Cuisine)
	read(raw, "kidFriendly", &r.KidFriendly)
	read(raw, "rating", &r.Rating)
	read(raw, "reviewCount", &r.ReviewCount)
	read(raw, "instructions", &r.Instructions)
	read(raw, "servings", &r.Servings)
	read(raw, "sourceUrl", &r.SourceURL)
	read(raw, "imageSearchQuery", &r.ImageSearchQuery)
	if v, ok := raw["imageUrl"]; ok {
		r.resolved = true
		_ = json.Unmarshal(v, &r.ImageURL)
	}

	// Ingredients are read one by one so a single odd entry does not
	// blank the whole list.
	var items []json.RawMessage
	if read(raw, "ingredients", &items) {
		r.Ingredients = make([]Ingredient, 0, len(items))
		for _, item := range items {
			var ing Ingredient
			if err := json.Unmarshal(item, &ing); err != nil {
				ing = Ingredient{}
				fields := map[string]json.RawMessage{}
				_ = json.Unmarshal(item, &fields)
				read(fields, "name", &ing.Name)
				read(fields, "amount", &ing.Amount)
				read(fields, "unit", &ing.Unit)
				read(fields, "category", &ing.Category)
				read(fields, "emoji", &ing.Emoji)
			}
			r.Ingredients = append(r.Ingredients, ing)
		}
	}

	return nil
}

// MarshalJSON re-emits the original members, adding imageUrl once
// resolution has run. Recipes built in code encode from the typed fields.
func (r Recipe) MarshalJSON() ([]byte, error) {
	if r.raw == nil {
		type plain Recipe
		if r.resolved {
			return json.Marshal(plain(r))
		}
		return json.Marshal(struct {
			plain
			ImageURL *string `json:"imageUrl,omitempty"`
		}{plain: plain(r)})
	}

	var image []byte
	if r.resolved {
		var err error
		if image, err = json.Marshal(r.ImageURL); err != nil {
			return nil, err
		}
	}

	// Members keep the order the model wrote them in.
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string, value []byte) {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(value)
	}
	for _, k := range r.keys {
		if k == "imageUrl" && r.resolved {
			write(k, image)
			continue
		}
		write(k, r.raw[k])
	}
	if _, ok := r.raw["imageUrl"]; r.resolved && !ok {
		write("imageUrl", image)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeObject splits a JSON object into its members, recording the order
// of first appearance. A repeated key keeps its first position and last value.
func decodeObject(data []byte) (map[string]json.RawMessage, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}

	raw := map[string]json.RawMessage{}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		if _, seen := raw[key]; !seen {
			keys = append(keys, key)
		}
		raw[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return raw, keys, nil
}

// read decodes raw[key] into dst only when the member is present, non-null
// and of the right type; dst is left alone otherwise.
func read[T any](raw map[string]json.RawMessage, key string, dst *T) bool {
	v, ok := raw[key]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return false
	}
	var val T
	if err := json.Unmarshal(v, &val); err != nil {
		return false
	}
	*dst = val
	return true
}
