package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pantryscout/backend/internal/llm"
	"github.com/pantryscout/backend/internal/logger"
	"github.com/pantryscout/backend/internal/model"
	"github.com/pantryscout/backend/internal/scraper"
	"go.uber.org/zap"
)

var (
	// ErrEmptyQuery is returned when no recipe query was given
	ErrEmptyQuery = errors.New("query is required")
	// ErrIncompleteRecipe is returned when the LLM answer lacks a title
	ErrIncompleteRecipe = errors.New("generated recipe is missing required fields")
)

// RecipeSource finds and scrapes recipes from the web
type RecipeSource interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
	Extract(ctx context.Context, url string) (*scraper.Recipe, error)
}

// GeneratedRecipe is a recipe synthesized by the LLM. Content is a
// readable rendition; the structured fields are filled when the LLM
// supplied them.
type GeneratedRecipe struct {
	Title           string               `json:"title"`
	Content         string               `json:"content"`
	Cuisine         string               `json:"cuisine,omitempty"`
	Tags            model.TagList        `json:"tags,omitempty"`
	Ingredients     model.IngredientList `json:"ingredients,omitempty"`
	Steps           model.StepList       `json:"steps,omitempty"`
	PrepTimeMinutes int                  `json:"prep_time_minutes,omitempty"`
	CookTimeMinutes int                  `json:"cook_time_minutes,omitempty"`
	Servings        int                  `json:"servings,omitempty"`
	Difficulty      string               `json:"difficulty,omitempty"`
	Notes           string               `json:"notes,omitempty"`
	SearchQuery     string               `json:"search_query,omitempty"`
	SourceURL       string               `json:"source_url,omitempty"`
}

// ToRecipe converts the generated recipe into a storable one
func (g *GeneratedRecipe) ToRecipe() *model.Recipe {
	notes := g.Notes
	if len(g.Ingredients) == 0 && len(g.Steps) == 0 && notes == "" {
		notes = g.Content
	}
	return &model.Recipe{
		Title:           g.Title,
		Cuisine:         g.Cuisine,
		Tags:            g.Tags,
		Ingredients:     g.Ingredients,
		Steps:           g.Steps,
		PrepTimeMinutes: g.PrepTimeMinutes,
		CookTimeMinutes: g.CookTimeMinutes,
		Servings:        model.Servings(g.Servings),
		Difficulty:      g.Difficulty,
		Notes:           notes,
	}
}

// RecipeGenerator chains query rewriting, web scraping and LLM synthesis
type RecipeGenerator struct {
	llm      llm.Client
	rewriter llm.Client
	source   RecipeSource
	results  int
	log      *zap.Logger
}

// NewRecipeGenerator creates a generator. rewriter is the cheaper model used
// to turn a loose query into a dish name; nil reuses client.
func NewRecipeGenerator(client, rewriter llm.Client, source RecipeSource) *RecipeGenerator {
	if rewriter == nil {
		rewriter = client
	}
	return &RecipeGenerator{
		llm:      client,
		rewriter: rewriter,
		source:   source,
		results:  3,
		log:      logger.Named("generator"),
	}
}

// Generate produces a recipe for a free-form query
func (g *RecipeGenerator) Generate(ctx context.Context, query string) (*GeneratedRecipe, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	search := g.searchQuery(ctx, query)
	scraped := g.scrape(ctx, search)
	if scraped == nil {
		g.log.Warn("no recipe found, using a basic outline", zap.String("search", search))
		scraped = basicRecipe(query)
	}

	var raw map[string]json.RawMessage
	if err := g.llm.GenerateJSON(ctx, synthesisPrompt(query, scraped), &raw); err != nil {
		return nil, fmt.Errorf("failed to generate recipe: %w", err)
	}

	recipe, err := normalizeGenerated(raw)
	if err != nil {
		return nil, err
	}
	recipe.SearchQuery = search
	recipe.SourceURL = scraped.URL
	return recipe, nil
}

func (g *RecipeGenerator) searchQuery(ctx context.Context, query string) string {
	fallback := query + " recipe"
	prompt := fmt.Sprintf("Given the recipe query %q, name one specific dish that is most likely to yield good search results. "+
		"Use a specific recipe name rather than a category, for example \"spaghetti carbonara recipe\" instead of \"pasta\". "+
		"Answer with the search text only.", query)

	text, err := g.rewriter.Generate(ctx, prompt)
	if err != nil {
		g.log.Warn("query rewrite failed", zap.Error(err))
		return fallback
	}
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(text), "\n", 2)[0])
	line = strings.Trim(line, "\"'` ")
	if line == "" {
		return fallback
	}
	return line
}

func (g *RecipeGenerator) scrape(ctx context.Context, search string) *scraper.Recipe {
	links, err := g.source.Search(ctx, search, g.results)
	if err != nil {
		g.log.Warn("recipe search failed", zap.String("search", search), zap.Error(err))
		return nil
	}
	for _, link := range links {
		recipe, err := g.source.Extract(ctx, link)
		if err != nil {
			g.log.Debug("recipe extraction failed", zap.String("url", link), zap.Error(err))
			continue
		}
		if !recipe.Empty() {
			return recipe
		}
	}
	return nil
}

func basicRecipe(query string) *scraper.Recipe {
	return &scraper.Recipe{
		Title:        fmt.Sprintf("Basic %s Recipe", query),
		Ingredients:  []string{"1 cup of basic ingredient", "2 cups of another ingredient"},
		Instructions: []string{"Mix all ingredients together and cook until done."},
		Yield:        "2 servings",
		TotalTime:    "30 minutes",
	}
}

func synthesisPrompt(query string, r *scraper.Recipe) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here is a recipe found for %q.\n\n", query)
	fmt.Fprintf(&b, "Title: %s\n", r.Title)
	if r.Yield != "" {
		fmt.Fprintf(&b, "Yield: %s\n", r.Yield)
	}
	if r.TotalTime != "" {
		fmt.Fprintf(&b, "Total time: %s\n", r.TotalTime)
	}
	b.WriteString("Ingredients:\n")
	for _, ing := range r.Ingredients {
		fmt.Fprintf(&b, "- %s\n", ing)
	}
	b.WriteString("Instructions:\n")
	for i, step := range r.Instructions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	fmt.Fprintf(&b, "\nWrite an original recipe for %q based on it, with a descriptive title, measured ingredients, "+
		"clear steps, servings, prep and cook time, tags and cuisine.\n", query)
	b.WriteString(`Use this JSON shape: {"title": string, "content": string, "cuisine": string, "tags": [string], ` +
		`"ingredients": [{"name": string, "amount": string, "unit": string, "notes": string}], "steps": [string], ` +
		`"prep_time_minutes": number, "cook_time_minutes": number, "servings": number, "difficulty": string, "notes": string}`)
	return b.String()
}

func normalizeGenerated(raw map[string]json.RawMessage) (*GeneratedRecipe, error) {
	if nested, ok := raw["recipe"]; ok && raw["title"] == nil {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(nested, &inner); err == nil {
			raw = inner
		}
	}

	title := jsonText(raw["title"])
	if title == "" {
		fields := make([]string, 0, len(raw))
		for k := range raw {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		return nil, fmt.Errorf("%w: title required, received [%s]", ErrIncompleteRecipe, strings.Join(fields, ", "))
	}

	r := &GeneratedRecipe{
		Title:           title,
		Cuisine:         jsonText(raw["cuisine"]),
		Difficulty:      jsonText(raw["difficulty"]),
		Notes:           jsonText(raw["notes"]),
		PrepTimeMinutes: jsonInt(raw["prep_time_minutes"]),
		CookTimeMinutes: jsonInt(raw["cook_time_minutes"]),
		Servings:        jsonInt(raw["servings"]),
	}
	decodeOptional(raw["tags"], &r.Tags)
	decodeOptional(raw["ingredients"], &r.Ingredients)
	decodeOptional(raw["steps"], &r.Steps)

	r.Content = contentText(raw["content"])
	if r.Content == "" {
		r.Content = synthesizeContent(r)
	}
	return r, nil
}

func decodeOptional(raw json.RawMessage, out interface{}) {
	if len(raw) == 0 || string(raw) == "null" {
		return
	}
	_ = json.Unmarshal(raw, out)
}

// jsonText renders a JSON value as text: strings as-is, anything else compact
func jsonText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

func jsonInt(raw json.RawMessage) int {
	var n model.Servings
	if len(raw) == 0 || json.Unmarshal(raw, &n) != nil {
		return 0
	}
	return int(n)
}

func contentText(raw json.RawMessage) string {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		lines := make([]string, 0, len(list))
		for _, item := range list {
			if line := jsonText(item); line != "" {
				lines = append(lines, line)
			}
		}
		return strings.Join(lines, "\n")
	}
	return jsonText(raw)
}

func synthesizeContent(r *GeneratedRecipe) string {
	var b strings.Builder
	b.WriteString(r.Title)
	if r.Servings > 0 {
		fmt.Fprintf(&b, "\nServes %d", r.Servings)
	}
	if len(r.Ingredients) > 0 {
		b.WriteString("\n\nIngredients:")
		for _, ing := range r.Ingredients {
			b.WriteString("\n- " + ingredientLine(ing))
		}
	}
	if len(r.Steps) > 0 {
		b.WriteString("\n\nInstructions:")
		for i, step := range r.Steps {
			b.WriteString("\n" + strconv.Itoa(i+1) + ". " + step)
		}
	}
	if r.Notes != "" {
		b.WriteString("\n\n" + r.Notes)
	}
	return b.String()
}

func ingredientLine(ing model.Ingredient) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{ing.Amount, ing.Unit, ing.Name} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	line := strings.Join(parts, " ")
	if ing.Notes != "" {
		line += " (" + ing.Notes + ")"
	}
	return line
}
