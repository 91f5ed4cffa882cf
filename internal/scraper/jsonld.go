package scraper

import (
	"encoding/json"
	"fmt"
	"strings"

	nethtml "golang.org/x/net/html"
)

// fromJSONLD returns the first schema.org Recipe found in the page's
// ld+json scripts, or nil.
func fromJSONLD(doc *nethtml.Node) *Recipe {
	var found *Recipe
	walk(doc, func(n *nethtml.Node) bool {
		if found != nil {
			return false
		}
		if n.Type != nethtml.ElementNode || n.Data != "script" || !strings.EqualFold(attr(n, "type"), "application/ld+json") {
			return true
		}
		if n.FirstChild == nil {
			return false
		}
		var data interface{}
		if err := json.Unmarshal([]byte(n.FirstChild.Data), &data); err != nil {
			return false
		}
		if obj := findRecipe(data); obj != nil {
			found = recipeFromSchema(obj)
		}
		return false
	})
	return found
}

func findRecipe(v interface{}) map[string]interface{} {
	switch node := v.(type) {
	case []interface{}:
		for _, item := range node {
			if r := findRecipe(item); r != nil {
				return r
			}
		}
	case map[string]interface{}:
		if isRecipeType(node["@type"]) {
			return node
		}
		if graph, ok := node["@graph"]; ok {
			return findRecipe(graph)
		}
	}
	return nil
}

func isRecipeType(t interface{}) bool {
	switch v := t.(type) {
	case string:
		return v == "Recipe"
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

func recipeFromSchema(obj map[string]interface{}) *Recipe {
	r := &Recipe{
		Title:     CleanText(stringValue(obj["name"])),
		TotalTime: stringValue(obj["totalTime"]),
		Yield:     CleanText(stringValue(obj["recipeYield"])),
	}
	if list, ok := obj["recipeIngredient"].([]interface{}); ok {
		for _, item := range list {
			if text := CleanText(stringValue(item)); text != "" {
				r.Ingredients = append(r.Ingredients, text)
			}
		}
	}
	r.Instructions = instructions(obj["recipeInstructions"])
	return r
}

// instructions flattens recipeInstructions, which may be a string, a list of
// strings, HowToStep objects, or HowToSection objects holding steps.
func instructions(v interface{}) []string {
	var out []string
	switch node := v.(type) {
	case string:
		for _, line := range strings.Split(node, "\n") {
			if text := CleanText(line); text != "" {
				out = append(out, text)
			}
		}
	case []interface{}:
		for _, item := range node {
			out = append(out, instructions(item)...)
		}
	case map[string]interface{}:
		if items, ok := node["itemListElement"]; ok {
			return instructions(items)
		}
		if text := CleanText(stringValue(node["text"])); text != "" {
			out = append(out, text)
		} else if name := CleanText(stringValue(node["name"])); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// stringValue renders scalars and takes the first element of lists
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	case []interface{}:
		if len(val) > 0 {
			return stringValue(val[0])
		}
	}
	return ""
}
