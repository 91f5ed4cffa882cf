package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/pantryscout/backend/config"
	"github.com/pantryscout/backend/internal/logger"
	"github.com/pantryscout/backend/internal/model"
	"github.com/pantryscout/backend/internal/server"
	"github.com/pantryscout/backend/internal/service"
	"go.uber.org/zap"
)

// Generates a recipe interactively and optionally stores it:
//
//	go run ./cmd/recipegen
//	go run ./cmd/recipegen -query "vegan lasagna" -out lasagna.json -save -featured
func main() {
	query := flag.String("query", "", "Dish to generate, prompted for when empty")
	out := flag.String("out", "", "File receiving the recipe (.json writes JSON, anything else the text)")
	save := flag.Bool("save", false, "Store the recipe in the database without asking")
	featured := flag.Bool("featured", false, "Mark the stored recipe as featured")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	logger.Init()
	defer logger.Close()
	log := logger.Named("recipegen")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	interactive := *query == ""
	if interactive {
		if err := survey.AskOne(&survey.Input{
			Message: "What would you like to cook?",
			Help:    "A dish, an ingredient or a cuisine, e.g. \"spicy tofu stir fry\"",
		}, query, survey.WithValidator(survey.Required)); err != nil {
			log.Fatal("prompt failed", zap.Error(err))
		}
	}

	generator, err := server.NewGenerator(cfg)
	if err != nil {
		log.Fatal("failed to create generator", zap.Error(err))
	}
	recipe, err := generator.Generate(ctx, *query)
	if err != nil {
		log.Fatal("failed to generate recipe", zap.Error(err))
	}
	fmt.Println(recipe.Content)
	if recipe.SourceURL != "" {
		fmt.Printf("\nBased on %s\n", recipe.SourceURL)
	}

	if *out == "" && interactive {
		var wantFile bool
		if err := survey.AskOne(&survey.Confirm{Message: "Save the recipe to a file?"}, &wantFile); err != nil {
			log.Fatal("prompt failed", zap.Error(err))
		}
		if wantFile {
			if err := survey.AskOne(&survey.Input{
				Message: "File name:",
				Default: fileName(recipe.Title),
			}, out, survey.WithValidator(survey.Required)); err != nil {
				log.Fatal("prompt failed", zap.Error(err))
			}
		}
	}
	if *out != "" {
		if err := writeRecipe(*out, recipe); err != nil {
			log.Fatal("failed to write recipe", zap.Error(err))
		}
		log.Info("wrote recipe", zap.String("file", *out))
	}

	if !*save && interactive {
		if err := survey.AskOne(&survey.Confirm{Message: "Store the recipe in the database?"}, save); err != nil {
			log.Fatal("prompt failed", zap.Error(err))
		}
	}
	if !*save {
		return
	}

	services, err := server.NewServices(ctx, cfg)
	if err != nil {
		log.Fatal("failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	stored, err := services.Recipes.CreateRecipe(ctx, recipe.ToRecipe())
	switch {
	case errors.Is(err, model.ErrDuplicateRecipe):
		log.Warn("a recipe with this title is already stored", zap.String("title", recipe.Title))
	case err != nil:
		log.Error("failed to store recipe", zap.Error(err))
	default:
		log.Info("stored recipe", zap.String("id", stored.ID.String()), zap.String("title", stored.Title))
		if *featured {
			if err := services.Recipes.SetFeatured(ctx, stored.ID, true); err != nil {
				log.Error("failed to feature recipe", zap.Error(err))
			}
		}
	}
}

// fileName turns a recipe title into a default JSON file name
func fileName(title string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, strings.TrimSpace(title))
	slug = strings.Trim(strings.Join(strings.FieldsFunc(slug, func(r rune) bool { return r == '-' }), "-"), "-")
	if slug == "" {
		slug = "recipe"
	}
	return slug + ".json"
}

func writeRecipe(path string, recipe *service.GeneratedRecipe) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := json.MarshalIndent(recipe, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode recipe: %w", err)
		}
		return os.WriteFile(path, data, 0o644)
	}
	return os.WriteFile(path, []byte(recipe.Content+"\n"), 0o644)
}
