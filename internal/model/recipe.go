package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// EmbeddingDimensions is the width of the recipe embedding column
const EmbeddingDimensions = 16

var (
	// ErrDuplicateRecipe is returned when a recipe with the same title exists
	ErrDuplicateRecipe = errors.New("recipe already exists")
	// ErrRecipeNotFound is returned when no recipe matches the lookup
	ErrRecipeNotFound = errors.New("recipe not found")
)

// Recipe is a stored recipe. Title is the natural key.
type Recipe struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Title           string          `gorm:"size:255;not null;uniqueIndex:idx_recipes_title,expression:LOWER(title)" json:"title"`
	Cuisine         string          `gorm:"size:100;index" json:"cuisine"`
	Tags            TagList         `gorm:"type:jsonb;not null;default:'[]'" json:"tags"`
	Ingredients     IngredientList  `gorm:"type:jsonb;not null;default:'[]'" json:"ingredients"`
	Steps           StepList        `gorm:"type:jsonb;not null;default:'[]'" json:"steps"`
	PrepTimeMinutes int             `json:"prep_time_minutes"`
	CookTimeMinutes int             `json:"cook_time_minutes"`
	Servings        Servings        `json:"servings"`
	Difficulty      string          `gorm:"size:50;index" json:"difficulty"`
	Notes           string          `gorm:"type:text" json:"notes"`
	Likes           int             `gorm:"not null;default:0" json:"likes"`
	Featured        bool            `gorm:"not null;default:false;index" json:"featured"`
	ImagePath       string          `gorm:"size:512" json:"image_path,omitempty"`
	Embedding       pgvector.Vector `gorm:"type:vector(16)" json:"-"`
	Comments        []Comment       `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
}

func (Recipe) TableName() string {
	return "recipes"
}

// BeforeCreate assigns an id
func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// BeforeSave makes sure the vector column always holds a parseable value
func (r *Recipe) BeforeSave(tx *gorm.DB) error {
	if len(r.Embedding.Slice()) != EmbeddingDimensions {
		r.Embedding = pgvector.NewVector(make([]float32, EmbeddingDimensions))
	}
	if r.Tags == nil {
		r.Tags = TagList{}
	}
	if r.Steps == nil {
		r.Steps = StepList{}
	}
	if r.Ingredients == nil {
		r.Ingredients = IngredientList{}
	}
	return nil
}

// SearchText is the text the recipe embedding is computed from
func (r *Recipe) SearchText() string {
	parts := []string{r.Title, r.Cuisine, r.Difficulty}
	parts = append(parts, r.Tags...)
	for _, ing := range r.Ingredients {
		parts = append(parts, ing.Name)
	}
	return strings.Join(parts, " ")
}

// Ingredient is one line of a recipe's ingredient list
type Ingredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount,omitempty"`
	Unit   string `json:"unit,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// UnmarshalJSON accepts an object or a bare string naming the ingredient.
// Amount may be sent as a number.
func (i *Ingredient) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*i = Ingredient{Name: strings.TrimSpace(name)}
		return nil
	}

	var obj struct {
		Name   string          `json:"name"`
		Amount json.RawMessage `json:"amount"`
		Unit   string          `json:"unit"`
		Notes  string          `json:"notes"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid ingredient format: %w", err)
	}
	*i = Ingredient{Name: obj.Name, Unit: obj.Unit, Notes: obj.Notes, Amount: rawScalar(obj.Amount)}
	return nil
}

// IngredientList is stored as JSONB
type IngredientList []Ingredient

// Value implements the driver.Valuer interface
func (l IngredientList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]Ingredient(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (l *IngredientList) Scan(value interface{}) error {
	if value == nil {
		*l = IngredientList{}
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}
	var out []Ingredient
	if err := json.Unmarshal(bytes, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

// TagList accepts a JSON list, a JSON-encoded list inside a string, or a
// comma separated string.
type TagList JSONBStringArray

func (t *TagList) UnmarshalJSON(data []byte) error {
	items, err := flexibleList(data, splitComma)
	if err != nil {
		return fmt.Errorf("invalid tags format: %w", err)
	}
	*t = items
	return nil
}

func (t TagList) Value() (driver.Value, error) { return JSONBStringArray(t).Value() }

func (t *TagList) Scan(value interface{}) error { return (*JSONBStringArray)(t).Scan(value) }

// StepList accepts a JSON list, a JSON-encoded list inside a string, or a
// newline separated string.
type StepList JSONBStringArray

func (s *StepList) UnmarshalJSON(data []byte) error {
	items, err := flexibleList(data, splitLines)
	if err != nil {
		return fmt.Errorf("invalid steps format: %w", err)
	}
	*s = items
	return nil
}

func (s StepList) Value() (driver.Value, error) { return JSONBStringArray(s).Value() }

func (s *StepList) Scan(value interface{}) error { return (*JSONBStringArray)(s).Scan(value) }

func flexibleList(data []byte, split func(string) []string) ([]string, error) {
	if string(data) == "null" {
		return []string{}, nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		return trimAll(list), nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return nil, err
	}
	str = strings.TrimSpace(str)
	if strings.HasPrefix(str, "[") {
		if err := json.Unmarshal([]byte(str), &list); err == nil {
			return trimAll(list), nil
		}
	}
	return split(str), nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func splitComma(s string) []string { return trimAll(strings.Split(s, ",")) }

var stepNumber = regexp.MustCompile(`^\d+[.)]\s*`)

func splitLines(s string) []string {
	lines := trimAll(strings.Split(s, "\n"))
	for i, l := range lines {
		lines[i] = stepNumber.ReplaceAllString(l, "")
	}
	return trimAll(lines)
}

// Servings can be sent as a number or a string such as "4 servings"
type Servings int

var leadingInt = regexp.MustCompile(`\d+`)

func (s *Servings) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*s = Servings(int(num))
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if m := leadingInt.FindString(str); m != "" {
			n, _ := strconv.Atoi(m)
			*s = Servings(n)
		} else {
			*s = 0
		}
		return nil
	}

	if string(data) == "null" {
		*s = 0
		return nil
	}
	return fmt.Errorf("invalid servings format")
}

func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.TrimSpace(str)
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return strconv.FormatFloat(num, 'f', -1, 64)
	}
	return strings.TrimSpace(string(raw))
}
