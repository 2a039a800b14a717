// Package seed loads the catalog provisioned into an empty ledger.
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/sma-merit-api/internal/models"
	appErrors "github.com/noah-isme/sma-merit-api/pkg/errors"
)

//go:embed default.yaml
var defaultDocument []byte

// Criterion is a catalog rule as written in the seed file. A nil
// AffectsMealCount leaves the flag to be derived from the absence keyword.
type Criterion struct {
	Content          string `yaml:"content"`
	Points           int    `yaml:"points"`
	AffectsMealCount *bool  `yaml:"affects_meal_count,omitempty"`
}

// Document is the full catalog seed.
type Document struct {
	Students        []models.Student `yaml:"students"`
	Staff           []models.Staff   `yaml:"staff"`
	StudentCriteria []Criterion      `yaml:"student_criteria"`
	StaffCriteria   []Criterion      `yaml:"staff_criteria"`
}

// Criteria returns the seed rules of one catalog.
func (d *Document) Criteria(catalog models.Catalog) []Criterion {
	if catalog == models.CatalogStaff {
		return d.StaffCriteria
	}
	return d.StudentCriteria
}

// Default returns the built-in demonstration catalog.
func Default() (*Document, error) {
	return Parse(defaultDocument)
}

// Load reads a seed file from disk, or the built-in catalog when path is empty.
func Load(path string) (*Document, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML seed document.
func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate enforces catalog integrity: unique keys, known enums and homeroom
// classes that exist among the students.
func (d *Document) Validate() error {
	classes := make(map[string]struct{})
	ids := make(map[string]struct{})
	for _, s := range d.Students {
		if s.ID == "" || s.Name == "" || s.Class == "" {
			return invalid("student %q requires id, name and class", s.ID)
		}
		if _, dup := ids[s.ID]; dup {
			return invalid("duplicate student id %q", s.ID)
		}
		if !s.BoardingType.Valid() {
			return invalid("student %q has unknown boarding type %q", s.ID, s.BoardingType)
		}
		ids[s.ID] = struct{}{}
		classes[s.Class] = struct{}{}
	}

	usernames := make(map[string]struct{})
	for _, s := range d.Staff {
		if s.Username == "" {
			return invalid("staff entry %q requires a username", s.FullName)
		}
		if _, dup := usernames[s.Username]; dup {
			return invalid("duplicate staff username %q", s.Username)
		}
		if !s.Role.Valid() {
			return invalid("staff %q has unknown role %q", s.Username, s.Role)
		}
		if s.HomeroomClass != "" {
			if _, ok := classes[s.HomeroomClass]; !ok {
				return invalid("staff %q homeroom class %q has no students", s.Username, s.HomeroomClass)
			}
		}
		usernames[s.Username] = struct{}{}
	}

	for _, catalog := range []models.Catalog{models.CatalogStudent, models.CatalogStaff} {
		seen := make(map[string]struct{})
		for _, c := range d.Criteria(catalog) {
			if strings.TrimSpace(c.Content) == "" {
				return invalid("%s criterion requires content", strings.ToLower(string(catalog)))
			}
			if _, dup := seen[c.Content]; dup {
				return invalid("duplicate %s criterion %q", strings.ToLower(string(catalog)), c.Content)
			}
			seen[c.Content] = struct{}{}
		}
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return appErrors.Clone(appErrors.ErrValidation, "seed: "+fmt.Sprintf(format, args...))
}
