package assessment

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed catalog/default.yaml
var defaultCatalogYAML []byte

//go:embed catalog/schema.json
var catalogSchemaJSON string

// Catalog is an ordered, validated question set. It is read-only once built
// and safe to share between concurrent evaluations.
type Catalog struct {
	Version   string     `yaml:"version" json:"version"`
	Name      string     `yaml:"name" json:"name"`
	Questions []Question `yaml:"questions" json:"questions"`

	index map[string]int
}

// CatalogError lists every defect found while validating a catalog.
type CatalogError struct {
	Problems []string
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog invalid: %s", strings.Join(e.Problems, "; "))
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// DefaultCatalog returns the embedded question catalog.
func DefaultCatalog() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = ParseCatalog(defaultCatalogYAML)
	})
	return defaultCatalog, defaultErr
}

// LoadCatalog reads and validates a YAML or JSON catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: load %s", path)
	}
	return c, nil
}

// ParseCatalog decodes a catalog document, checks it against the catalog
// JSON schema and then validates cross-references.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "catalog: parse")
	}
	if err := checkSchema(doc); err != nil {
		return nil, err
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "catalog: decode")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func checkSchema(doc interface{}) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(catalogSchemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return eris.Wrap(err, "catalog: schema check")
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return &CatalogError{Problems: problems}
}

// NewCatalog builds a catalog from questions already in memory.
func NewCatalog(version string, questions []Question) (*Catalog, error) {
	c := &Catalog{Version: version, Questions: questions}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the semantic rules the schema cannot express and builds
// the id index. It returns a *CatalogError listing every problem.
func (c *Catalog) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(c.Questions) == 0 {
		add("catalog has no questions")
	}

	index := make(map[string]int, len(c.Questions))
	for i, q := range c.Questions {
		if q.ID == "" {
			add("question %d has no id", i)
			continue
		}
		if _, dup := index[q.ID]; dup {
			add("duplicate question id %q", q.ID)
			continue
		}
		index[q.ID] = i
	}

	for i, q := range c.Questions {
		if !q.Type.Valid() {
			add("question %q: unknown type %q", q.ID, q.Type)
		}
		if !q.Category.Valid() {
			add("question %q: unknown category %q", q.ID, q.Category)
		}
		if q.Weight <= 0 {
			add("question %q: weight must be positive", q.ID)
		}

		if q.CriticalThreshold != nil {
			if !q.Type.Numeric() {
				add("question %q: critical threshold only applies to percentage or number questions", q.ID)
			} else if *q.CriticalThreshold <= 0 {
				add("question %q: critical threshold must be positive", q.ID)
			}
		}

		if q.Type == TypeMultipleChoice {
			if len(q.Options) == 0 {
				add("question %q: multiple choice question has no options", q.ID)
			}
			tags := make(map[string]bool, len(q.Options))
			for _, opt := range q.Options {
				if opt.Text == "" {
					add("question %q: option with empty text", q.ID)
				}
				if opt.Tag != "" {
					if tags[opt.Tag] {
						add("question %q: duplicate option tag %q", q.ID, opt.Tag)
					}
					tags[opt.Tag] = true
				}
				if opt.Score < 0 || opt.Score > 100 {
					add("question %q: option %q score out of range", q.ID, opt.Text)
				}
				switch opt.Risk {
				case OptionRiskLow, OptionRiskMedium, OptionRiskHigh, OptionRiskCritical:
				default:
					add("question %q: option %q has unknown risk %q", q.ID, opt.Text, opt.Risk)
				}
			}
		} else if len(q.Options) > 0 {
			add("question %q: options are only allowed on multiple choice questions", q.ID)
		}

		for _, cond := range q.Conditions {
			if !cond.Operator.Valid() {
				add("question %q: unknown condition operator %q", q.ID, cond.Operator)
			}
			ref, ok := index[cond.QuestionID]
			switch {
			case !ok:
				add("question %q: condition references unknown question %q", q.ID, cond.QuestionID)
			case ref >= i:
				// The flow only looks forward, so a condition on a later
				// question could never be satisfied.
				add("question %q: condition references question %q which is not asked earlier", q.ID, cond.QuestionID)
			case cond.Operator == OpEquals && c.Questions[ref].Type == TypeMultipleChoice:
				if !hasOption(c.Questions[ref], answerString(cond.Value)) {
					add("question %q: condition value %q matches no option of %q", q.ID, answerString(cond.Value), cond.QuestionID)
				}
			}
		}
	}

	if len(problems) > 0 {
		return &CatalogError{Problems: problems}
	}
	c.index = index
	return nil
}

func hasOption(q Question, value string) bool {
	for _, opt := range q.Options {
		if opt.Text == value || (opt.Tag != "" && opt.Tag == value) {
			return true
		}
	}
	return false
}

// Question looks up a question by id.
func (c *Catalog) Question(id string) (Question, bool) {
	if c == nil {
		return Question{}, false
	}
	if c.index == nil {
		for _, q := range c.Questions {
			if q.ID == id {
				return q, true
			}
		}
		return Question{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return Question{}, false
	}
	return c.Questions[i], true
}

// Len returns the number of questions; NextQuestion returns it on completion.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Questions)
}
