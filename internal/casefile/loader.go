// Package casefile loads test case descriptors from YAML or JSON files.
//
// A file holds either a single case at the top level or a list under "cases".
// Steps may be written as one block of text or as a list of strings.
package casefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/verdict/internal/engine"
	verdicterrors "github.com/felixgeelhaar/verdict/internal/errors"
)

// Case is the on-disk form of one test case.
type Case struct {
	ID             string    `yaml:"id" json:"id"`
	Title          string    `yaml:"title" json:"title"`
	Description    string    `yaml:"description" json:"description"`
	Steps          StepsText `yaml:"steps" json:"steps"`
	ExpectedResult string    `yaml:"expected_result" json:"expected_result"`
	Priority       string    `yaml:"priority" json:"priority"`
}

// StepsText is raw step text. A YAML sequence is joined with newlines.
type StepsText string

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (s *StepsText) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*s = StepsText(value.Value)
		return nil
	case yaml.SequenceNode:
		var lines []string
		if err := value.Decode(&lines); err != nil {
			return fmt.Errorf("steps: %w", err)
		}
		*s = StepsText(strings.Join(lines, "\n"))
		return nil
	default:
		return fmt.Errorf("line %d: steps must be text or a list of text", value.Line)
	}
}

type document struct {
	Case  `yaml:",inline"`
	Cases []Case `yaml:"cases"`
}

// Repository loads descriptors from a source.
type Repository interface {
	Load(path string) ([]engine.Descriptor, error)
}

// FileRepository reads case files from disk.
type FileRepository struct{}

// NewFileRepository creates a file-based case repository
func NewFileRepository() *FileRepository {
	return &FileRepository{}
}

// Load reads a case file and returns its validated descriptors in file order.
// Cases without an id get "<file stem>-<n>".
func (r *FileRepository) Load(path string) ([]engine.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, verdicterrors.NewCaseNotFoundError(path)
		}
		return nil, verdicterrors.NewCaseParseError(path, formatOf(path), err)
	}

	return Parse(path, data)
}

// Parse decodes case file content. path is used for error messages and default ids.
// JSON is decoded by the YAML parser.
func Parse(path string, data []byte) ([]engine.Descriptor, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, verdicterrors.NewCaseParseError(path, formatOf(path), err)
	}

	cases := doc.Cases
	if len(cases) == 0 && doc.Case != (Case{}) {
		cases = []Case{doc.Case}
	} else if len(cases) > 0 && doc.Case != (Case{}) {
		return nil, verdicterrors.NewCaseInvalidError(path, "top-level case fields cannot be mixed with a cases list")
	}
	if len(cases) == 0 {
		return nil, verdicterrors.NewCaseEmptyError(path)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	seen := make(map[string]int, len(cases))
	out := make([]engine.Descriptor, 0, len(cases))

	for i, c := range cases {
		d, err := c.descriptor()
		if err != nil {
			return nil, verdicterrors.NewCaseInvalidError(path, fmt.Sprintf("case %d: %v", i+1, err))
		}
		if d.ID == "" {
			d.ID = fmt.Sprintf("%s-%d", stem, i+1)
		}
		if prev, dup := seen[d.ID]; dup {
			return nil, verdicterrors.NewCaseInvalidError(path, fmt.Sprintf("case %d: id %q already used by case %d", i+1, d.ID, prev))
		}
		seen[d.ID] = i + 1
		out = append(out, d)
	}

	return out, nil
}

// LoadAll loads every path in order. Ids must be unique across all files.
func LoadAll(repo Repository, paths []string) ([]engine.Descriptor, error) {
	var all []engine.Descriptor
	origin := make(map[string]string)

	for _, path := range paths {
		descriptors, err := repo.Load(path)
		if err != nil {
			return nil, err
		}
		for _, d := range descriptors {
			if other, dup := origin[d.ID]; dup {
				return nil, verdicterrors.NewCaseInvalidError(path, fmt.Sprintf("id %q is also defined in %s", d.ID, other))
			}
			origin[d.ID] = path
		}
		all = append(all, descriptors...)
	}

	return all, nil
}

func (c Case) descriptor() (engine.Descriptor, error) {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return engine.Descriptor{}, fmt.Errorf("title cannot be empty")
	}

	priority, err := engine.ParsePriority(c.Priority)
	if err != nil {
		return engine.Descriptor{}, err
	}

	return engine.Descriptor{
		ID:             strings.TrimSpace(c.ID),
		Title:          title,
		Description:    c.Description,
		Steps:          string(c.Steps),
		ExpectedResult: c.ExpectedResult,
		Priority:       priority,
	}, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

var defaultRepository = NewFileRepository()

// Load reads a case file using the default repository.
func Load(path string) ([]engine.Descriptor, error) {
	return defaultRepository.Load(path)
}
