package service

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"github.com/DevDeskHQ/devdesk_api/internal/utils"
)

// Front-matter field limits.
const (
	maxNameLen        = 64
	maxDescriptionLen = 200
)

// Definition is a parsed skill or agent markdown file: YAML front-matter plus
// the markdown body after the closing delimiter.
type Definition struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Body        string `yaml:"-" json:"body,omitempty"`
}

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// SkillService persists skill and agent definitions as markdown files under a
// fixed directory convention: <base>/<name>/<KIND>.md with a sibling
// resources/ folder. Definitions are never database rows.
type SkillService struct {
	baseDir  string
	fileName string
	markdown goldmark.Markdown
}

// NewSkillService creates a service rooted at baseDir writing files named
// fileName (SKILL.md or AGENT.md).
func NewSkillService(baseDir, fileName string) *SkillService {
	return &SkillService{
		baseDir:  baseDir,
		fileName: fileName,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// ParseDefinition splits and validates a markdown document with YAML
// front-matter. Violations come back as a field error list so handlers can
// return them in a structured 400; def is nil whenever fields is non-empty.
func ParseDefinition(content string) (*Definition, []utils.FieldError) {
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 || strings.TrimSpace(parts[0]) != "" {
		return nil, []utils.FieldError{{Field: "content", Message: "missing YAML front-matter block"}}
	}

	var def Definition
	if err := yaml.Unmarshal([]byte(parts[1]), &def); err != nil {
		return nil, []utils.FieldError{{Field: "content", Message: "malformed YAML front-matter"}}
	}
	def.Body = strings.TrimSpace(parts[2])

	var fields []utils.FieldError
	if def.Name == "" {
		fields = append(fields, utils.FieldError{Field: "name", Message: "name is required"})
	} else if utf8.RuneCountInString(def.Name) > maxNameLen {
		fields = append(fields, utils.FieldError{Field: "name", Message: fmt.Sprintf("name must be %d characters or less", maxNameLen)})
	} else if !nameRe.MatchString(def.Name) {
		fields = append(fields, utils.FieldError{Field: "name", Message: "name may only contain letters, digits, dots, dashes, and underscores"})
	}
	if def.Description == "" {
		fields = append(fields, utils.FieldError{Field: "description", Message: "description is required"})
	} else if utf8.RuneCountInString(def.Description) > maxDescriptionLen {
		fields = append(fields, utils.FieldError{Field: "description", Message: fmt.Sprintf("description must be %d characters or less", maxDescriptionLen)})
	}
	if fields != nil {
		return nil, fields
	}
	return &def, nil
}

// Save validates the document and writes it to
// <base>/<name>/<fileName>, creating the resources/ folder alongside.
// Nothing touches the filesystem when validation fails.
func (s *SkillService) Save(content string) (*Definition, []utils.FieldError, error) {
	def, fields := ParseDefinition(content)
	if fields != nil {
		return nil, fields, nil
	}

	dir := filepath.Join(s.baseDir, def.Name)
	if err := os.MkdirAll(filepath.Join(dir, "resources"), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating definition directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, s.fileName), []byte(content), 0o644); err != nil {
		return nil, nil, fmt.Errorf("writing definition: %w", err)
	}
	return def, nil, nil
}

// Get loads one definition by name.
func (s *SkillService) Get(name string) (*Definition, error) {
	if !nameRe.MatchString(name) {
		return nil, utils.ErrInvalidName
	}

	content, err := os.ReadFile(filepath.Join(s.baseDir, name, s.fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, utils.ErrNotFound
		}
		return nil, err
	}

	def, fields := ParseDefinition(string(content))
	if fields != nil {
		return nil, utils.ErrInvalidFrontMatter
	}
	return def, nil
}

// List scans the base directory and returns the metadata of every definition
// that parses. Entries that fail to parse are skipped, not fatal.
func (s *SkillService) List() ([]*Definition, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Definition{}, nil
		}
		return nil, err
	}

	defs := []*Definition{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		def, err := s.Get(entry.Name())
		if err != nil {
			continue
		}
		def.Body = ""
		defs = append(defs, def)
	}
	return defs, nil
}

// Preview renders a definition's markdown body to HTML.
func (s *SkillService) Preview(name string) (string, error) {
	def, err := s.Get(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(def.Body), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}
