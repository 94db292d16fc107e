// Package prompt implements the Prompt Assembler: it loads the named
// system/example templates from a YAML store and substitutes placeholders
// into an ordered message sequence.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template is one named, placeholder-bearing prompt fragment.
type Template struct {
	Name string `yaml:"name"`
	Text string `yaml:"text"`
}

// Store is a YAML file of named templates, mirroring the shape of the
// engine's own config file.
type Store struct {
	templates map[string]string
}

type storeFile struct {
	Templates []Template `yaml:"templates"`
}

// LoadStore reads a template store from path.
func LoadStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompt: read template store: %w", err)
	}
	var f storeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("prompt: parse template store: %w", err)
	}
	s := &Store{templates: make(map[string]string, len(f.Templates))}
	for _, t := range f.Templates {
		s.templates[t.Name] = t.Text
	}
	return s, nil
}

// NewStoreFromMap builds a Store directly, used by tests and by callers
// that want the built-in defaults without a file on disk.
func NewStoreFromMap(templates map[string]string) *Store {
	return &Store{templates: templates}
}

// Get returns the named template's raw, unsubstituted text.
func (s *Store) Get(name string) (string, bool) {
	t, ok := s.templates[name]
	return t, ok
}

// Substitute replaces every {placeholder} key present in vars. It does not
// panic: if any {...} span survives substitution it returns an error naming
// the first one.
func Substitute(template string, vars map[string]string) (string, error) {
	out := template
	for key, val := range vars {
		out = strings.ReplaceAll(out, "{"+key+"}", val)
	}
	if idx := strings.IndexByte(out, '{'); idx >= 0 {
		if end := strings.IndexByte(out[idx:], '}'); end >= 0 {
			return "", fmt.Errorf("prompt: unresolved placeholder %q", out[idx:idx+end+1])
		}
	}
	return out, nil
}

// DefaultTemplates are the built-in fragments used when no store file is
// configured, named after spec.md's assembler placeholders.
func DefaultTemplates() map[string]string {
	return map[string]string{
		"system": "You are an expert code editor. Reply only using {fence_0}<lang>\n" +
			"SEARCH/REPLACE blocks in the {format} format, fenced with {fence_0}/{fence_1}.\n" +
			"{quad_backtick_reminder}\n{shell_cmd_prompt_section}\n{final_reminders}",
		"example_user":      "Change the greeting to say hello to {language} speakers.",
		"example_assistant": "main.py\n{fence_0}python\n<<<<<<< SEARCH\nprint(\"hi\")\n=======\nprint(\"hello\")\n>>>>>>> REPLACE\n{fence_1}",
	}
}
