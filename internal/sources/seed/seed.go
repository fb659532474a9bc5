// Package seed fills an empty dashboard with sample content, either the
// built-in set or a YAML file.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
)

//go:embed default.yaml
var defaultSeed []byte

type Bookmark struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

type Note struct {
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
}

type Todo struct {
	Text      string `yaml:"text"`
	Completed bool   `yaml:"completed"`
}

// Config is the root structure of a seed file.
type Config struct {
	Bookmarks []Bookmark       `yaml:"bookmarks"`
	Notes     []Note           `yaml:"notes"`
	Todos     []Todo           `yaml:"todos"`
	Settings  *domain.Settings `yaml:"settings"`
}

// Loader reads a seed file. An empty path selects the built-in samples.
type Loader struct {
	filePath string
}

func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Load reads and parses the seed file.
func (l *Loader) Load() (Config, error) {
	data := defaultSeed
	if l.filePath != "" {
		var err error
		data, err = os.ReadFile(l.filePath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read seed file: %w", err)
		}
	}
	return Parse(data)
}

// Parse decodes seed YAML after expanding {{VAR}} placeholders.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(expandVariables(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse seed yaml: %w", err)
	}
	return cfg, nil
}

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// expandVariables replaces {{NAME}} with the NAME environment variable.
// Example: url: {{NAS_URL}} -> url: http://nas.lan
func expandVariables(data []byte) []byte {
	return placeholder.ReplaceAllFunc(data, func(m []byte) []byte {
		name := placeholder.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// Store is the part of the entity store seeding writes to.
type Store interface {
	AddBookmark(title, rawURL string) (domain.Bookmark, error)
	AddNote(title, content string) (domain.Note, error)
	AddTodo(text string) (domain.Todo, error)
	ToggleTodo(id int64) (domain.Todo, error)
	SetSettings(domain.Settings) domain.Settings
	Count() map[domain.Kind]int
}

// Result lists how many entities were seeded per collection.
type Result map[domain.Kind]int

// Apply adds the seed content to every collection of st that is still empty.
// Settings are applied only when all collections were empty.
// Invalid entries are skipped and reported in the joined error.
func Apply(st Store, cfg Config) (Result, error) {
	res := Result{}
	counts := st.Count()
	var errs []error

	if counts[domain.KindBookmarks] == 0 {
		for _, b := range cfg.Bookmarks {
			if _, err := st.AddBookmark(b.Title, b.URL); err != nil {
				errs = append(errs, fmt.Errorf("bookmark %q: %w", b.Title, err))
				continue
			}
			res[domain.KindBookmarks]++
		}
	}
	if counts[domain.KindNotes] == 0 {
		for _, n := range cfg.Notes {
			if _, err := st.AddNote(n.Title, n.Content); err != nil {
				errs = append(errs, fmt.Errorf("note %q: %w", n.Title, err))
				continue
			}
			res[domain.KindNotes]++
		}
	}
	if counts[domain.KindTodos] == 0 {
		for _, t := range cfg.Todos {
			todo, err := st.AddTodo(t.Text)
			if err == nil && t.Completed {
				_, err = st.ToggleTodo(todo.ID)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("todo %q: %w", t.Text, err))
				continue
			}
			res[domain.KindTodos]++
		}
	}
	// settings only on a true first run
	if cfg.Settings != nil && counts[domain.KindBookmarks]+counts[domain.KindNotes]+counts[domain.KindTodos] == 0 {
		st.SetSettings(*cfg.Settings)
	}
	return res, errors.Join(errs...)
}

// Kinds returns the collections Apply touched.
func (r Result) Kinds() []domain.Kind {
	var out []domain.Kind
	for _, k := range domain.Kinds {
		if r[k] > 0 {
			out = append(out, k)
		}
	}
	return out
}
