package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"text/template"
)

//go:embed templates
var embedded embed.FS

// Manager handles loading and rendering of prompt templates.
type Manager struct {
	root *template.Template
}

// Load returns a manager for dir, or for the built-in templates when dir is empty.
func Load(dir string) (*Manager, error) {
	if dir == "" {
		return Default()
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("prompts dir: %w", err)
	}
	return NewManager(os.DirFS(dir))
}

// Default returns a manager for the built-in templates.
func Default() (*Manager, error) {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, err
	}
	return NewManager(sub)
}

// NewManager creates a prompt manager from the templates in fsys. Files under
// common/ are parsed first so their definitions are available to the rest.
func NewManager(fsys fs.FS) (*Manager, error) {
	m := &Manager{}
	m.root = template.New("root").Funcs(template.FuncMap{
		"join":  strings.Join,
		"quote": strconv.Quote,
		"upper": strings.ToUpper,
	})

	if err := m.loadCommon(fsys); err != nil {
		return nil, fmt.Errorf("loading common templates: %w", err)
	}

	if err := m.loadTemplates(fsys); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	return m, nil
}

func (m *Manager) loadCommon(fsys fs.FS) error {
	err := fs.WalkDir(fsys, "common", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".tmpl") {
			return nil
		}

		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		if _, err = m.root.Parse(string(content)); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (m *Manager) loadTemplates(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".tmpl") || strings.HasPrefix(path, "common/") {
			return nil
		}

		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		if _, err = m.root.New(path).Parse(string(content)); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		return nil
	})
}

// Render executes the named template with the provided data.
func (m *Manager) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := m.root.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
