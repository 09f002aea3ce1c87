package file

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed prompts_readme.md
var promptsReadme []byte

var defaultPrompts = driven.DefaultPrompts()

// DefaultPrompts returns the built-in templates keyed by prompt name.
func DefaultPrompts() map[string]string {
	return driven.DefaultPrompts()
}

// PromptStore serves context-assembly templates from <dir>/<name>.txt.
// The directory is seeded with the defaults on first use, never
// overwriting existing files. Loaded templates are cached until Reload.
type PromptStore struct {
	dir   string
	cache cmap.ConcurrentMap[string, string]

	seedOnce sync.Once
	seedErr  error
}

// NewPromptStore returns a store rooted at dir, or ~/.ragkit/prompts when
// dir is empty. It does no I/O.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".ragkit", "prompts")
	}
	return &PromptStore{dir: dir, cache: cmap.New[string]()}, nil
}

// Dir returns the directory holding the template files.
func (s *PromptStore) Dir() string { return s.dir }

// Reload drops every cached template.
func (s *PromptStore) Reload() { s.cache.Clear() }

// Load returns the template for name. When the file cannot serve, the
// built-in text is used; names without one are an error.
func (s *PromptStore) Load(name string) (string, error) {
	s.seedOnce.Do(s.seed)

	if prompt, ok := s.cache.Get(name); ok {
		return prompt, nil
	}

	prompt, err := s.read(name)
	if err != nil || prompt == "" {
		fallback, ok := defaultPrompts[name]
		if !ok {
			if err == nil {
				err = errors.New("file is empty")
			}
			return "", fmt.Errorf("load prompt %q: %w", name, err)
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("prompt %s: %v, using built-in text", name, err)
		}
		return fallback, nil
	}

	// First writer wins so concurrent loads agree.
	s.cache.SetIfAbsent(name, prompt)
	prompt, _ = s.cache.Get(name)
	return prompt, nil
}

func (s *PromptStore) read(name string) (string, error) {
	if s.seedErr != nil {
		return "", s.seedErr
	}
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// seed creates the directory, the default templates and the README.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		logger.Warn("%v, using built-in prompts", s.seedErr)
		return
	}

	files := map[string][]byte{filepath.Join(s.dir, "README.md"): promptsReadme}
	for name, text := range defaultPrompts {
		files[s.path(name)] = []byte(text)
	}
	for path, content := range files {
		if err := writeIfMissing(path, content); err != nil {
			s.seedErr = err
			return
		}
	}
}

func writeIfMissing(path string, content []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
