// Package credentials supplies music-provider bearer tokens that are
// injected into rendered sources and handed out by the OAuth endpoint.
package credentials

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/soundgate/internal/logger"
)

type tokenFile struct {
	Tokens map[string]string `yaml:"tokens"`
}

// FileSource serves tokens from a YAML file of the form
//
//	tokens:
//	  SPOTIFY: BQD...
//
// The file is re-read when its modification time changes, so an external
// refresher can rotate tokens without a restart.
type FileSource struct {
	path   string
	logger logger.Logger

	mu     sync.Mutex
	mtime  time.Time
	tokens map[string]string
}

func NewFileSource(path string, log logger.Logger) (*FileSource, error) {
	s := &FileSource{path: path, logger: log}
	if err := s.reloadIfChanged(); err != nil {
		return nil, err
	}
	return s, nil
}

// Token implements codec.CredentialSource.
func (s *FileSource) Token(_ context.Context, providerType string) (string, bool) {
	if err := s.reloadIfChanged(); err != nil {
		s.logger.Warn("failed to reload token file, using cached tokens",
			logger.String("file", s.path),
			logger.Error(err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[strings.ToUpper(providerType)]
	return tok, ok && tok != ""
}

func (s *FileSource) reloadIfChanged() error {
	fi, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("stat token file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens != nil && fi.ModTime().Equal(s.mtime) {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read token file: %w", err)
	}
	var f tokenFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse token file: %w", err)
	}
	tokens := make(map[string]string, len(f.Tokens))
	for k, v := range f.Tokens {
		tokens[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	s.tokens = tokens
	s.mtime = fi.ModTime()
	s.logger.Info("provider tokens loaded",
		logger.String("file", s.path),
		logger.Int("providers", len(tokens)))
	return nil
}
