// Package identity supplies the player's online credentials to outgoing reports.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"gamereporter/internal/logging"
)

// Provider returns the current uid and play key. Empty strings mean the
// player is not logged in.
type Provider interface {
	Credentials() (uid, playKey string)
}

// Static is a fixed credential pair.
type Static struct {
	UID     string
	PlayKey string
}

func (s Static) Credentials() (string, string) { return s.UID, s.PlayKey }

type userFile struct {
	UID     string `json:"uid"`
	PlayKey string `json:"playKey"`
}

// FileProvider reads credentials from a user.json file, re-reading it when
// its modification time or size changes.
type FileProvider struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	modTime time.Time
	size    int64
	cached  userFile
}

// NewFileProvider returns a provider backed by path.
func NewFileProvider(path string, logger *slog.Logger) *FileProvider {
	return &FileProvider{
		path:   strings.TrimSpace(path),
		logger: logging.NewComponentLogger(logger, "identity"),
	}
}

// Credentials returns the last successfully read credentials. A missing file
// clears them.
func (p *FileProvider) Credentials() (string, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.refreshLocked(); err != nil {
		p.logger.Debug("user file unreadable", logging.String("path", p.path), logging.Error(err))
	}
	return p.cached.UID, p.cached.PlayKey
}

func (p *FileProvider) refreshLocked() error {
	if p.path == "" {
		return nil
	}
	info, err := os.Stat(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.cached = userFile{}
			p.modTime = time.Time{}
			p.size = 0
			return nil
		}
		return fmt.Errorf("stat user file: %w", err)
	}
	if info.ModTime().Equal(p.modTime) && info.Size() == p.size {
		return nil
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read user file: %w", err)
	}
	var parsed userFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse user file: %w", err)
	}
	p.cached = userFile{UID: strings.TrimSpace(parsed.UID), PlayKey: strings.TrimSpace(parsed.PlayKey)}
	p.modTime = info.ModTime()
	p.size = info.Size()
	return nil
}
