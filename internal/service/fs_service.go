package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/DevDeskHQ/devdesk_api/internal/utils"
)

// maxFileReadSize caps editor file reads at 2 MiB.
const maxFileReadSize = 2 << 20

// FileInfo is one entry of a directory listing.
type FileInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	Mode    string    `json:"mode"`
	ModTime time.Time `json:"modTime"`
	IsDir   bool      `json:"isDir"`
}

// FSService exposes the workspace filesystem to the dashboard. Every path is
// resolved against an allow-list of roots before any syscall; requests outside
// the roots fail closed.
type FSService struct {
	roots []string
}

// NewFSService constructs a service allowing access under the given roots.
// Roots are normalized to absolute cleaned paths at startup.
func NewFSService(roots []string) (*FSService, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("at least one workspace root required")
	}
	abs := make([]string, 0, len(roots))
	for _, root := range roots {
		a, err := filepath.Abs(filepath.Clean(root))
		if err != nil {
			return nil, fmt.Errorf("resolving root %q: %w", root, err)
		}
		abs = append(abs, a)
	}
	return &FSService{roots: abs}, nil
}

// Resolve cleans the requested path and verifies it lies under an allowed
// root. It performs no I/O.
func (s *FSService) Resolve(raw string) (string, error) {
	if raw == "" {
		return "", utils.ErrPathNotAllowed
	}
	abs, err := filepath.Abs(filepath.Clean(raw))
	if err != nil {
		return "", utils.ErrPathNotAllowed
	}
	for _, root := range s.roots {
		if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return abs, nil
		}
	}
	return "", utils.ErrPathNotAllowed
}

// Browse lists a directory, directories first, each group sorted by name.
func (s *FSService) Browse(raw string) ([]FileInfo, error) {
	path, err := s.Resolve(raw)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, utils.ErrNotFound
		}
		return nil, err
	}

	infos := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, FileInfo{
			Name:    entry.Name(),
			Path:    filepath.Join(path, entry.Name()),
			Size:    fi.Size(),
			Mode:    fmt.Sprintf("%04o", fi.Mode().Perm()),
			ModTime: fi.ModTime(),
			IsDir:   entry.IsDir(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].IsDir != infos[j].IsDir {
			return infos[i].IsDir
		}
		return infos[i].Name < infos[j].Name
	})
	return infos, nil
}

// GetPermissions stats an allowed path and returns its info.
func (s *FSService) GetPermissions(raw string) (*FileInfo, error) {
	path, err := s.Resolve(raw)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, utils.ErrNotFound
		}
		return nil, err
	}
	return &FileInfo{
		Name:    fi.Name(),
		Path:    path,
		Size:    fi.Size(),
		Mode:    fmt.Sprintf("%04o", fi.Mode().Perm()),
		ModTime: fi.ModTime(),
		IsDir:   fi.IsDir(),
	}, nil
}

// SetPermissions chmods an allowed path to the given octal mode string
// (e.g. "0644").
func (s *FSService) SetPermissions(raw, mode string) error {
	path, err := s.Resolve(raw)
	if err != nil {
		return err
	}

	parsed, err := strconv.ParseUint(strings.TrimPrefix(mode, "0o"), 8, 32)
	if err != nil || parsed > 0o777 {
		return fmt.Errorf("invalid mode %q", mode)
	}

	if err := os.Chmod(path, os.FileMode(parsed)); err != nil {
		if os.IsNotExist(err) {
			return utils.ErrNotFound
		}
		return err
	}
	return nil
}

// ReadFile returns the contents of an allowed file, capped at maxFileReadSize.
func (s *FSService) ReadFile(raw string) (string, error) {
	path, err := s.Resolve(raw)
	if err != nil {
		return "", err
	}

	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", utils.ErrNotFound
		}
		return "", err
	}
	if fi.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if fi.Size() > maxFileReadSize {
		return "", fmt.Errorf("file too large (%d bytes)", fi.Size())
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// WriteFile stores editor content at an allowed path, creating parent
// directories as needed.
func (s *FSService) WriteFile(raw, content string) error {
	path, err := s.Resolve(raw)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
