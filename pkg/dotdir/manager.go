// Package dotdir resolves the .chatwidget/ directory that holds config.toml
// and the chat TUI's log file.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the name of the chatwidget directory.
	DirName = ".chatwidget"

	logFile = "chatwidget.log"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path to a .chatwidget/ directory, creating it
// if needed. Order of precedence:
//  1. Provided override
//  2. Local ./.chatwidget/ dir
//  3. Home ~/.chatwidget/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, DirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, DirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating chatwidget directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// OpenLog opens the append-only log file inside the resolved directory.
// The caller closes it.
func (m *Manager) OpenLog(overrideDir string) (*os.File, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, logFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// localDirExists checks whether a .chatwidget/ directory exists in the
// current working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, DirName))
	return err == nil && info.IsDir()
}
