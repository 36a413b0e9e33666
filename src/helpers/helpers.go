// Contains few helpers functions which are used througout the project
package helpers

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ProjectUserPath returns the directory in the user's home where the collector
// looks for its configuration.
func ProjectUserPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if home == "" {
		return "", errors.New("could not find the user's home directory")
	}

	return filepath.Join(home, UserDir), nil
}

// AbsolutePath returns the absolute path of `path` if it is relative to `root`.
// Absolute paths are returned as they are.
func AbsolutePath(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// SetLogsFile makes the global logger write JSON lines into logFilePath. The
// file is truncated and its directory created when missing.
func SetLogsFile(fs afero.Fs, logFilePath string) error {
	if err := fs.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
		return err
	}

	logFile, err := fs.Create(logFilePath)
	if err != nil {
		return err
	}

	log.Logger = zerolog.New(logFile).With().Timestamp().Logger()
	return nil
}
