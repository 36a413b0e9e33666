package helpers

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// TestProjectUserPath makes sure the user path is rooted in the home directory.
func TestProjectUserPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	path, err := ProjectUserPath()
	if err != nil {
		t.Fatal(err)
	}

	expected := filepath.Join(home, UserDir)
	if path != expected {
		t.Errorf("Expected %s but got %s", expected, path)
	}
}

func TestAbsolutePathFunctin(t *testing.T) {
	found := AbsolutePath("file", "/root/to/")
	expected := filepath.FromSlash("/root/to/file")
	if found != expected {
		t.Errorf("Expected %s but got %s", expected, found)
	}

	found = AbsolutePath("/file", "/root/to/")
	expected = "/file"
	if found != expected {
		t.Errorf("Expected %s but got %s", expected, found)
	}
}

// TestSetLogsFile makes sure that logs will be stored in the expected file after
// logging has been set to it.
func TestSetLogsFile(t *testing.T) {
	testfs := afero.NewMemMapFs()
	logFile := "some/place/tml-collection.log"

	if err := SetLogsFile(testfs, logFile); err != nil {
		t.Fatalf("setting log file failed: %s", err)
	}
	defer func() { log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger() }()

	const testLogMessage = "test message"
	log.Info().Str("artist", "Tiësto").Msg(testLogMessage)

	logData, err := fs.ReadFile(afero.NewIOFS(testfs), logFile)
	if err != nil {
		t.Fatalf("error reading the log file: %s", err)
	}

	if !strings.Contains(string(logData), testLogMessage) ||
		!strings.Contains(string(logData), `"artist":"Tiësto"`) {
		t.Errorf(
			"log file did not contain `%s`. It was:\n%s",
			testLogMessage,
			string(logData),
		)
	}

	readOnly := afero.NewReadOnlyFs(afero.NewMemMapFs())
	if err := SetLogsFile(readOnly, logFile); err == nil {
		t.Errorf("expected an error for read only FS but got nil")
	}
}
