package imagestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
)

// Names of the sub-directories under the store's root.
const (
	OriginalDir  = "original"
	ProcessedDir = "processed"
	ThumbnailDir = "thumbnails"
)

// ErrWriteFailed is returned when an image could not be persisted.
var ErrWriteFailed = errors.New("image write failed")

// ErrNotFound is returned by Lookup when there is no stored original for an artist.
var ErrNotFound = errors.New("no stored image")

// originalExts are the extensions an original may be stored with, in the order
// Lookup tries them.
var originalExts = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// Bundle describes the stored assets of one artist. When a derived image could
// not be produced its slot holds the original's path.
type Bundle struct {
	Original  string `json:"original"`
	Processed string `json:"processed"`
	Thumbnail string `json:"thumbnail"`
	WebPath   string `json:"web_path"`
	Filename  string `json:"filename"`
}

// Complete reports whether the bundle has its own processed and thumbnail
// images as opposed to ones substituted by the original.
func (b Bundle) Complete() bool {
	return b.Original != "" &&
		b.Processed != "" && b.Processed != b.Original &&
		b.Thumbnail != "" && b.Thumbnail != b.Original
}

// Store keeps artist images in three directories under a root. File names are
// derived from the artist id only so that re-runs overwrite earlier files.
// It is safe for concurrent use as long as different ids are written
// concurrently.
type Store struct {
	fs           afero.Fs
	root         string
	publicPrefix string
}

// New returns a Store rooted at root in fs. publicPrefix is the first path
// segment of the web paths in the returned bundles.
func New(fs afero.Fs, root, publicPrefix string) *Store {
	return &Store{
		fs:           fs,
		root:         root,
		publicPrefix: publicPrefix,
	}
}

// Init creates the store directories if they do not exist.
func (s *Store) Init() error {
	for _, dir := range []string{OriginalDir, ProcessedDir, ThumbnailDir} {
		if err := s.fs.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
			return fmt.Errorf("%w: creating %s directory: %s", ErrWriteFailed, dir, err)
		}
	}
	return nil
}

// Root returns the directory the store keeps its files in.
func (s *Store) Root() string {
	return s.root
}

// Open opens a file previously returned in a Bundle for reading.
func (s *Store) Open(name string) (afero.File, error) {
	return s.fs.Open(name)
}

// OriginalPath is where the original image for id is stored.
func (s *Store) OriginalPath(id, ext string) string {
	return filepath.Join(s.root, OriginalDir, id+ext)
}

// ProcessedPath is where the card image for id is stored.
func (s *Store) ProcessedPath(id string) string {
	return filepath.Join(s.root, ProcessedDir, id+"_processed.jpg")
}

// ThumbnailPath is where the thumbnail for id is stored.
func (s *Store) ThumbnailPath(id string) string {
	return filepath.Join(s.root, ThumbnailDir, id+"_thumb.jpg")
}

// WebPath returns the public URL path of the original image for id.
func (s *Store) WebPath(id, ext string) string {
	return path.Join("/", s.publicPrefix, id+ext)
}

// Bundle returns a bundle where every slot points to the original. Callers
// replace the derived slots as they are produced.
func (s *Store) Bundle(id, ext string) Bundle {
	orig := s.OriginalPath(id, ext)
	return Bundle{
		Original:  orig,
		Processed: orig,
		Thumbnail: orig,
		WebPath:   s.WebPath(id, ext),
		Filename:  id + ext,
	}
}

// WriteOriginal stores the downloaded bytes for id. The write is atomic: either
// the complete file is in place or no file is left behind.
func (s *Store) WriteOriginal(id, ext string, data []byte) (string, error) {
	dst := s.OriginalPath(id, ext)
	return dst, s.writeAtomic(dst, data)
}

// WriteProcessed stores the card image for id.
func (s *Store) WriteProcessed(id string, data []byte) (string, error) {
	dst := s.ProcessedPath(id)
	return dst, s.writeAtomic(dst, data)
}

// WriteThumbnail stores the thumbnail for id.
func (s *Store) WriteThumbnail(id string, data []byte) (string, error) {
	dst := s.ThumbnailPath(id)
	return dst, s.writeAtomic(dst, data)
}

func (s *Store) writeAtomic(dst string, data []byte) error {
	dir := filepath.Dir(dst)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %s", ErrWriteFailed, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %s", ErrWriteFailed, err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = s.fs.Rename(tmpName, dst)
	}
	if err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("%w: %s: %s", ErrWriteFailed, dst, err)
	}

	return nil
}

// Lookup finds the assets already stored for id without touching the network.
// It returns ErrNotFound when there is no original. Missing derived images
// are reported as the original's path, the same way a degraded run would.
func (s *Store) Lookup(id string) (Bundle, error) {
	for _, ext := range originalExts {
		orig := s.OriginalPath(id, ext)
		if !s.exists(orig) {
			continue
		}

		b := s.Bundle(id, ext)
		if p := s.ProcessedPath(id); s.exists(p) {
			b.Processed = p
		}
		if p := s.ThumbnailPath(id); s.exists(p) {
			b.Thumbnail = p
		}
		return b, nil
	}

	return Bundle{}, fmt.Errorf("%w for %s", ErrNotFound, id)
}

// Cleanup removes every stored asset of id. Missing files are not an error.
func (s *Store) Cleanup(id string) error {
	paths := []string{s.ProcessedPath(id), s.ThumbnailPath(id)}
	for _, ext := range originalExts {
		paths = append(paths, s.OriginalPath(id, ext))
	}

	var errs []error
	for _, p := range paths {
		if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// ReadAll returns the contents of a stored file.
func (s *Store) ReadAll(name string) ([]byte, error) {
	f, err := s.fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

func (s *Store) exists(name string) bool {
	st, err := s.fs.Stat(name)
	return err == nil && !st.IsDir()
}
