package attach

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// AllowedExtensions is the fixed allow-list of attachable file extensions.
// Matching is case-insensitive.
var AllowedExtensions = []string{".pdf", ".pptx", ".xlsx"}

// File describes one attachable file found in a folder.
type File struct {
	Name string
	Path string
	Size int64
}

// Selector lists the attachable files of a folder.
type Selector struct {
	fs afero.Fs
}

// NewSelector returns a selector over fs. A nil fs means the OS filesystem.
func NewSelector(fs afero.Fs) *Selector {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Selector{fs: fs}
}

// IsAttachable reports whether name carries an allowed extension.
func IsAttachable(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// FolderExists reports whether folder exists and is a directory.
func (s *Selector) FolderExists(folder string) bool {
	if folder == "" {
		return false
	}
	ok, err := afero.DirExists(s.fs, folder)
	return err == nil && ok
}

// Select returns the paths of the regular files directly inside folder
// whose extension is allowed, in directory listing order. A missing or
// unreadable folder yields an empty result.
func (s *Selector) Select(folder string) []string {
	files := s.Preview(folder)
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	return paths
}

// Preview is Select with file names and sizes, for display.
func (s *Selector) Preview(folder string) []File {
	if folder == "" {
		return nil
	}

	infos, err := afero.ReadDir(s.fs, folder)
	if err != nil {
		return nil
	}

	var files []File
	for _, info := range infos {
		if !IsAttachable(info.Name()) {
			continue
		}

		path := filepath.Join(folder, info.Name())

		// Follow symlinks so a link to a regular file counts as a file.
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := s.fs.Stat(path)
			if err != nil {
				continue
			}
			info = target
		}

		if !info.Mode().IsRegular() {
			continue
		}

		files = append(files, File{
			Name: info.Name(),
			Path: path,
			Size: info.Size(),
		})
	}

	return files
}
