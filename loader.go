// loader.go — the resource-loading capability consumed by the assembler.
//
// The core never touches the filesystem directly; it asks a Loader for the
// bytes behind a ResourceID. Hosts may back this with anything (disk, archive,
// network) as long as Load is blocking-equivalent.
package gem

import (
	"fmt"
	"os"
	"path/filepath"
)

// Loader supplies the bytes for a resolved ResourceID.
type Loader interface {
	Load(id ResourceID) ([]byte, error)
}

// NotFoundError reports a ResourceID the loader cannot supply. Loaders return
// it (or wrap it) so the assembler can classify the failure.
type NotFoundError struct {
	ID ResourceID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.ID.Path())
}

// MapLoader serves resources from memory, keyed by ResourceID.Path().
// Intended for tests and embedded projects.
type MapLoader map[string]string

func (m MapLoader) Load(id ResourceID) ([]byte, error) {
	src, ok := m[id.Path()]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return []byte(src), nil
}

// DirLoader serves resources from a project directory on disk.
type DirLoader struct {
	Root string
}

func (d DirLoader) Load(id ResourceID) ([]byte, error) {
	p := filepath.Join(d.Root, filepath.FromSlash(id.Path()))
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, err
	}
	return data, nil
}
