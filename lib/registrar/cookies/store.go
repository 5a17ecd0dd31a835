package cookies

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/titanous/json5"
)

// Store persists the contents of a Jar between runs.
type Store interface {
	Load() ([]Cookie, error)
	Save(cookies []Cookie) error
}

// FileStore keeps cookies as a flat json array of {"name", "value"}
// records. The file is read with json5 so that it can be hand edited.
type FileStore struct {
	Path string
}

// Load returns no cookies and no error when the file does not exist.
func (s FileStore) Load() ([]Cookie, error) {
	contents, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, nil
	}
	var out []Cookie
	err = json5.Unmarshal(contents, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s FileStore) Save(cookies []Cookie) error {
	if cookies == nil {
		cookies = []Cookie{}
	}
	serialized, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.Path)
	err = os.MkdirAll(dir, 0700)
	if err != nil {
		return err
	}

	// write then rename, readers never see a truncated file
	tmp, err := os.CreateTemp(dir, ".cookies-*")
	if err != nil {
		return err
	}
	_, err = tmp.Write(serialized)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	err = tmp.Close()
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}

// OpenJar loads the jar persisted at path. Explicit cookies are layered
// on top of whatever the file holds.
func OpenJar(path string, explicit []Cookie) (*Jar, error) {
	store := FileStore{Path: path}
	loaded, err := store.Load()
	if err != nil {
		return nil, err
	}
	jar := NewJar(loaded, store)
	for _, c := range explicit {
		jar.Set(c.Name, c.Value)
	}
	return jar, nil
}
