package fetch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Cache directory layout:
//
//	cacheDir/
//	  .cache.json        # maps file name → entry
//	  SDL2-2.0.14.dmg    # downloaded package, named by URL tail
const indexFile = ".cache.json"

// entry records where a cached file came from.
type entry struct {
	URL       string    `json:"url"`
	Size      int64     `json:"size"`
	FetchTime time.Time `json:"fetch_time"`
}

type index struct {
	Files map[string]*entry `json:"files"`
}

func (f *Fetcher) loadIndex() (*index, error) {
	data, err := os.ReadFile(filepath.Join(f.CacheDir, indexFile))
	if err != nil {
		return nil, err
	}
	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

func (f *Fetcher) saveIndex(idx *index) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(f.CacheDir, indexFile), data, 0o644)
}

// lookup returns the recorded entry for name. The index is advisory; a
// missing or unreadable index is a miss.
func (f *Fetcher) lookup(name string) (*entry, bool) {
	idx, err := f.loadIndex()
	if err != nil {
		return nil, false
	}
	e, ok := idx.Files[name]
	return e, ok && e != nil
}

func (f *Fetcher) record(name string, e *entry) error {
	idx, err := f.loadIndex()
	if err != nil {
		idx = &index{}
	}
	if idx.Files == nil {
		idx.Files = make(map[string]*entry)
	}
	idx.Files[name] = e
	return f.saveIndex(idx)
}
