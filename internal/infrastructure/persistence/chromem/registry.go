package chromem

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// idRegistry 各 collection 的文档 ID 登记表
// chromem-go 没有全量导出 API，List 语义靠这份登记表补齐；
// 持久化模式下随库目录落一个 JSON 文件，重启后仍可全量导出。
type idRegistry struct {
	mu   sync.Mutex
	path string
	ids  map[string]map[string]struct{}
}

func newIDRegistry(dir string) (*idRegistry, error) {
	r := &idRegistry{
		ids: make(map[string]map[string]struct{}),
	}
	if dir == "" {
		return r, nil
	}

	r.path = filepath.Join(dir, "collection_ids.json")
	raw, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, err
	}

	var stored map[string][]string
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, err
	}
	for coll, list := range stored {
		set := make(map[string]struct{}, len(list))
		for _, id := range list {
			set[id] = struct{}{}
		}
		r.ids[coll] = set
	}
	return r, nil
}

func (r *idRegistry) add(collection string, ids ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.ids[collection]
	if !ok {
		set = make(map[string]struct{})
		r.ids[collection] = set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return r.saveLocked()
}

func (r *idRegistry) remove(collection string, ids ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.ids[collection]
	if !ok {
		return nil
	}
	for _, id := range ids {
		delete(set, id)
	}
	return r.saveLocked()
}

func (r *idRegistry) list(collection string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.ids[collection]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *idRegistry) saveLocked() error {
	if r.path == "" {
		return nil
	}
	stored := make(map[string][]string, len(r.ids))
	for coll, set := range r.ids {
		list := make([]string, 0, len(set))
		for id := range set {
			list = append(list, id)
		}
		sort.Strings(list)
		stored[coll] = list
	}
	raw, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, raw, 0o644)
}
