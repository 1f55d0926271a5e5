package modelclient

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/agraph/flow/internal/graph"
)

type requestPayload struct {
	Messages []graph.Message `json:"messages"`
	Tools    []string        `json:"tools"`
}

// requestKey canonicalizes (messages, tools) to JSON and hashes it with
// SHA-256, the same "hash the inputs for reproducibility" move the
// teacher's audit.PDRWriter applies to PDR actions.
func requestKey(messages []graph.Message, tools []string) (string, error) {
	data, err := json.Marshal(requestPayload{Messages: messages, Tools: tools})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Cache is the on-disk content-addressed store for model responses,
// laid out as <Dir>/xx/yy/<hash>-<seq>.{entry,val}, where xx/yy are the
// hash's first four hex characters split into two directory levels.
// Writes go through a temp file + os.Rename for atomicity, so a reader
// never observes a partially written entry.
type Cache struct {
	Dir string
}

// NewCache creates a Cache rooted at dir. The directory is created
// lazily on first write.
func NewCache(dir string) *Cache {
	return &Cache{Dir: dir}
}

func (c *Cache) shard(hash string) string {
	if len(hash) < 4 {
		return filepath.Join(c.Dir, "short")
	}
	return filepath.Join(c.Dir, hash[0:2], hash[2:4])
}

// Get returns the lowest-sequence cached response for key, if any.
func (c *Cache) Get(key string) (string, bool, error) {
	dir := c.shard(key)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("modelclient: reading cache dir: %w", err)
	}

	var seqs []int
	prefix := key + "-"
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".val") {
			continue
		}
		n := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".val")
		if seq, err := strconv.Atoi(n); err == nil {
			seqs = append(seqs, seq)
		}
	}
	if len(seqs) == 0 {
		return "", false, nil
	}
	sort.Ints(seqs)

	path := filepath.Join(dir, fmt.Sprintf("%s-%d.val", key, seqs[0]))
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, fmt.Errorf("modelclient: reading cached value: %w", err)
	}
	return string(data), true, nil
}

// Put appends val under key at the next free sequence number, writing
// both the value and a small entry record via a temp file renamed into
// place so a concurrent reader never sees a half-written file.
func (c *Cache) Put(key, val string) error {
	dir := c.shard(key)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("modelclient: creating cache shard: %w", err)
	}

	seq := 0
	for {
		if _, err := os.Stat(filepath.Join(dir, fmt.Sprintf("%s-%d.val", key, seq))); os.IsNotExist(err) {
			break
		}
		seq++
	}

	base := fmt.Sprintf("%s-%d", key, seq)
	if err := writeAtomic(filepath.Join(dir, base+".val"), []byte(val)); err != nil {
		return err
	}

	entry, err := json.Marshal(map[string]any{"key": key, "seq": seq, "len": len(val)})
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, base+".entry"), entry)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("modelclient: writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("modelclient: renaming into place: %w", err)
	}
	return nil
}
