package credentials

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// EnvPrimaryKey is the single-key variable; it always has top priority.
	EnvPrimaryKey = "KREA_API_KEY"
	// EnvKeyList holds additional keys separated by commas or newlines.
	EnvKeyList = "KREA_API_KEYS"
	// MaxNumberedKeys bounds the KREA_API_KEY_<n> scan.
	MaxNumberedKeys = 20
)

// ErrEmptyPool is returned when no usable key is configured.
var ErrEmptyPool = errors.New("credentials: no Krea API key configured")

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Pool is the ordered, deduplicated set of Krea API keys. It is built once at
// startup and never written afterwards, so it is safe for concurrent reads.
type Pool struct {
	keys []string
}

type keyFile struct {
	Keys []string `yaml:"keys"`
}

// NewPool builds a pool from keys in priority order. Blank and repeated keys
// are dropped; the first occurrence keeps its position.
func NewPool(keys ...string) (*Pool, error) {
	seen := make(map[string]struct{}, len(keys))
	ordered := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		ordered = append(ordered, key)
	}
	if len(ordered) == 0 {
		return nil, ErrEmptyPool
	}
	return &Pool{keys: ordered}, nil
}

// LoadPool collects keys from the environment and, when path is set, from a
// YAML key file. Order: KREA_API_KEY, KREA_API_KEY_1..KREA_API_KEY_20,
// KREA_API_KEYS, then the file.
func LoadPool(lookup LookupFunc, path string) (*Pool, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var keys []string
	if v, ok := lookup(EnvPrimaryKey); ok {
		keys = append(keys, v)
	}
	for i := 1; i <= MaxNumberedKeys; i++ {
		if v, ok := lookup(EnvPrimaryKey + "_" + strconv.Itoa(i)); ok {
			keys = append(keys, v)
		}
	}
	if v, ok := lookup(EnvKeyList); ok {
		keys = append(keys, splitKeys(v)...)
	}
	if path = strings.TrimSpace(path); path != "" {
		fromFile, err := readKeyFile(path)
		if err != nil {
			return nil, err
		}
		keys = append(keys, fromFile...)
	}
	return NewPool(keys...)
}

func readKeyFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("credentials: read key file: %w", err)
	}
	var doc keyFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("credentials: decode key file: %w", err)
	}
	return doc.Keys, nil
}

func splitKeys(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
}

// Keys returns a copy of the keys in trial order.
func (p *Pool) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len reports the number of keys.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Mask hides all but the last four characters of a key for logging.
func Mask(key string) string {
	key = strings.TrimSpace(key)
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return "…" + key[len(key)-4:]
}
