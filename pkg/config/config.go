// SPDX-License-Identifier: Apache-2.0
// Package config holds the key/value table that is handed to every external
// command as environment variables.
package config

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/provide-io/trellis/pkg/utils/permissions"
)

// Table is an insertion-ordered map with upper-cased keys. The zero value is
// ready to use. A Table is not safe for concurrent mutation.
type Table struct {
	keys   []string
	values map[string]string
}

// New returns an empty Table.
func New() *Table {
	return &Table{}
}

func normalize(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Set stores value under the upper-cased key.
func (t *Table) Set(key, value string) {
	key = normalize(key)
	if t.values == nil {
		t.values = map[string]string{}
	}
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

// SetBool stores TRUE or FALSE.
func (t *Table) SetBool(key string, value bool) {
	t.Set(key, strings.ToUpper(fmt.Sprint(value)))
}

// Lookup returns the value stored under key.
func (t *Table) Lookup(key string) (string, bool) {
	v, ok := t.values[normalize(key)]
	return v, ok
}

// Get returns the value under key. A missing key is recorded with def so
// that later commands see the default that was used.
func (t *Table) Get(key, def string) string {
	if v, ok := t.Lookup(key); ok {
		return v
	}
	t.Set(key, def)
	return def
}

// Keys returns the keys in insertion order.
func (t *Table) Keys() []string {
	return append([]string(nil), t.keys...)
}

func (t *Table) Len() int { return len(t.keys) }

// Environ renders the table as KEY=VALUE entries in insertion order.
func (t *Table) Environ() []string {
	env := make([]string, 0, len(t.keys))
	for _, k := range t.keys {
		env = append(env, k+"="+t.values[k])
	}
	return env
}

// Clone returns an independent copy.
func (t *Table) Clone() *Table {
	c := New()
	for _, k := range t.keys {
		c.Set(k, t.values[k])
	}
	return c
}

// Merge copies every entry of values into the table, sorted by key.
func (t *Table) Merge(values map[string]string) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.Set(k, values[k])
	}
}

// Parse reads dotenv-formatted entries from r.
func Parse(r io.Reader) (*Table, error) {
	values, err := godotenv.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	t := New()
	t.Merge(values)
	return t, nil
}

// Load reads a dotenv file. When path does not exist and template does, the
// template is copied to path first. A missing file with no template yields
// an empty Table; created reports whether the template was copied.
func Load(path, template string) (t *Table, created bool, err error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if template == "" {
			return New(), false, nil
		}
		data, err := os.ReadFile(template)
		if os.IsNotExist(err) {
			return New(), false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("reading config template: %w", err)
		}
		if err := os.WriteFile(path, data, permissions.FilePerms); err != nil {
			return nil, false, fmt.Errorf("generating %s: %w", path, err)
		}
		created = true
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, created, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	t, err = Parse(f)
	return t, created, err
}
