package workdir

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/provide-io/trellis/pkg/utils/permissions"
)

// StampFile records how a configured build tree was generated.
const StampFile = ".trellis-tree.json"

// Stamp identifies the generator that configured a build tree. CMake refuses
// to reconfigure a tree with a different generator, so a mismatch means the
// tree must be recreated.
type Stamp struct {
	Timestamp   time.Time `json:"timestamp"`
	Generator   string    `json:"generator"`
	CompileInfo string    `json:"compile_info"`
}

// ReadStamp loads the stamp of dir, reporting false when there is none.
func ReadStamp(dir string) (Stamp, bool) {
	data, err := os.ReadFile(filepath.Join(dir, StampFile))
	if err != nil {
		return Stamp{}, false
	}
	var s Stamp
	if err := json.Unmarshal(data, &s); err != nil {
		return Stamp{}, false
	}
	return s, true
}

// NeedsRecreate reports whether dir was configured by a different generator.
// A directory without a stamp is reused.
func NeedsRecreate(dir, generator string) bool {
	s, ok := ReadStamp(dir)
	return ok && s.Generator != generator
}

// MarkConfigured records the generator of dir.
func MarkConfigured(dir, generator, compileInfo string) error {
	data, err := json.MarshalIndent(Stamp{
		Timestamp:   time.Now().UTC(),
		Generator:   generator,
		CompileInfo: compileInfo,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, StampFile), data, permissions.FilePerms)
}

// ClearStamp removes the stamp of dir, marking the tree as not configured.
func ClearStamp(dir string) {
	os.Remove(filepath.Join(dir, StampFile))
}
