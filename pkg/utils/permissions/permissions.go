// Package permissions holds the file modes trellis creates files with.
package permissions

import "os"

const (
	DirPerms    os.FileMode = 0o755
	FilePerms   os.FileMode = 0o644
	ScriptPerms os.FileMode = 0o755 // batch scripts run through sh
)
