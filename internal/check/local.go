package check

import (
	"fmt"
	"os"
)

// validateLocal checks that a resolved local path exists. The file is never
// opened; existence on the filesystem is sufficient.
func validateLocal(path string) (bool, string) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Sprintf("local file not found: %s", path)
		}
		return false, fmt.Sprintf("cannot access %s: %v", path, err)
	}
	return true, ""
}
