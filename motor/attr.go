package motor

import (
	"os"
	"strings"
)

// readTrim reads path and returns its contents with surrounding
// whitespace stripped, matching how sysfs attribute files are
// conventionally read ("42\n" -> "42"). Shared by both the sysfs and
// virtual-motor builds so device probing (the "address" file) behaves
// identically regardless of which implementation is compiled in.
func readTrim(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// writeAttr writes val followed by a newline, the form every
// tacho-motor sysfs attribute expects.
func writeAttr(path, val string) error {
	return os.WriteFile(path, []byte(val+"\n"), 0644)
}
