package schema

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// MaxIdentifierLength is the longest constraint name generated. It is the
// smallest limit among the supported engines (PostgreSQL truncates at 63).
const MaxIdentifierLength = 63

// ConstraintName joins prefix, table and columns with underscores. Names
// over MaxIdentifierLength keep a readable head and end in a stable hash of
// the full name so distinct constraints stay distinct.
func ConstraintName(prefix, table string, columns ...string) string {
	parts := append([]string{prefix, table}, columns...)
	name := strings.Join(parts, "_")
	if len(name) <= MaxIdentifierLength {
		return name
	}
	suffix := fmt.Sprintf("%016x", xxh3.HashString(name))[:8]
	head := strings.TrimRight(name[:MaxIdentifierLength-len(suffix)-1], "_")
	return head + "_" + suffix
}
