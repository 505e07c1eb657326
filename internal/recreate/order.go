package recreate

import (
	"strings"

	"github.com/mediatally/mediatally/internal/schema"
)

// CycleError reports a foreign key cycle that prevents ordering. Path
// starts and ends with the same table.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "foreign key cycle: " + strings.Join(e.Path, " -> ")
}

// Order returns the schema's tables so that every table follows the tables
// it references. Ties keep schema order. Self references are ignored.
func Order(s *schema.Schema) ([]*schema.Table, error) {
	tables := s.Tables()
	deps := make(map[string][]string, len(tables))
	for _, t := range tables {
		deps[key(t.Name())] = dependencies(t)
	}

	placed := make(map[string]bool, len(tables))
	ordered := make([]*schema.Table, 0, len(tables))
	for len(ordered) < len(tables) {
		progressed := false
		for _, t := range tables {
			k := key(t.Name())
			if placed[k] || !allPlaced(deps[k], placed) {
				continue
			}
			placed[k] = true
			ordered = append(ordered, t)
			progressed = true
			// Restart so an earlier table unblocked by t keeps its place.
			break
		}
		if !progressed {
			return nil, &CycleError{Path: findCycle(tables, deps, placed)}
		}
	}
	return ordered, nil
}

func dependencies(t *schema.Table) []string {
	var out []string
	seen := make(map[string]bool)
	for _, fk := range t.ForeignKeys() {
		k := key(fk.Table)
		if k == key(t.Name()) || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func allPlaced(deps []string, placed map[string]bool) bool {
	for _, d := range deps {
		if !placed[d] {
			return false
		}
	}
	return true
}

// findCycle walks unplaced dependencies from the first unplaced table until
// a table repeats.
func findCycle(tables []*schema.Table, deps map[string][]string, placed map[string]bool) []string {
	names := make(map[string]string, len(tables))
	var start string
	for _, t := range tables {
		k := key(t.Name())
		names[k] = t.Name()
		if start == "" && !placed[k] {
			start = k
		}
	}

	var path []string
	visited := make(map[string]int)
	for cur := start; ; {
		if i, ok := visited[cur]; ok {
			cycle := append([]string(nil), path[i:]...)
			return append(cycle, names[cur])
		}
		visited[cur] = len(path)
		path = append(path, names[cur])
		next := ""
		for _, d := range deps[cur] {
			if !placed[d] {
				next = d
				break
			}
		}
		if next == "" {
			return path
		}
		cur = next
	}
}

func key(name string) string { return strings.ToLower(name) }
