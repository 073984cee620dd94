package policyupdate

import (
	"fmt"
	"sort"
	"strings"
)

// ChangeSummary is the JSON-pointer structural diff between two
// policy objects.
type ChangeSummary struct {
	Added   []string
	Removed []string
	Changed []string
}

func (c *ChangeSummary) toMap() map[string]any {
	return map[string]any{
		"added":   toAnySlice(c.Added),
		"removed": toAnySlice(c.Removed),
		"changed": toAnySlice(c.Changed),
	}
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// DiffPolicies computes a JSON-pointer change summary between old and
// new, following RFC 6901 escaping ('~' -> "~0", '/' -> "~1").
func DiffPolicies(oldPolicy, newPolicy map[string]any) *ChangeSummary {
	var added, removed, changed []string
	diff("", oldPolicy, newPolicy, &added, &removed, &changed)
	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(changed)
	return &ChangeSummary{Added: added, Removed: removed, Changed: changed}
}

func diff(prefix string, oldV, newV any, added, removed, changed *[]string) {
	oldMap, oldIsMap := oldV.(map[string]any)
	newMap, newIsMap := newV.(map[string]any)

	if oldIsMap && newIsMap {
		keys := make(map[string]bool)
		for k := range oldMap {
			keys[k] = true
		}
		for k := range newMap {
			keys[k] = true
		}
		for k := range keys {
			ptr := prefix + "/" + escapePointer(k)
			ov, oOK := oldMap[k]
			nv, nOK := newMap[k]
			switch {
			case oOK && !nOK:
				*removed = append(*removed, ptr)
			case !oOK && nOK:
				*added = append(*added, ptr)
			default:
				diff(ptr, ov, nv, added, removed, changed)
			}
		}
		return
	}

	if !deepEqual(oldV, newV) {
		if prefix == "" {
			prefix = "/"
		}
		*changed = append(*changed, prefix)
	}
}

func escapePointer(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	s = strings.ReplaceAll(s, "/", "~1")
	return s
}

func deepEqual(a, b any) bool {
	return fmt.Sprintf("%#v", a) == fmt.Sprintf("%#v", b)
}
