// Package stacktrace trims debug.Stack output for logs.
package stacktrace

import "strings"

// InternalPaths keeps the "internal/<pkg>/<file>.go:<line>" location of every
// frame that belongs to this module and drops the rest.
func InternalPaths(stack []byte) []string {
	var paths []string
	for line := range strings.SplitSeq(string(stack), "\n") {
		line = strings.TrimSpace(line)
		at := strings.Index(line, "/internal/")
		if at < 0 || !strings.Contains(line[at:], ".go:") {
			continue
		}
		loc, _, _ := strings.Cut(line[at+1:], " ")
		paths = append(paths, loc)
	}
	return paths
}
