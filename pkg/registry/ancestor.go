package registry

import (
	"path/filepath"
	"strings"
)

// CommonAncestor returns the deepest directory containing every file.
// Comparison is per path segment, so /ws/tests-a and /ws/tests-b share /ws.
func CommonAncestor(files []string) string {
	if len(files) == 0 {
		return ""
	}

	common := splitPath(filepath.Dir(files[0]))
	for _, f := range files[1:] {
		segs := splitPath(filepath.Dir(f))
		n := 0
		for n < len(common) && n < len(segs) && common[n] == segs[n] {
			n++
		}
		common = common[:n]
	}
	return joinPath(common)
}

// splitPath splits a cleaned path into segments. An absolute path starts with
// its volume plus separator, e.g. "/" or `C:\`.
func splitPath(p string) []string {
	p = filepath.Clean(p)
	vol := filepath.VolumeName(p)
	rest := p[len(vol):]

	var segs []string
	if strings.HasPrefix(rest, string(filepath.Separator)) {
		segs = append(segs, vol+string(filepath.Separator))
		rest = rest[1:]
	} else if vol != "" {
		segs = append(segs, vol)
	}
	for _, s := range strings.Split(rest, string(filepath.Separator)) {
		if s != "" && s != "." {
			segs = append(segs, s)
		}
	}
	return segs
}

func joinPath(segs []string) string {
	if len(segs) == 0 {
		return ""
	}
	return filepath.Join(segs...)
}

// relativeSegments returns the directory segments between ancestor and file,
// and false when file is not below ancestor.
func relativeSegments(ancestor, file string) ([]string, bool) {
	if ancestor == "" {
		return nil, false
	}
	rel, err := filepath.Rel(ancestor, filepath.Dir(file))
	if err != nil {
		return nil, false
	}
	if rel == "." {
		return nil, true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, false
	}
	return strings.Split(rel, string(filepath.Separator)), true
}
