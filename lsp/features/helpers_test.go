package features

import "sort"

const testURI = "file:///a.sd"

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
