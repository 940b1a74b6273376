package utils

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// F64ToS converts float to string using the maximum accuracy
func F64ToS(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// StringSet is a set of strings (all elements are unique)
type StringSet map[string]struct{}

// NewStringSet creates a set from a list of strings
func NewStringSet(ss ...string) StringSet {
	set := make(StringSet, len(ss))
	for _, s := range ss {
		set.Push(s)
	}
	return set
}

// Push adds the string to the set if not already exists
func (ss StringSet) Push(s string) {
	ss[s] = struct{}{}
}

// Exists returns true if the string already exists in the Set
func (ss StringSet) Exists(s string) bool {
	_, ok := ss[s]
	return ok
}

// Sorted returns the elements of the set in lexical order
func (ss StringSet) Sorted() []string {
	sl := make([]string, 0, len(ss))
	for k := range ss {
		sl = append(sl, k)
	}
	sort.Strings(sl)
	return sl
}

// IndexOf returns the index of s in ss or -1
func IndexOf(ss []string, s string) int {
	for i, si := range ss {
		if si == s {
			return i
		}
	}
	return -1
}

// Chunks splits [0, n) in at most count intervals of similar size
func Chunks(n, count int) [][2]int {
	if count < 1 {
		count = 1
	}
	if count > n {
		count = n
	}
	chunks := make([][2]int, 0, count)
	for i := 0; i < count; i++ {
		chunks = append(chunks, [2]int{i * n / count, (i + 1) * n / count})
	}
	return chunks
}

// FindRegexGroups returns a map containing the group names as keys and the values matched as values, if the string value matches the regex.
func FindRegexGroups(reg *regexp.Regexp, v string) (map[string]string, error) {
	matches := reg.FindStringSubmatch(v)
	if len(matches) == 0 {
		return nil, fmt.Errorf("failed to find submatch in regex %v for value %v", reg.String(), v)
	}
	res := make(map[string]string, len(matches)-1)
	for i, name := range reg.SubexpNames()[1:] {
		if name != "" {
			res[name] = matches[i+1]
		}
	}
	return res, nil
}
