package version

import (
	"fmt"
	"strconv"
	"strings"
)

// parse reads "v1.2.3" style versions. Missing minor or patch parts count as zero and a
// pre-release or build suffix is ignored.
func parse(s string) ([3]int, error) {
	var parts [3]int

	core := strings.TrimPrefix(strings.TrimSpace(s), "v")
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}

	fields := strings.Split(core, ".")
	if core == "" || len(fields) > len(parts) {
		return parts, fmt.Errorf("malformed version %q", s)
	}
	for i, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil || n < 0 {
			return parts, fmt.Errorf("malformed version %q", s)
		}
		parts[i] = n
	}
	return parts, nil
}

// Compare orders two versions: 1 if a is newer, -1 if b is newer, 0 if equal.
func Compare(a, b string) (int, error) {
	av, err := parse(a)
	if err != nil {
		return 0, err
	}
	bv, err := parse(b)
	if err != nil {
		return 0, err
	}

	for i := range av {
		switch {
		case av[i] > bv[i]:
			return 1, nil
		case av[i] < bv[i]:
			return -1, nil
		}
	}
	return 0, nil
}
