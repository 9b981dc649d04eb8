package commands

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"

	"taskboard/internal/service"
)

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRefs parses 1-based task numbers as printed by list.
// Duplicates are dropped; order of first appearance is kept.
func ParseTaskRefs(args []string) ([]int, error) {
	if len(args) == 0 {
		return nil, ErrTaskRefRequired
	}

	seen := make(map[int]bool, len(args))
	refs := make([]int, 0, len(args))
	for _, arg := range args {
		if !isAllDigits(arg) {
			return nil, fmt.Errorf("invalid task reference: %s", arg)
		}
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid task reference: %s", arg)
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		refs = append(refs, n)
	}
	return refs, nil
}

// outOfRangeError reports a task number past the end of the list.
type outOfRangeError struct {
	num int
}

func (e *outOfRangeError) Error() string {
	return fmt.Sprintf("task number out of range: %d", e.num)
}

// ResolveTaskRefs maps task numbers to tasks. Every number is checked before
// anything is returned, so a bad reference leaves the caller with nothing to
// act on.
func ResolveTaskRefs(tasks []service.Task, refs []int) ([]service.Task, error) {
	out := make([]service.Task, 0, len(refs))
	for _, n := range refs {
		if n < 1 || n > len(tasks) {
			return nil, &outOfRangeError{num: n}
		}
		out = append(out, tasks[n-1])
	}
	return out, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
