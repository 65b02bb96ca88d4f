//go:build linux

package launch

import "github.com/google/uuid"

// NewLeafName generates a unique per-process cgroup leaf name for callers
// of StartExec that want each attached process isolated into its own
// subcgroup but don't have a natural name to give it (a caller may leave an
// exec's cgroup leaf to be named arbitrarily; the reference creates it
// eagerly and leaves cleanup to container Destroy).
func NewLeafName(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
