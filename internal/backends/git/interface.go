package git

import "context"

// IgnoreChecker decides whether a batch of changes in a project matters.
type IgnoreChecker interface {
	// ContainsUnignored reports whether at least one of paths, all inside
	// dir, is not excluded by dir's ignore rules. Implementations fail open:
	// when the rules cannot be evaluated the answer is true.
	ContainsUnignored(ctx context.Context, dir string, paths []string) bool
}

// AllowAll is an IgnoreChecker that never ignores anything.
type AllowAll struct{}

func (AllowAll) ContainsUnignored(_ context.Context, _ string, paths []string) bool {
	return len(paths) > 0
}
