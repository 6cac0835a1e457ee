package git

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"timetrack/internal/errors"
)

// ContainsUnignored asks `git check-ignore` whether any of paths escapes
// dir's ignore rules. It fails open.
func (g *GitAdapter) ContainsUnignored(ctx context.Context, dir string, paths []string) bool {
	if len(paths) == 0 {
		return false
	}

	matches, err := g.checkIgnore(ctx, dir, paths)
	if err != nil {
		g.failOpen(dir, err.Error(), errors.CodeOf(err))
		return true
	}
	if len(matches) == 0 {
		// Nothing parseable came back; nothing to trust.
		g.failOpen(dir, "empty check-ignore output", errors.IgnoreToolUnavailable)
		return true
	}
	for _, m := range matches {
		if !m.Ignored() {
			return true
		}
	}
	return false
}

// checkIgnore runs one `git check-ignore` over paths, written NUL-terminated
// to stdin. git accepts -z only together with --stdin.
func (g *GitAdapter) checkIgnore(ctx context.Context, dir string, paths []string) ([]ignoreMatch, error) {
	var input bytes.Buffer
	for _, p := range paths {
		input.WriteString(relativeTo(dir, p))
		input.WriteByte(0)
	}

	res, err := g.executeGitCommand(ctx, dir, input.Bytes(),
		"check-ignore", "-v", "-z", "-n", "--no-index", "--stdin")
	if err != nil {
		return nil, err
	}

	// 0: some path matched a rule, 1: none did, 128: fatal (not a repository).
	if res.exitCode != 0 && res.exitCode != 1 {
		return nil, errors.New(errors.IgnoreToolUnavailable, strings.TrimSpace(res.stderr)).
			WithDetails(map[string]interface{}{"dir": dir, "exitCode": res.exitCode})
	}
	return parseCheckIgnore(res.stdout), nil
}

func (g *GitAdapter) failOpen(dir, reason string, code errors.ErrorCode) {
	g.logger.Warn("Ignore check unavailable, counting change",
		"code", string(code),
		"dir", dir,
		"reason", reason,
	)
}

// ignoreMatch is one record of `git check-ignore -v -n -z` output.
type ignoreMatch struct {
	Source  string
	Line    string
	Pattern string
	Path    string
}

// Ignored reports whether the path is excluded. An empty source means no
// rule matched; a negated pattern re-includes the path.
func (m ignoreMatch) Ignored() bool {
	if m.Source == "" {
		return false
	}
	return !strings.HasPrefix(m.Pattern, "!")
}

// parseCheckIgnore splits NUL-separated source, line, pattern, path records.
// A trailing partial record is dropped.
func parseCheckIgnore(out []byte) []ignoreMatch {
	fields := bytes.Split(out, []byte{0})
	if n := len(fields); n > 0 && len(fields[n-1]) == 0 {
		fields = fields[:n-1]
	}

	matches := make([]ignoreMatch, 0, len(fields)/4)
	for i := 0; i+3 < len(fields); i += 4 {
		matches = append(matches, ignoreMatch{
			Source:  string(fields[i]),
			Line:    string(fields[i+1]),
			Pattern: string(fields[i+2]),
			Path:    string(fields[i+3]),
		})
	}
	return matches
}

// relativeTo returns p relative to dir when possible.
func relativeTo(dir, p string) string {
	if !filepath.IsAbs(p) {
		return p
	}
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return p
	}
	return rel
}
