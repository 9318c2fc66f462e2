package osched

import "regexp"

// rewriteScriptPath replaces every absolute path to a task's job
// script inside a job definition (plist or unit file) with want. Used
// by FixPaths when the data directory has moved; reports whether
// anything actually changed.
func rewriteScriptPath(content, taskID, want string) (string, bool) {
	re := regexp.MustCompile(`/[^\s"'<>]*` + regexp.QuoteMeta(taskID) + `\.sh`)
	changed := false
	out := re.ReplaceAllStringFunc(content, func(match string) string {
		if match == want {
			return match
		}
		changed = true
		return want
	})
	return out, changed
}
