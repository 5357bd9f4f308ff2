package domain

import "strings"

// ParseEnvironment turns newline-separated KEY=VALUE text into runtime
// environment entries. Lines without '=' or with an empty key are skipped.
func ParseEnvironment(text string) []string {
	var env []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		env = append(env, key+"="+strings.TrimSpace(value))
	}
	return env
}
