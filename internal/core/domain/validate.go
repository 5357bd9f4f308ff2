package domain

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// ValidateRepositoryURL only admits https:// and git:// URLs that are safe to
// embed in a build recipe.
func ValidateRepositoryURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: repo_url is required", ErrInvalidInput)
	}
	if strings.ContainsFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r) || strings.ContainsRune("\"'`$\\;&|<>", r)
	}) {
		return fmt.Errorf("%w: repo_url contains forbidden characters", ErrInvalidInput)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: repo_url: %v", ErrInvalidInput, err)
	}
	if u.Scheme != "https" && u.Scheme != "git" {
		return fmt.Errorf("%w: repo_url must use https:// or git:// protocol", ErrInvalidInput)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: repo_url must include a host", ErrInvalidInput)
	}
	return nil
}

// ValidateStartCommand rejects commands that could spill over into further
// recipe instructions.
func ValidateStartCommand(cmd string) error {
	if strings.ContainsFunc(cmd, unicode.IsControl) {
		return fmt.Errorf("%w: start_command must be a single line", ErrInvalidInput)
	}
	return nil
}
