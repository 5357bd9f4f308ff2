package builder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/melih/lighthouse-pipeline/internal/core/domain"
)

const (
	DefaultBaseImage    = "python:3.9-slim"
	DefaultStartCommand = "python bot.py"
)

var revisionRegex = regexp.MustCompile(`^[0-9a-f]{40}([0-9a-f]{24})?$`)

var recipeTemplate = template.Must(template.New("Dockerfile").Parse(`FROM {{.BaseImage}}
WORKDIR /app
RUN apt-get update && apt-get install -y git && rm -rf /var/lib/apt/lists/*
RUN git clone {{.RepositoryURL}} .{{if .Revision}} && git checkout {{.Revision}}{{end}}
RUN pip install --no-cache-dir -r requirements.txt
CMD ["sh", "-c", {{.Command}}]
`))

// RecipeSpec is the input to RenderRecipe.
type RecipeSpec struct {
	BaseImage     string
	RepositoryURL string
	StartCommand  string
	// Revision pins the clone to a commit; empty builds the default branch.
	// It is part of the clone step so a new commit never reuses a cached clone.
	Revision string
}

// RenderRecipe produces the Dockerfile for a deployment. A blank start command
// falls back to DefaultStartCommand. The start command is written as a JSON
// string inside the exec-form CMD, so it cannot terminate the instruction.
func RenderRecipe(rs RecipeSpec) (string, error) {
	if err := domain.ValidateRepositoryURL(rs.RepositoryURL); err != nil {
		return "", err
	}
	cmd := strings.TrimSpace(rs.StartCommand)
	if cmd == "" {
		cmd = DefaultStartCommand
	}
	if err := domain.ValidateStartCommand(cmd); err != nil {
		return "", err
	}
	if rs.Revision != "" && !revisionRegex.MatchString(rs.Revision) {
		return "", fmt.Errorf("%w: revision %q is not a commit hash", domain.ErrInvalidInput, rs.Revision)
	}
	base := rs.BaseImage
	if base == "" {
		base = DefaultBaseImage
	}

	quoted, err := jsonString(cmd)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = recipeTemplate.Execute(&buf, struct {
		BaseImage, RepositoryURL, Revision, Command string
	}{base, rs.RepositoryURL, rs.Revision, quoted})
	if err != nil {
		return "", fmt.Errorf("failed to render recipe: %w", err)
	}
	return buf.String(), nil
}

func jsonString(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", fmt.Errorf("failed to encode start command: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// BuildContext is a temporary directory holding a rendered recipe.
type BuildContext struct {
	Dir string
}

// MaterializeContext writes recipe into a fresh, uniquely named temporary
// directory. The caller must Close the context.
func MaterializeContext(recipe string) (*BuildContext, error) {
	dir, err := os.MkdirTemp("", "lighthouse-build-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte(recipe), 0o644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to write Dockerfile: %w", err)
	}
	return &BuildContext{Dir: dir}, nil
}

// Close removes the directory and everything in it.
func (c *BuildContext) Close() error {
	return os.RemoveAll(c.Dir)
}
