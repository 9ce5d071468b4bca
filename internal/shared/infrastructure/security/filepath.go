// Package security validates file paths handed in from the outside
// (CLI flags, API payloads) before the process touches the filesystem.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// forbiddenChars are shell metacharacters that have no business in a
// project-definition path and usually signal an injection attempt.
var forbiddenChars = []string{";", "&", "|", "$", "`", "(", ")", "{", "}", "<", ">", "!", "\n", "\r"}

// ValidateFilePath cleans a user-supplied path, makes it absolute, and
// resolves symlinks when the target exists. Paths carrying shell
// metacharacters are rejected outright.
func ValidateFilePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("file path cannot be empty")
	}
	for _, char := range forbiddenChars {
		if strings.Contains(path, char) {
			return "", fmt.Errorf("file path contains forbidden character %q: %s", char, path)
		}
	}

	clean := filepath.Clean(path)
	if !filepath.IsAbs(clean) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to resolve working directory: %w", err)
		}
		clean = filepath.Join(cwd, clean)
	}

	resolved, err := filepath.EvalSymlinks(clean)
	if err != nil {
		if os.IsNotExist(err) {
			// Not created yet; the cleaned absolute path is as far as
			// validation can go.
			return clean, nil
		}
		return "", fmt.Errorf("failed to resolve file path: %w", err)
	}
	return resolved, nil
}

// ValidateFilePathInDir validates a path and additionally requires it to
// stay inside baseDir, blocking traversal out of the intended tree.
func ValidateFilePathInDir(path, baseDir string) (string, error) {
	if baseDir == "" {
		return "", fmt.Errorf("base directory cannot be empty")
	}

	validated, err := ValidateFilePath(path)
	if err != nil {
		return "", err
	}
	base, err := ValidateFilePath(baseDir)
	if err != nil {
		return "", fmt.Errorf("invalid base directory: %w", err)
	}

	rel, err := filepath.Rel(base, validated)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes base directory %s", path, baseDir)
	}
	return validated, nil
}

// SafeReadFile reads a file after validating its path.
func SafeReadFile(path string) ([]byte, error) {
	validated, err := ValidateFilePath(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(validated) // #nosec G304 -- path validated above
}

// SafeReadFileInDir reads a file after confining it to baseDir.
func SafeReadFileInDir(path, baseDir string) ([]byte, error) {
	validated, err := ValidateFilePathInDir(path, baseDir)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(validated) // #nosec G304 -- path validated above
}
