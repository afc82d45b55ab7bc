package convert

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"bcbook/config"
	"bcbook/state"
)

// buildOutputPath returns artifact path in dst directory. Name comes from
// user-defined template (which may contain subdirectories), each path
// segment is cleaned up and if requested transliterated.
func buildOutputPath(dst string, name config.TemplateFieldName, field string, values Values, env *state.LocalEnv) string {
	expandedName, err := expandTemplate(name, field, values)
	if err == nil && len(splitAndCleanPath(filepath.FromSlash(strings.TrimSpace(expandedName)))) == 0 {
		err = errors.New("template expanded to empty name")
	}
	if err != nil {
		expandedName = defaultName(name, values)
		env.Log.Warn("Unable to prepare artifact name, using default",
			zap.String("template", string(name)), zap.String("name", expandedName), zap.Error(err))
	}
	return assemblePathWithSubdirs(dst, filepath.FromSlash(expandedName), env)
}

// assemblePathWithSubdirs takes an expanded template name (which may contain
// path separators for subdirectories) and assembles it into a full output
// path.
func assemblePathWithSubdirs(outDir, expandedName string, env *state.LocalEnv) string {
	pathSegments := splitAndCleanPath(expandedName)
	if len(pathSegments) == 0 {
		return outDir
	}

	dirParts := make([]string, 0, len(pathSegments)+1)
	dirParts = append(dirParts, outDir)
	for _, segment := range pathSegments {
		dirParts = append(dirParts, cleanPathSegment(segment, env))
	}
	return filepath.Join(dirParts...)
}

// splitAndCleanPath splits path into segments dropping empty ones and
// references to current or parent directory, artifacts always stay inside
// output directory.
func splitAndCleanPath(path string) []string {
	path = strings.TrimSuffix(path, string(os.PathSeparator))
	segments := make([]string, 0, 8)

	for head, tail := filepath.Split(path); tail != ""; head, tail = filepath.Split(head) {
		if tail != "." && tail != ".." {
			segments = slices.Insert(segments, 0, tail)
		}
		head = strings.TrimSuffix(head, string(os.PathSeparator))
		if head == "" {
			break
		}
	}
	return segments
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Document.FileNameTransliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}

// prepareOutput makes sure artifact could be written: existing artifacts are
// only replaced when overwrite was requested, missing subdirectories are
// created.
func prepareOutput(path string, env *state.LocalEnv, log *zap.Logger) error {
	if _, err := os.Stat(path); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", path)
		}
		log.Warn("Overwriting existing file", zap.String("file", path))
		return os.Remove(path)
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}
