package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ExportStudioProject copies the generated Gradle project into a clean
// artifact directory for opening in Android Studio. Build outputs and IDE
// state are left out so the artifact stays small and re-syncable.
func ExportStudioProject(gradleDir, exportDir, logPath string) error {
	if err := os.RemoveAll(exportDir); err != nil {
		return err
	}
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return err
	}

	err := filepath.WalkDir(gradleDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(gradleDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if excludeFromExport(d.Name(), d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(exportDir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
	if err != nil {
		return err
	}

	// The wrapper loses its execute bit going through a plain copy.
	if gradlew := filepath.Join(exportDir, "gradlew"); fileExists(gradlew) {
		_ = os.Chmod(gradlew, 0o755)
	}

	return appendLogLine(logPath, fmt.Sprintf("# exported android studio project: %s", exportDir))
}

func excludeFromExport(name string, isDir bool) bool {
	if isDir {
		return name == ".gradle" || name == "build" || name == ".idea"
	}
	return strings.HasSuffix(name, ".iml") ||
		strings.HasSuffix(name, ".apk") ||
		strings.HasSuffix(name, ".aab")
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
