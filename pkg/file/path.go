package file

import (
	"path/filepath"
	"strings"
)

func ReplaceExt(path, ext string) string {
	if path == "" {
		return path
	}

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	lastDot := strings.LastIndex(filename, ".")
	if lastDot <= 0 {
		return filepath.Join(dir, filename+ext)
	}

	return filepath.Join(dir, filename[:lastDot]+ext)
}

// InsertSuffix places suffix between the file name and its extension:
// "dir/ep01.srt" + "zh-CN" -> "dir/ep01.zh-CN.srt".
func InsertSuffix(path, suffix string) string {
	if path == "" || suffix == "" {
		return path
	}
	ext := filepath.Ext(path)
	if ext == filepath.Base(path) {
		ext = ""
	}
	return ReplaceExt(path, "."+suffix+ext)
}
