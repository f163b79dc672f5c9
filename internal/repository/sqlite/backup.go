package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"votetally/internal/domain/generation"
)

// BackupPath names the file a generation is retired to:
// {basename}_{yyyy-mm-dd_HH-MM-ss_mmm}.{ext}, next to the live file.
func BackupPath(livePath string, t time.Time) string {
	dir := filepath.Dir(livePath)
	base := filepath.Base(livePath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	stamp := fmt.Sprintf("%s_%03d", t.Format("2006-01-02_15-04-05"), t.Nanosecond()/int(time.Millisecond))
	return filepath.Join(dir, name+"_"+stamp+ext)
}

// Backups lists retired generations of this store, oldest first.
func (s *Store) Backups() ([]generation.Backup, error) {
	return ListBackups(s.path)
}

// ListBackups scans the directory of livePath for backup files it produced.
func ListBackups(livePath string) ([]generation.Backup, error) {
	dir := filepath.Dir(livePath)
	base := filepath.Base(livePath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(name) +
		`_\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}_\d{3}` + regexp.QuoteMeta(ext) + `$`)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []generation.Backup{}, nil
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	backups := make([]generation.Backup, 0)
	for _, e := range entries {
		if e.IsDir() || !pattern.MatchString(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		backups = append(backups, generation.Backup{
			Name:    e.Name(),
			Path:    filepath.Join(dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].Name < backups[j].Name })
	return backups, nil
}
