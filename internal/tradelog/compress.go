package tradelog

import (
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CompressOlder gzips journal files dated more than retentionDays before
// today and removes the originals. It returns how many files were compressed.
func (j *Journal) CompressOlder(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	now := j.localNow()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, j.loc)
	cutoff := today.AddDate(0, 0, -retentionDays)

	compressed := 0
	err := filepath.WalkDir(j.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || filepath.Ext(p) != ext {
			return nil
		}
		day, perr := time.ParseInLocation(dayLayout, strings.TrimSuffix(d.Name(), ext), j.loc)
		if perr != nil || !day.Before(cutoff) {
			return nil
		}
		if err := gzipFile(p); err != nil {
			return fmt.Errorf("compress %s: %w", p, err)
		}
		compressed++
		return nil
	})
	return compressed, err
}

// gzipFile writes p as a gzip member appended to p.gz, then removes p.
// A day compressed twice keeps both parts; gzip readers concatenate members.
func gzipFile(p string) error {
	gz := p + ".gz"

	in, err := os.Open(p)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	st, err := out.Stat()
	if err != nil {
		_ = out.Close()
		return err
	}
	// on failure the archive is cut back to its previous size
	rollback := func() {
		_ = out.Truncate(st.Size())
		_ = out.Close()
		if st.Size() == 0 {
			_ = os.Remove(gz)
		}
	}

	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		rollback()
		return err
	}
	if err := gw.Close(); err != nil {
		rollback()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(p)
}
