package export

import (
	"fmt"
	"path"
	"sort"

	billy "github.com/go-git/go-billy/v5"

	"github.com/x4tools/projector/internal/resolve"
)

// WriteAll renders every kind into dir and returns the written paths. Text
// formats produce one <kind>.<ext> file each on the given filesystem; the
// SQLite format produces a single export.db holding one table per kind and,
// because the database driver opens files itself, always writes to the host
// filesystem regardless of fs.
func WriteAll(fs billy.Filesystem, format Format, dir string, sets map[string][]*resolve.Record) ([]string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}

	if format == FormatSQLite {
		dbPath := path.Join(dir, "export."+format.Ext())
		if err := WriteSQLite(dbPath, sets); err != nil {
			return nil, err
		}
		return []string{dbPath}, nil
	}

	kinds := make([]string, 0, len(sets))
	for kind := range sets {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	var written []string
	for _, kind := range kinds {
		p := path.Join(dir, kind+"."+format.Ext())
		if err := writeFile(fs, p, format, kind, sets[kind]); err != nil {
			return nil, err
		}
		written = append(written, p)
	}
	return written, nil
}

func writeFile(fs billy.Filesystem, p string, format Format, kind string, records []*resolve.Record) error {
	f, err := fs.Create(p)
	if err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}
	defer func() { _ = f.Close() }()

	switch format {
	case FormatCSV:
		err = WriteCSV(f, kind, records)
	case FormatJSON:
		err = WriteJSON(f, records)
	case FormatYAML:
		err = WriteYAML(f, records)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}
