package database

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Migration is one versioned pair of up/down scripts.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

func (m Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

//go:embed migrations/*.sql
var migrationFS embed.FS

// Catalog is an ordered, version-indexed set of migrations.
type Catalog struct {
	ordered []Migration
	index   map[int]int
}

// LoadCatalog reads NNNNNN_name.up.sql files and their .down.sql partners
// from dir. A malformed file name, a duplicate version or a missing down
// script fails the whole load.
func LoadCatalog(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	c := &Catalog{index: make(map[int]int)}
	for _, entry := range entries {
		base, ok := strings.CutSuffix(entry.Name(), ".up.sql")
		if entry.IsDir() || !ok {
			continue
		}

		m, err := parseMigrationName(base)
		if err != nil {
			return nil, err
		}
		if _, dup := c.index[m.Version]; dup {
			return nil, fmt.Errorf("migration version %06d declared twice", m.Version)
		}

		up, err := fs.ReadFile(fsys, path.Join(dir, base+".up.sql"))
		if err != nil {
			return nil, err
		}
		down, err := fs.ReadFile(fsys, path.Join(dir, base+".down.sql"))
		if err != nil {
			return nil, fmt.Errorf("migration %s has no down script: %w", base, err)
		}
		m.UpScript, m.DownScript = string(up), string(down)

		c.index[m.Version] = -1
		c.ordered = append(c.ordered, m)
	}

	slices.SortFunc(c.ordered, func(a, b Migration) int { return a.Version - b.Version })
	for i, m := range c.ordered {
		c.index[m.Version] = i
	}
	return c, nil
}

func parseMigrationName(base string) (Migration, error) {
	num, name, ok := strings.Cut(base, "_")
	if !ok || name == "" {
		return Migration{}, fmt.Errorf("migration %q is not named NNNNNN_name", base)
	}
	version, err := strconv.Atoi(num)
	if err != nil || version <= 0 {
		return Migration{}, fmt.Errorf("migration %q has an invalid version", base)
	}
	return Migration{Version: version, Name: name}, nil
}

// All returns the migrations in ascending version order.
func (c *Catalog) All() []Migration {
	return slices.Clone(c.ordered)
}

// Lookup returns the migration with version.
func (c *Catalog) Lookup(version int) (Migration, bool) {
	i, ok := c.index[version]
	if !ok {
		return Migration{}, false
	}
	return c.ordered[i], true
}

// Pending returns the migrations whose versions are not in applied.
func (c *Catalog) Pending(applied []int) []Migration {
	var out []Migration
	for _, m := range c.ordered {
		if !slices.Contains(applied, m.Version) {
			out = append(out, m)
		}
	}
	return out
}

// Unknown returns the applied versions this catalog does not contain, sorted.
func (c *Catalog) Unknown(applied []int) []int {
	var out []int
	for _, v := range applied {
		if _, ok := c.index[v]; !ok {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}

var embeddedCatalog = sync.OnceValues(func() (*Catalog, error) {
	return LoadCatalog(migrationFS, "migrations")
})

// EmbeddedCatalog returns the migrations compiled into the binary.
func EmbeddedCatalog() (*Catalog, error) {
	return embeddedCatalog()
}
