// Package migrations exposes the embedded esign schema per SQL dialect and
// hands each filesystem to a caller supplied registration hook, typically
// persistence.Client.RegisterSQLMigrations.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	esign "github.com/goliatone/go-esign"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	DefaultSourceLabel = "go-esign"

	migrationsDir = "data/sql/migrations"
)

// dialectDirs lists each dialect's directory relative to migrationsDir, in
// registration order.
var dialectDirs = []struct {
	dialect string
	dir     string
}{
	{dialect: DialectPostgres, dir: "."},
	{dialect: DialectSQLite, dir: "sqlite"},
}

type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

type Registration struct {
	SourceLabel       string
	ValidationTargets []string
	Filesystems       []FilesystemSpec
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

func WithDialectSourceLabel(label string) Option {
	return func(r *Registration) {
		if label = strings.TrimSpace(label); label != "" {
			r.SourceLabel = label
		}
	}
}

// WithValidationTargets limits registration to the named dialects.
func WithValidationTargets(targets ...string) Option {
	return func(r *Registration) {
		if normalized := normalizeDialects(targets); len(normalized) > 0 {
			r.ValidationTargets = normalized
		}
	}
}

// WithFilesystems replaces the embedded schema, e.g. with an application's
// own migrations laid out the same way.
func WithFilesystems(filesystems ...FilesystemSpec) Option {
	return func(r *Registration) {
		var kept []FilesystemSpec
		for _, spec := range filesystems {
			spec.Dialect = normalizeDialect(spec.Dialect)
			if spec.Dialect != "" && spec.FS != nil {
				kept = append(kept, spec)
			}
		}
		if len(kept) > 0 {
			r.Filesystems = kept
		}
	}
}

// Filesystems returns one filesystem per dialect. The optional source
// replaces the embedded schema; it may hold data/sql/migrations or the
// migration files at its root. Every up migration must ship its down pair.
func Filesystems(sources ...fs.FS) ([]FilesystemSpec, error) {
	root := esign.GetMigrationsFS()
	if len(sources) > 0 && sources[0] != nil {
		root = sources[0]
	}
	base, basePath, err := locateMigrations(root)
	if err != nil {
		return nil, err
	}

	specs := make([]FilesystemSpec, 0, len(dialectDirs))
	for _, entry := range dialectDirs {
		sub := base
		if entry.dir != "." {
			if sub, err = fs.Sub(base, entry.dir); err != nil {
				return nil, fmt.Errorf("migrations: resolve %s filesystem: %w", entry.dialect, err)
			}
		}
		specPath := path.Join(basePath, entry.dir)
		if err := checkPairs(sub, entry.dialect, specPath); err != nil {
			return nil, err
		}
		specs = append(specs, FilesystemSpec{Dialect: entry.dialect, Path: specPath, FS: sub})
	}
	return specs, nil
}

// Register calls registerFn once per targeted dialect, postgres first.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel:       DefaultSourceLabel,
		ValidationTargets: []string{DialectPostgres, DialectSQLite},
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}
	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}

	for _, spec := range reg.Filesystems {
		if !slices.Contains(reg.ValidationTargets, spec.Dialect) {
			continue
		}
		if err := registerFn(ctx, spec.Dialect, reg.SourceLabel, spec.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", spec.Dialect, spec.Path, err)
		}
	}
	return reg, nil
}

func locateMigrations(root fs.FS) (fs.FS, string, error) {
	if info, err := fs.Stat(root, migrationsDir); err == nil && info.IsDir() {
		sub, subErr := fs.Sub(root, migrationsDir)
		if subErr != nil {
			return nil, "", fmt.Errorf("migrations: open %s: %w", migrationsDir, subErr)
		}
		return sub, migrationsDir, nil
	}
	if matches, _ := fs.Glob(root, "*.up.sql"); len(matches) > 0 {
		return root, ".", nil
	}
	return nil, "", fmt.Errorf("migrations: %s not found", migrationsDir)
}

func checkPairs(fsys fs.FS, dialect string, specPath string) error {
	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return fmt.Errorf("migrations: glob %s %s: %w", dialect, specPath, err)
	}
	if len(ups) == 0 {
		return fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", dialect, specPath)
	}
	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, err := fs.Stat(fsys, down); err != nil {
			return fmt.Errorf("migrations: %s migration %s has no %s", dialect, up, down)
		}
	}
	return nil
}

func normalizeDialect(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "sqlite3" {
		return DialectSQLite
	}
	return value
}

func normalizeDialects(values []string) []string {
	var out []string
	for _, value := range values {
		if value = normalizeDialect(value); value != "" && !slices.Contains(out, value) {
			out = append(out, value)
		}
	}
	return out
}
