package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"

	_ "modernc.org/sqlite"
)

const createDetailsTable = `
CREATE TABLE IF NOT EXISTS dinosaur_details (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT NOT NULL UNIQUE,
	temporal_range  TEXT,
	diet            TEXT,
	locomotion_type TEXT,
	description     TEXT,
	length          TEXT,
	weight          TEXT,
	height          TEXT,
	domain          TEXT,
	kingdom         TEXT,
	phylum          TEXT,
	clade           TEXT,
	family_info     TEXT,
	genus_info      TEXT,
	species_info    TEXT,
	source_info     TEXT,
	image_info      TEXT,
	created_at      TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_dinosaur_details_diet ON dinosaur_details(diet);
`

const createImagesTable = `
CREATE TABLE IF NOT EXISTS image_data (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	title   TEXT NOT NULL UNIQUE,
	url     TEXT,
	author  TEXT,
	license TEXT
);
`

const detailColumns = `id, name, temporal_range, diet, locomotion_type, description,
	length, weight, height, domain, kingdom, phylum, clade,
	family_info, genus_info, species_info, source_info, image_info, created_at`

const upsertDetail = `
INSERT INTO dinosaur_details (
	name, temporal_range, diet, locomotion_type, description,
	length, weight, height, domain, kingdom, phylum, clade,
	family_info, genus_info, species_info, source_info, image_info, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, strftime('%Y-%m-%dT%H:%M:%SZ', 'now')))
ON CONFLICT(name) DO UPDATE SET
	temporal_range = excluded.temporal_range,
	diet = excluded.diet,
	locomotion_type = excluded.locomotion_type,
	description = excluded.description,
	length = excluded.length,
	weight = excluded.weight,
	height = excluded.height,
	domain = excluded.domain,
	kingdom = excluded.kingdom,
	phylum = excluded.phylum,
	clade = excluded.clade,
	family_info = excluded.family_info,
	genus_info = excluded.genus_info,
	species_info = excluded.species_info,
	source_info = excluded.source_info,
	image_info = excluded.image_info
`

const upsertImage = `
INSERT INTO image_data (title, url, author, license) VALUES (?, ?, ?, ?)
ON CONFLICT(title) DO UPDATE SET
	url = excluded.url,
	author = excluded.author,
	license = excluded.license
`

// SQLStore serves the catalog tables from a SQLite database.
type SQLStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// OpenSQLStore opens (creating if needed) the database at path and
// applies the schema. ":memory:" opens a private in-memory database.
func OpenSQLStore(path string) (*SQLStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	s := &SQLStore{
		db:     db,
		logger: log.With().Str("component", "sqlstore").Logger(),
	}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the tables when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createDetailsTable); err != nil {
		return fmt.Errorf("failed to create dinosaur_details schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, createImagesTable); err != nil {
		return fmt.Errorf("failed to create image_data schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Import upserts records (by name) and images (by title) in one
// transaction.
func (s *SQLStore) Import(ctx context.Context, records []catalog.Dinosaur, images []catalog.Image) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	detailStmt, err := tx.PrepareContext(ctx, upsertDetail)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer detailStmt.Close()

	for _, d := range records {
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("import: record without name")
		}
		r := rowFromDinosaur(d)
		_, err := detailStmt.ExecContext(ctx,
			r.Name, nullable(r.TemporalRange), nullable(r.Diet), nullable(r.LocomotionType),
			nullable(r.Description), nullable(r.Length), nullable(r.Weight), nullable(r.Height),
			nullable(r.Domain), nullable(r.Kingdom), nullable(r.Phylum), nullable(r.Clade),
			nullable(r.FamilyInfo), nullable(r.GenusInfo), nullable(r.SpeciesInfo),
			nullable(string(r.SourceInfo)), nullable(string(r.ImageInfo)), nullable(r.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert %q: %w", d.Name, err)
		}
	}

	imageStmt, err := tx.PrepareContext(ctx, upsertImage)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer imageStmt.Close()

	for _, img := range images {
		if _, err := imageStmt.ExecContext(ctx, img.Title, img.Source, img.Attribution, img.License); err != nil {
			return fmt.Errorf("failed to insert image %q: %w", img.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}

	s.logger.Info().
		Int("dinosaurs", len(records)).
		Int("images", len(images)).
		Msg("Imported catalog data")
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// escapeLike escapes LIKE wildcards so v matches literally (ESCAPE '\').
func escapeLike(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(v)
}

// whereClause builds the WHERE clause and arguments for the filters.
// SQLite LIKE is case-insensitive for ASCII.
func whereClause(f catalog.Filters) (string, []any) {
	f = f.Normalize()

	var (
		conds []string
		args  []any
	)
	if f.Diet != "" {
		conds = append(conds, "diet = ?")
		args = append(args, f.Diet)
	}
	if f.LocomotionType != "" {
		conds = append(conds, `locomotion_type LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(f.LocomotionType))
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(f.Search) + "%"
		conds = append(conds, `(name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if f.Era != "" {
		conds = append(conds, `temporal_range LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(f.Era)+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDetail(sc rowScanner) (detailRow, error) {
	var (
		r    detailRow
		cols [17]sql.NullString
	)
	dest := []any{&r.ID, &r.Name}
	for i := range cols {
		dest = append(dest, &cols[i])
	}
	if err := sc.Scan(dest...); err != nil {
		return detailRow{}, err
	}

	r.TemporalRange = cols[0].String
	r.Diet = cols[1].String
	r.LocomotionType = cols[2].String
	r.Description = cols[3].String
	r.Length = cols[4].String
	r.Weight = cols[5].String
	r.Height = cols[6].String
	r.Domain = cols[7].String
	r.Kingdom = cols[8].String
	r.Phylum = cols[9].String
	r.Clade = cols[10].String
	r.FamilyInfo = cols[11].String
	r.GenusInfo = cols[12].String
	r.SpeciesInfo = cols[13].String
	if cols[14].Valid {
		r.SourceInfo = []byte(cols[14].String)
	}
	if cols[15].Valid {
		r.ImageInfo = []byte(cols[15].String)
	}
	r.CreatedAt = cols[16].String
	return r, nil
}

// queryDinosaurs runs a select over dinosaur_details and returns formatted,
// image-enriched records.
func (s *SQLStore) queryDinosaurs(ctx context.Context, query string, args ...any) ([]catalog.Dinosaur, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dinosaurs: %w", err)
	}
	defer rows.Close()

	items := []catalog.Dinosaur{}
	for rows.Next() {
		r, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dinosaur: %w", err)
		}
		items = append(items, r.toDinosaur())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dinosaurs: %w", err)
	}
	rows.Close()

	enrichImages(ctx, s.logger, items, s.lookupImage)
	return items, nil
}

// lookupImage finds the image_data row whose title is "File:<title>.*".
func (s *SQLStore) lookupImage(ctx context.Context, title string) (*catalog.Image, error) {
	var (
		img                  imageRow
		url, author, license sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, url, author, license FROM image_data WHERE title LIKE ? ESCAPE '\' ORDER BY id LIMIT 1`,
		escapeLike(imagePattern(title))+"%",
	).Scan(&img.ID, &img.Title, &url, &author, &license)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query image: %w", err)
	}
	img.URL, img.Author, img.License = url.String, author.String, license.String
	return img.toImage(), nil
}

// ListDinosaurs implements Gateway.
func (s *SQLStore) ListDinosaurs(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	q.Limit = catalog.NormalizeLimit(q.Limit)
	if q.Page < 1 {
		q.Page = 1
	}

	where, args := whereClause(q.Filters)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dinosaur_details"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count dinosaurs: %w", err)
	}

	query := "SELECT " + detailColumns + " FROM dinosaur_details" + where + " ORDER BY name ASC LIMIT ? OFFSET ?"
	items, err := s.queryDinosaurs(ctx, query, append(args, q.Limit, q.Offset())...)
	if err != nil {
		return nil, err
	}

	return &catalog.Page{
		Data:       items,
		Pagination: catalog.NewPagination(q.Page, q.Limit, total),
	}, nil
}

// SearchDinosaurs implements Gateway.
func (s *SQLStore) SearchDinosaurs(ctx context.Context, term string) ([]catalog.Dinosaur, error) {
	where, args := whereClause(catalog.Filters{Search: term})
	return s.queryDinosaurs(ctx, "SELECT "+detailColumns+" FROM dinosaur_details"+where+" ORDER BY name ASC", args...)
}

// GetDinosaur implements Gateway.
func (s *SQLStore) GetDinosaur(ctx context.Context, name string) (*catalog.Dinosaur, error) {
	items, err := s.queryDinosaurs(ctx, "SELECT "+detailColumns+" FROM dinosaur_details WHERE name = ? LIMIT 1", name)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return &items[0], nil
}

// GetDinosaurs implements Gateway.
func (s *SQLStore) GetDinosaurs(ctx context.Context, names []string) ([]catalog.Dinosaur, error) {
	if len(names) == 0 {
		return []catalog.Dinosaur{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}
	return s.queryDinosaurs(ctx,
		"SELECT "+detailColumns+" FROM dinosaur_details WHERE name IN ("+placeholders+") ORDER BY name ASC",
		args...)
}

// CountDinosaurs implements Gateway.
func (s *SQLStore) CountDinosaurs(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dinosaur_details").Scan(&n); err != nil {
		return 0, fmt.Errorf("count dinosaurs: %w", err)
	}
	return n, nil
}

// FieldDistribution implements Gateway.
func (s *SQLStore) FieldDistribution(ctx context.Context, field Field) (map[string]int, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	// field is one of two constants, never user input
	rows, err := s.db.QueryContext(ctx,
		"SELECT COALESCE("+string(field)+", ''), COUNT(*) FROM dinosaur_details GROUP BY 1")
	if err != nil {
		return nil, fmt.Errorf("distribution %s: %w", field, err)
	}
	defer rows.Close()

	dist := make(map[string]int)
	for rows.Next() {
		var (
			v string
			n int
		)
		if err := rows.Scan(&v, &n); err != nil {
			return nil, fmt.Errorf("scan distribution: %w", err)
		}
		dist[distributionKey(v)] += n
	}
	return dist, rows.Err()
}

// ListNames implements Gateway.
func (s *SQLStore) ListNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM dinosaur_details ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("list names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// RandomDinosaurs implements Gateway.
func (s *SQLStore) RandomDinosaurs(ctx context.Context, n int) ([]catalog.Dinosaur, error) {
	if n <= 0 {
		n = DefaultRandomCount
	}
	return s.queryDinosaurs(ctx, "SELECT "+detailColumns+" FROM dinosaur_details ORDER BY RANDOM() LIMIT ?", n)
}

// Ping implements Gateway.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
