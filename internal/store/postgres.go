package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the production backend. Surrogate keys come from
// identity columns, so allocation and insert are a single statement and
// two transactions can never compute the same next key. Unique indexes
// on the association relations turn write races into ErrConflict.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool and applies the schema.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS artists (
	aid     integer GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	name    text NOT NULL,
	birth   integer,
	death   integer,
	country text
);
CREATE TABLE IF NOT EXISTS artpieces (
	pid    integer GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	name   text NOT NULL,
	year   integer,
	genre  text,
	format text
);
CREATE TABLE IF NOT EXISTS exhibitions (
	eid        integer GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	name       text NOT NULL,
	begin_date date NOT NULL,
	end_date   date NOT NULL
);
CREATE TABLE IF NOT EXISTS galleries (
	name text PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS departments (
	did  integer GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	name text NOT NULL
);
CREATE TABLE IF NOT EXISTS employees (
	ssn  text PRIMARY KEY,
	name text NOT NULL,
	age  integer
);
CREATE TABLE IF NOT EXISTS customers (
	name  text NOT NULL,
	visit text
);
CREATE TABLE IF NOT EXISTS creates (
	pid integer NOT NULL UNIQUE,
	aid integer NOT NULL
);
CREATE TABLE IF NOT EXISTS belongs_to (
	pid integer NOT NULL,
	eid integer NOT NULL,
	UNIQUE (pid, eid)
);
CREATE TABLE IF NOT EXISTS houses (
	gallery text NOT NULL,
	eid     integer NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS locates (
	pid     integer NOT NULL,
	gallery text NOT NULL,
	UNIQUE (pid, gallery)
);
CREATE TABLE IF NOT EXISTS works_in (
	did integer NOT NULL,
	ssn text NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS manages (
	did integer NOT NULL,
	ssn text NOT NULL UNIQUE
);
`

// RunInTransaction runs fn inside one database transaction.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(Tx) error) error {
	dbTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback(ctx)

	if err := fn(&pgTx{q: dbTx}); err != nil {
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return classifyPgErr(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// View runs fn inside a read-only transaction, so a view issuing several
// queries observes one committed snapshot.
func (s *PostgresStore) View(ctx context.Context, fn func(ReadTx) error) error {
	dbTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback(ctx)

	if err := fn(&pgTx{q: dbTx}); err != nil {
		return err
	}
	return dbTx.Commit(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var _ Store = (*PostgresStore)(nil)

// querier is the subset of pgx shared by pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgTx struct {
	q querier
}

// classifyPgErr maps backend errors onto the store sentinels.
func classifyPgErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func (t *pgTx) idByName(ctx context.Context, query, name string) (int64, error) {
	var id int64
	if err := t.q.QueryRow(ctx, query, name).Scan(&id); err != nil {
		return 0, classifyPgErr(err)
	}
	return id, nil
}

func (t *pgTx) ArtistIDByName(ctx context.Context, name string) (int64, error) {
	return t.idByName(ctx, `SELECT aid FROM artists WHERE name = $1 LIMIT 1`, name)
}

func (t *pgTx) ArtPieceIDByName(ctx context.Context, name string) (int64, error) {
	return t.idByName(ctx, `SELECT pid FROM artpieces WHERE name = $1 LIMIT 1`, name)
}

func (t *pgTx) DepartmentIDByName(ctx context.Context, name string) (int64, error) {
	return t.idByName(ctx, `SELECT did FROM departments WHERE name = $1 LIMIT 1`, name)
}

func (t *pgTx) assignedDepartment(ctx context.Context, query, ssn string) (int64, bool, error) {
	var did int64
	err := t.q.QueryRow(ctx, query, ssn).Scan(&did)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return did, true, nil
}

func (t *pgTx) WorksInDepartment(ctx context.Context, ssn string) (int64, bool, error) {
	return t.assignedDepartment(ctx, `SELECT did FROM works_in WHERE ssn = $1`, ssn)
}

func (t *pgTx) ManagesDepartment(ctx context.Context, ssn string) (int64, bool, error) {
	return t.assignedDepartment(ctx, `SELECT did FROM manages WHERE ssn = $1`, ssn)
}

func (t *pgTx) names(ctx context.Context, query string) ([]string, error) {
	rows, err := t.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (t *pgTx) ArtPieceNames(ctx context.Context) ([]string, error) {
	return t.names(ctx, `SELECT name FROM artpieces ORDER BY name`)
}

func (t *pgTx) ArtistNames(ctx context.Context) ([]string, error) {
	return t.names(ctx, `SELECT name FROM artists ORDER BY name`)
}

func (t *pgTx) ExhibitionNames(ctx context.Context) ([]string, error) {
	return t.names(ctx, `SELECT name FROM exhibitions ORDER BY name`)
}

func (t *pgTx) GalleryNames(ctx context.Context) ([]string, error) {
	return t.names(ctx, `SELECT name FROM galleries ORDER BY name`)
}

func (t *pgTx) DepartmentNames(ctx context.Context) ([]string, error) {
	return t.names(ctx, `SELECT name FROM departments ORDER BY name`)
}

func (t *pgTx) EmployeeNames(ctx context.Context) ([]string, error) {
	return t.names(ctx, `SELECT name FROM employees ORDER BY name`)
}

// PersonnelRows unions the manager and member outer joins so every
// department appears for both roles even with nobody assigned.
func (t *pgTx) PersonnelRows(ctx context.Context) ([]PersonnelRow, error) {
	const query = `
SELECT d.name, e.name, 'manager' AS role
FROM departments d
LEFT JOIN manages m ON m.did = d.did
LEFT JOIN employees e ON e.ssn = m.ssn
UNION ALL
SELECT d.name, e.name, 'member' AS role
FROM departments d
LEFT JOIN works_in w ON w.did = d.did
LEFT JOIN employees e ON e.ssn = w.ssn
ORDER BY 1, 3, 2`
	rows, err := t.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PersonnelRow
	for rows.Next() {
		var r PersonnelRow
		if err := rows.Scan(&r.Department, &r.Person, &r.Role); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *pgTx) EmployeeRoster(ctx context.Context) ([]Employee, error) {
	rows, err := t.q.Query(ctx, `SELECT ssn, name, age FROM employees ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.SSN, &e.Name, &e.Age); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *pgTx) UnassignedArtPieces(ctx context.Context) ([]ArtPiece, error) {
	const query = `
SELECT p.pid, p.name, p.year, p.genre, p.format
FROM artpieces p
LEFT JOIN belongs_to b ON b.pid = p.pid
WHERE b.pid IS NULL
ORDER BY p.pid`
	rows, err := t.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ArtPiece
	for rows.Next() {
		var p ArtPiece
		if err := rows.Scan(&p.PID, &p.Name, &p.Year, &p.Genre, &p.Format); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *pgTx) Customers(ctx context.Context) ([]Customer, error) {
	rows, err := t.q.Query(ctx, `SELECT name, COALESCE(visit, '') FROM customers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.Name, &c.Visit); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertArtist(ctx context.Context, a Artist) (int64, error) {
	var aid int64
	err := t.q.QueryRow(ctx,
		`INSERT INTO artists (name, birth, death, country) VALUES ($1, $2, $3, $4) RETURNING aid`,
		a.Name, a.Birth, a.Death, a.Country).Scan(&aid)
	if err != nil {
		return 0, classifyPgErr(err)
	}
	return aid, nil
}

func (t *pgTx) InsertArtPiece(ctx context.Context, p ArtPiece) (int64, error) {
	var pid int64
	err := t.q.QueryRow(ctx,
		`INSERT INTO artpieces (name, year, genre, format) VALUES ($1, $2, $3, $4) RETURNING pid`,
		p.Name, p.Year, p.Genre, p.Format).Scan(&pid)
	if err != nil {
		return 0, classifyPgErr(err)
	}
	return pid, nil
}

func (t *pgTx) InsertCreates(ctx context.Context, pid, aid int64) error {
	_, err := t.q.Exec(ctx, `INSERT INTO creates (pid, aid) VALUES ($1, $2)`, pid, aid)
	return classifyPgErr(err)
}

func (t *pgTx) InsertExhibition(ctx context.Context, e Exhibition) (int64, error) {
	var eid int64
	err := t.q.QueryRow(ctx,
		`INSERT INTO exhibitions (name, begin_date, end_date) VALUES ($1, $2, $3) RETURNING eid`,
		e.Name, e.Begin, e.Until).Scan(&eid)
	if err != nil {
		return 0, classifyPgErr(err)
	}
	return eid, nil
}

// registerGallery records a gallery name on first use. Galleries are
// free-form natural keys, created implicitly by Houses and Locates.
func (t *pgTx) registerGallery(ctx context.Context, name string) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO galleries (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	return classifyPgErr(err)
}

func (t *pgTx) InsertHouses(ctx context.Context, gallery string, eid int64) error {
	if err := t.registerGallery(ctx, gallery); err != nil {
		return err
	}
	_, err := t.q.Exec(ctx, `INSERT INTO houses (gallery, eid) VALUES ($1, $2)`, gallery, eid)
	return classifyPgErr(err)
}

func (t *pgTx) InsertBelongsTo(ctx context.Context, pid, eid int64) error {
	_, err := t.q.Exec(ctx, `INSERT INTO belongs_to (pid, eid) VALUES ($1, $2)`, pid, eid)
	return classifyPgErr(err)
}

func (t *pgTx) InsertLocates(ctx context.Context, pid int64, gallery string) error {
	if err := t.registerGallery(ctx, gallery); err != nil {
		return err
	}
	_, err := t.q.Exec(ctx,
		`INSERT INTO locates (pid, gallery) VALUES ($1, $2) ON CONFLICT (pid, gallery) DO NOTHING`,
		pid, gallery)
	return classifyPgErr(err)
}

func (t *pgTx) InsertDepartment(ctx context.Context, name string) (int64, error) {
	var did int64
	err := t.q.QueryRow(ctx,
		`INSERT INTO departments (name) VALUES ($1) RETURNING did`, name).Scan(&did)
	if err != nil {
		return 0, classifyPgErr(err)
	}
	return did, nil
}

func (t *pgTx) InsertEmployee(ctx context.Context, e Employee) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO employees (ssn, name, age) VALUES ($1, $2, $3)`, e.SSN, e.Name, e.Age)
	return classifyPgErr(err)
}

func (t *pgTx) UpsertEmployee(ctx context.Context, e Employee) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO employees (ssn, name, age) VALUES ($1, $2, $3)
		 ON CONFLICT (ssn) DO UPDATE SET name = excluded.name, age = excluded.age`,
		e.SSN, e.Name, e.Age)
	return classifyPgErr(err)
}

func (t *pgTx) InsertWorksIn(ctx context.Context, did int64, ssn string) error {
	_, err := t.q.Exec(ctx, `INSERT INTO works_in (did, ssn) VALUES ($1, $2)`, did, ssn)
	return classifyPgErr(err)
}

func (t *pgTx) UpdateWorksIn(ctx context.Context, did int64, ssn string) error {
	tag, err := t.q.Exec(ctx, `UPDATE works_in SET did = $1 WHERE ssn = $2`, did, ssn)
	if err != nil {
		return classifyPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateManages is scoped by ssn: re-assigning one manager must never
// move every manager of the department.
func (t *pgTx) UpdateManages(ctx context.Context, did int64, ssn string) error {
	tag, err := t.q.Exec(ctx, `UPDATE manages SET did = $1 WHERE ssn = $2`, did, ssn)
	if err != nil {
		return classifyPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
