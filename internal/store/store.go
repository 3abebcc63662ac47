// Package store provides the relational backends for the museum catalog.
//
// Every compound write runs through RunInTransaction so that a mutator's
// statements commit together or not at all. Reads go through View, which
// observes the latest committed state. Three backends implement the
// contract: postgres (production), sqlite (single-file snapshot), and
// memory (tests, ephemeral runs).
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a name or key that does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation, including races
	// surfaced by backend constraints.
	ErrConflict = errors.New("conflict")
)

// ArtPiece is a catalog entry. PID is assigned by the backend.
type ArtPiece struct {
	PID    int64  `json:"pid"`
	Name   string `json:"name"`
	Year   int    `json:"year"`
	Genre  string `json:"genre"`
	Format string `json:"format"`
}

// Artist is a creator of art pieces. Death is nil for living artists.
type Artist struct {
	AID     int64  `json:"aid"`
	Name    string `json:"name"`
	Birth   int    `json:"birth"`
	Death   *int   `json:"death,omitempty"`
	Country string `json:"country"`
}

// Exhibition is a dated showing housed in exactly one gallery.
type Exhibition struct {
	EID   int64     `json:"eid"`
	Name  string    `json:"name"`
	Begin time.Time `json:"begin"`
	Until time.Time `json:"until"`
}

// Department groups employees.
type Department struct {
	DID  int64  `json:"did"`
	Name string `json:"name"`
}

// Employee is identified by its natural key, the ssn.
type Employee struct {
	SSN  string `json:"ssn"`
	Name string `json:"name"`
	Age  int    `json:"age"`
}

// Customer is read-only in the current surface.
type Customer struct {
	Name  string `json:"name"`
	Visit string `json:"visit"`
}

// PersonnelRow is one row of the role-tagged department outer join.
// Person is nil when the department has nobody in the given role, so
// every department appears at least once per role.
type PersonnelRow struct {
	Department string
	Person     *string
	Role       Role
}

// Role tags which association relation a personnel row came from.
type Role string

const (
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

// ReadTx exposes the read operations available inside a transaction or a
// View scope.
type ReadTx interface {
	// Name resolution. Each returns ErrNotFound when no row matches.
	ArtistIDByName(ctx context.Context, name string) (int64, error)
	ArtPieceIDByName(ctx context.Context, name string) (int64, error)
	DepartmentIDByName(ctx context.Context, name string) (int64, error)

	// Assignment lookups by employee ssn. ok is false when no row exists.
	WorksInDepartment(ctx context.Context, ssn string) (did int64, ok bool, err error)
	ManagesDepartment(ctx context.Context, ssn string) (did int64, ok bool, err error)

	// Projections.
	ArtPieceNames(ctx context.Context) ([]string, error)
	ArtistNames(ctx context.Context) ([]string, error)
	ExhibitionNames(ctx context.Context) ([]string, error)
	GalleryNames(ctx context.Context) ([]string, error)
	DepartmentNames(ctx context.Context) ([]string, error)
	EmployeeNames(ctx context.Context) ([]string, error)

	// Aggregation inputs.
	PersonnelRows(ctx context.Context) ([]PersonnelRow, error)
	EmployeeRoster(ctx context.Context) ([]Employee, error)
	UnassignedArtPieces(ctx context.Context) ([]ArtPiece, error)
	Customers(ctx context.Context) ([]Customer, error)
}

// Tx adds the write operations. Identifier allocation happens inside the
// insert (identity columns on postgres, counters on memory), so two
// concurrent transactions can never observe the same next key.
type Tx interface {
	ReadTx

	InsertArtist(ctx context.Context, a Artist) (int64, error)
	InsertArtPiece(ctx context.Context, p ArtPiece) (int64, error)
	InsertCreates(ctx context.Context, pid, aid int64) error

	InsertExhibition(ctx context.Context, e Exhibition) (int64, error)
	InsertHouses(ctx context.Context, gallery string, eid int64) error
	InsertBelongsTo(ctx context.Context, pid, eid int64) error
	InsertLocates(ctx context.Context, pid int64, gallery string) error

	InsertDepartment(ctx context.Context, name string) (int64, error)

	InsertEmployee(ctx context.Context, e Employee) error
	UpsertEmployee(ctx context.Context, e Employee) error
	InsertWorksIn(ctx context.Context, did int64, ssn string) error
	UpdateWorksIn(ctx context.Context, did int64, ssn string) error
	UpdateManages(ctx context.Context, did int64, ssn string) error
}

// Store is the atomic-scope contract over a relational backend.
type Store interface {
	// RunInTransaction runs fn inside one atomic scope. If fn returns an
	// error, every write made through the Tx is discarded.
	RunInTransaction(ctx context.Context, fn func(Tx) error) error

	// View runs fn against the latest committed state.
	View(ctx context.Context, fn func(ReadTx) error) error

	Close() error
}
