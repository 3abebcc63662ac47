package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps all relations in process memory. Transactions clone
// the state, apply writes to the clone, and swap it in on commit, so a
// failed mutator leaves nothing behind. The store mutex serializes
// transactions; concurrent callers cannot interleave a read-then-write
// sequence.
type MemoryStore struct {
	mu    sync.RWMutex
	state memState
}

type Assignment struct {
	DID int64  `json:"did"`
	SSN string `json:"ssn"`
}

type CreatesRow struct {
	PID int64 `json:"pid"`
	AID int64 `json:"aid"`
}

type BelongsRow struct {
	PID int64 `json:"pid"`
	EID int64 `json:"eid"`
}

type HousesRow struct {
	Gallery string `json:"gallery"`
	EID     int64  `json:"eid"`
}

type LocatesRow struct {
	PID     int64  `json:"pid"`
	Gallery string `json:"gallery"`
}

type memState struct {
	ArtPieces   []ArtPiece
	Artists     []Artist
	Exhibitions []Exhibition
	Galleries   []string
	Departments []Department
	Employees   []Employee
	Customers   []Customer

	Creates   []CreatesRow
	BelongsTo []BelongsRow
	Houses    []HousesRow
	Locates   []LocatesRow
	WorksIn   []Assignment
	Manages   []Assignment

	NextPID int64
	NextAID int64
	NextEID int64
	NextDID int64
}

// Snapshot is the serializable form of the full store state. The sqlite
// backend persists it; tests use it to seed fixtures.
type Snapshot struct {
	ArtPieces   []ArtPiece   `json:"artpieces,omitempty"`
	Artists     []Artist     `json:"artists,omitempty"`
	Exhibitions []Exhibition `json:"exhibitions,omitempty"`
	Galleries   []string     `json:"galleries,omitempty"`
	Departments []Department `json:"departments,omitempty"`
	Employees   []Employee   `json:"employees,omitempty"`
	Customers   []Customer   `json:"customers,omitempty"`

	Creates   []CreatesRow `json:"creates,omitempty"`
	BelongsTo []BelongsRow `json:"belongs_to,omitempty"`
	Houses    []HousesRow  `json:"houses,omitempty"`
	Locates   []LocatesRow `json:"locates,omitempty"`
	WorksIn   []Assignment `json:"works_in,omitempty"`
	Manages   []Assignment `json:"manages,omitempty"`

	NextPID int64 `json:"next_pid,omitempty"`
	NextAID int64 `json:"next_aid,omitempty"`
	NextEID int64 `json:"next_eid,omitempty"`
	NextDID int64 `json:"next_did,omitempty"`
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s memState) clone() memState {
	out := s
	out.ArtPieces = append([]ArtPiece(nil), s.ArtPieces...)
	out.Artists = make([]Artist, len(s.Artists))
	for i, a := range s.Artists {
		out.Artists[i] = a
		if a.Death != nil {
			d := *a.Death
			out.Artists[i].Death = &d
		}
	}
	out.Exhibitions = append([]Exhibition(nil), s.Exhibitions...)
	out.Galleries = append([]string(nil), s.Galleries...)
	out.Departments = append([]Department(nil), s.Departments...)
	out.Employees = append([]Employee(nil), s.Employees...)
	out.Customers = append([]Customer(nil), s.Customers...)
	out.Creates = append([]CreatesRow(nil), s.Creates...)
	out.BelongsTo = append([]BelongsRow(nil), s.BelongsTo...)
	out.Houses = append([]HousesRow(nil), s.Houses...)
	out.Locates = append([]LocatesRow(nil), s.Locates...)
	out.WorksIn = append([]Assignment(nil), s.WorksIn...)
	out.Manages = append([]Assignment(nil), s.Manages...)
	return out
}

func (s memState) snapshot() Snapshot {
	return Snapshot{
		ArtPieces:   s.ArtPieces,
		Artists:     s.Artists,
		Exhibitions: s.Exhibitions,
		Galleries:   s.Galleries,
		Departments: s.Departments,
		Employees:   s.Employees,
		Customers:   s.Customers,
		Creates:     s.Creates,
		BelongsTo:   s.BelongsTo,
		Houses:      s.Houses,
		Locates:     s.Locates,
		WorksIn:     s.WorksIn,
		Manages:     s.Manages,
		NextPID:     s.NextPID,
		NextAID:     s.NextAID,
		NextEID:     s.NextEID,
		NextDID:     s.NextDID,
	}
}

// ExportState returns a deep copy of the current state.
func (s *MemoryStore) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone().snapshot()
}

// ImportState replaces the current state with the snapshot. Counters
// missing from older snapshots are rebuilt from the highest key present.
func (s *MemoryStore) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := memState{
		ArtPieces:   snap.ArtPieces,
		Artists:     snap.Artists,
		Exhibitions: snap.Exhibitions,
		Galleries:   snap.Galleries,
		Departments: snap.Departments,
		Employees:   snap.Employees,
		Customers:   snap.Customers,
		Creates:     snap.Creates,
		BelongsTo:   snap.BelongsTo,
		Houses:      snap.Houses,
		Locates:     snap.Locates,
		WorksIn:     snap.WorksIn,
		Manages:     snap.Manages,
		NextPID:     snap.NextPID,
		NextAID:     snap.NextAID,
		NextEID:     snap.NextEID,
		NextDID:     snap.NextDID,
	}
	for _, p := range st.ArtPieces {
		if p.PID > st.NextPID {
			st.NextPID = p.PID
		}
	}
	for _, a := range st.Artists {
		if a.AID > st.NextAID {
			st.NextAID = a.AID
		}
	}
	for _, e := range st.Exhibitions {
		if e.EID > st.NextEID {
			st.NextEID = e.EID
		}
	}
	for _, d := range st.Departments {
		if d.DID > st.NextDID {
			st.NextDID = d.DID
		}
	}
	s.state = st.clone()
}

// RunInTransaction applies fn to a clone of the state and swaps the
// clone in only when fn succeeds.
func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// View runs fn against a read-only clone of the committed state.
func (s *MemoryStore) View(ctx context.Context, fn func(ReadTx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	clone := s.state.clone()
	return fn(&memTx{state: clone})
}

// Close releases nothing; it exists to satisfy Store.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)

type memTx struct {
	state memState
}

func (t *memTx) ArtistIDByName(_ context.Context, name string) (int64, error) {
	for _, a := range t.state.Artists {
		if a.Name == name {
			return a.AID, nil
		}
	}
	return 0, ErrNotFound
}

func (t *memTx) ArtPieceIDByName(_ context.Context, name string) (int64, error) {
	for _, p := range t.state.ArtPieces {
		if p.Name == name {
			return p.PID, nil
		}
	}
	return 0, ErrNotFound
}

func (t *memTx) DepartmentIDByName(_ context.Context, name string) (int64, error) {
	for _, d := range t.state.Departments {
		if d.Name == name {
			return d.DID, nil
		}
	}
	return 0, ErrNotFound
}

func (t *memTx) WorksInDepartment(_ context.Context, ssn string) (int64, bool, error) {
	for _, w := range t.state.WorksIn {
		if w.SSN == ssn {
			return w.DID, true, nil
		}
	}
	return 0, false, nil
}

func (t *memTx) ManagesDepartment(_ context.Context, ssn string) (int64, bool, error) {
	for _, m := range t.state.Manages {
		if m.SSN == ssn {
			return m.DID, true, nil
		}
	}
	return 0, false, nil
}

func (t *memTx) ArtPieceNames(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(t.state.ArtPieces))
	for _, p := range t.state.ArtPieces {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (t *memTx) ArtistNames(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(t.state.Artists))
	for _, a := range t.state.Artists {
		names = append(names, a.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (t *memTx) ExhibitionNames(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(t.state.Exhibitions))
	for _, e := range t.state.Exhibitions {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (t *memTx) GalleryNames(_ context.Context) ([]string, error) {
	names := append([]string(nil), t.state.Galleries...)
	sort.Strings(names)
	return names, nil
}

func (t *memTx) DepartmentNames(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(t.state.Departments))
	for _, d := range t.state.Departments {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (t *memTx) EmployeeNames(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(t.state.Employees))
	for _, e := range t.state.Employees {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names, nil
}

// PersonnelRows mirrors the postgres outer join: every department yields
// at least one row per role, with a nil person when the role is vacant.
func (t *memTx) PersonnelRows(_ context.Context) ([]PersonnelRow, error) {
	depts := append([]Department(nil), t.state.Departments...)
	sort.Slice(depts, func(i, j int) bool { return depts[i].Name < depts[j].Name })

	var rows []PersonnelRow
	for _, d := range depts {
		rows = append(rows, t.roleRows(d, RoleManager, t.state.Manages)...)
		rows = append(rows, t.roleRows(d, RoleMember, t.state.WorksIn)...)
	}
	return rows, nil
}

func (t *memTx) roleRows(d Department, role Role, rel []Assignment) []PersonnelRow {
	var rows []PersonnelRow
	for _, a := range rel {
		if a.DID != d.DID {
			continue
		}
		if name, ok := t.employeeName(a.SSN); ok {
			n := name
			rows = append(rows, PersonnelRow{Department: d.Name, Person: &n, Role: role})
		}
	}
	if len(rows) == 0 {
		rows = append(rows, PersonnelRow{Department: d.Name, Role: role})
	}
	return rows
}

func (t *memTx) employeeName(ssn string) (string, bool) {
	for _, e := range t.state.Employees {
		if e.SSN == ssn {
			return e.Name, true
		}
	}
	return "", false
}

func (t *memTx) EmployeeRoster(_ context.Context) ([]Employee, error) {
	roster := append([]Employee(nil), t.state.Employees...)
	sort.Slice(roster, func(i, j int) bool { return roster[i].Name < roster[j].Name })
	return roster, nil
}

func (t *memTx) UnassignedArtPieces(_ context.Context) ([]ArtPiece, error) {
	assigned := make(map[int64]bool, len(t.state.BelongsTo))
	for _, b := range t.state.BelongsTo {
		assigned[b.PID] = true
	}
	var out []ArtPiece
	for _, p := range t.state.ArtPieces {
		if !assigned[p.PID] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}

func (t *memTx) Customers(_ context.Context) ([]Customer, error) {
	return append([]Customer(nil), t.state.Customers...), nil
}

func (t *memTx) InsertArtist(_ context.Context, a Artist) (int64, error) {
	t.state.NextAID++
	a.AID = t.state.NextAID
	t.state.Artists = append(t.state.Artists, a)
	return a.AID, nil
}

func (t *memTx) InsertArtPiece(_ context.Context, p ArtPiece) (int64, error) {
	t.state.NextPID++
	p.PID = t.state.NextPID
	t.state.ArtPieces = append(t.state.ArtPieces, p)
	return p.PID, nil
}

func (t *memTx) InsertCreates(_ context.Context, pid, aid int64) error {
	for _, c := range t.state.Creates {
		if c.PID == pid {
			return ErrConflict
		}
	}
	t.state.Creates = append(t.state.Creates, CreatesRow{PID: pid, AID: aid})
	return nil
}

func (t *memTx) InsertExhibition(_ context.Context, e Exhibition) (int64, error) {
	t.state.NextEID++
	e.EID = t.state.NextEID
	t.state.Exhibitions = append(t.state.Exhibitions, e)
	return e.EID, nil
}

// registerGallery records a gallery name on first use. Galleries are
// free-form natural keys, created implicitly by Houses and Locates.
func (t *memTx) registerGallery(name string) {
	for _, g := range t.state.Galleries {
		if g == name {
			return
		}
	}
	t.state.Galleries = append(t.state.Galleries, name)
}

func (t *memTx) InsertHouses(_ context.Context, gallery string, eid int64) error {
	for _, h := range t.state.Houses {
		if h.EID == eid {
			return ErrConflict
		}
	}
	t.registerGallery(gallery)
	t.state.Houses = append(t.state.Houses, HousesRow{Gallery: gallery, EID: eid})
	return nil
}

func (t *memTx) InsertBelongsTo(_ context.Context, pid, eid int64) error {
	for _, b := range t.state.BelongsTo {
		if b.PID == pid && b.EID == eid {
			return ErrConflict
		}
	}
	t.state.BelongsTo = append(t.state.BelongsTo, BelongsRow{PID: pid, EID: eid})
	return nil
}

func (t *memTx) InsertLocates(_ context.Context, pid int64, gallery string) error {
	for _, l := range t.state.Locates {
		if l.PID == pid && l.Gallery == gallery {
			return nil // placement already recorded, not an error
		}
	}
	t.registerGallery(gallery)
	t.state.Locates = append(t.state.Locates, LocatesRow{PID: pid, Gallery: gallery})
	return nil
}

func (t *memTx) InsertDepartment(_ context.Context, name string) (int64, error) {
	t.state.NextDID++
	d := Department{DID: t.state.NextDID, Name: name}
	t.state.Departments = append(t.state.Departments, d)
	return d.DID, nil
}

func (t *memTx) InsertEmployee(_ context.Context, e Employee) error {
	for _, ex := range t.state.Employees {
		if ex.SSN == e.SSN {
			return ErrConflict
		}
	}
	t.state.Employees = append(t.state.Employees, e)
	return nil
}

func (t *memTx) UpsertEmployee(_ context.Context, e Employee) error {
	for i, ex := range t.state.Employees {
		if ex.SSN == e.SSN {
			t.state.Employees[i] = e
			return nil
		}
	}
	t.state.Employees = append(t.state.Employees, e)
	return nil
}

func (t *memTx) InsertWorksIn(_ context.Context, did int64, ssn string) error {
	for _, w := range t.state.WorksIn {
		if w.SSN == ssn {
			return ErrConflict
		}
	}
	t.state.WorksIn = append(t.state.WorksIn, Assignment{DID: did, SSN: ssn})
	return nil
}

func (t *memTx) UpdateWorksIn(_ context.Context, did int64, ssn string) error {
	for i, w := range t.state.WorksIn {
		if w.SSN == ssn {
			t.state.WorksIn[i].DID = did
			return nil
		}
	}
	return ErrNotFound
}

func (t *memTx) UpdateManages(_ context.Context, did int64, ssn string) error {
	for i, m := range t.state.Manages {
		if m.SSN == ssn {
			t.state.Manages[i].DID = did
			return nil
		}
	}
	return ErrNotFound
}
