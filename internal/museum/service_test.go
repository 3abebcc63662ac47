package museum

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/northhall/museum/internal/store"
)

func newTestService(t *testing.T, snap store.Snapshot) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	st.ImportState(snap)
	return NewService(st, time.Second), st
}

// stalledStore blocks every call until the operation deadline expires.
type stalledStore struct {
	store.Store
}

func (s stalledStore) RunInTransaction(ctx context.Context, fn func(store.Tx) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s stalledStore) View(ctx context.Context, fn func(store.ReadTx) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestOperationTimeoutYieldsUnavailable(t *testing.T) {
	svc := NewService(stalledStore{store.NewMemoryStore()}, 10*time.Millisecond)

	_, err := svc.AddDepartment(context.Background(), AddDepartmentRequest{Name: "Conservation"})
	if got := KindOf(err); got != KindUnavailable {
		t.Errorf("mutator kind = %q, want %q (err: %v)", got, KindUnavailable, err)
	}

	_, err = svc.Personnel(context.Background())
	if got := KindOf(err); got != KindUnavailable {
		t.Errorf("view kind = %q, want %q (err: %v)", got, KindUnavailable, err)
	}
}

func TestAddArtPieceExistingArtist(t *testing.T) {
	svc, st := newTestService(t, store.Snapshot{
		Artists: []store.Artist{{AID: 1, Name: "Claude Monet", Birth: 1840, Country: "France"}},
	})

	pid, err := svc.AddArtPiece(context.Background(), AddArtPieceRequest{
		Name:   "Water Lilies",
		Year:   1906,
		Genre:  "Impressionism",
		Format: "Oil on canvas",
		Artist: ArtistRef{Existing: "Claude Monet"},
	})
	if err != nil {
		t.Fatalf("AddArtPiece: %v", err)
	}
	if pid != 1 {
		t.Errorf("pid = %d, want 1", pid)
	}

	snap := st.ExportState()
	if len(snap.ArtPieces) != 1 || snap.ArtPieces[0].Name != "Water Lilies" {
		t.Errorf("artpieces = %+v, want one row for Water Lilies", snap.ArtPieces)
	}
	if len(snap.Creates) != 1 || snap.Creates[0].PID != pid || snap.Creates[0].AID != 1 {
		t.Errorf("creates = %+v, want {PID:%d AID:1}", snap.Creates, pid)
	}
}

func TestAddArtPieceInlineArtist(t *testing.T) {
	svc, st := newTestService(t, store.Snapshot{})

	death := 1669
	pid, err := svc.AddArtPiece(context.Background(), AddArtPieceRequest{
		Name:   "The Night Watch",
		Year:   1642,
		Genre:  "Baroque",
		Format: "Oil on canvas",
		Artist: ArtistRef{New: &NewArtist{
			Name:    "Rembrandt van Rijn",
			Birth:   1606,
			Death:   &death,
			Country: "Netherlands",
		}},
	})
	if err != nil {
		t.Fatalf("AddArtPiece: %v", err)
	}

	snap := st.ExportState()
	if len(snap.Artists) != 1 {
		t.Fatalf("artists = %+v, want one row", snap.Artists)
	}
	a := snap.Artists[0]
	if a.Name != "Rembrandt van Rijn" || a.Death == nil || *a.Death != 1669 {
		t.Errorf("artist = %+v, want Rembrandt with death 1669", a)
	}
	if len(snap.Creates) != 1 || snap.Creates[0].PID != pid || snap.Creates[0].AID != a.AID {
		t.Errorf("creates = %+v, want link %d -> %d", snap.Creates, pid, a.AID)
	}
}

func TestAddArtPieceUnknownArtistRollsBack(t *testing.T) {
	svc, st := newTestService(t, store.Snapshot{})

	_, err := svc.AddArtPiece(context.Background(), AddArtPieceRequest{
		Name:   "Water Lilies",
		Year:   1906,
		Genre:  "Impressionism",
		Format: "Oil on canvas",
		Artist: ArtistRef{Existing: "Nobody"},
	})
	if got := KindOf(err); got != KindNotFound {
		t.Fatalf("kind = %q, want %q (err: %v)", got, KindNotFound, err)
	}

	snap := st.ExportState()
	if len(snap.ArtPieces) != 0 || len(snap.Creates) != 0 {
		t.Errorf("state after failed add: artpieces=%d creates=%d, want 0/0",
			len(snap.ArtPieces), len(snap.Creates))
	}
}

func TestAddExhibition(t *testing.T) {
	svc, st := newTestService(t, store.Snapshot{
		ArtPieces: []store.ArtPiece{
			{PID: 1, Name: "Water Lilies"},
			{PID: 2, Name: "Irises"},
		},
	})

	eid, err := svc.AddExhibition(context.Background(), AddExhibitionRequest{
		Name:      "Spring Show",
		Begin:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Until:     time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC),
		Gallery:   "East Wing",
		ArtPieces: []string{"Water Lilies", "Irises"},
	})
	if err != nil {
		t.Fatalf("AddExhibition: %v", err)
	}

	snap := st.ExportState()
	if len(snap.Exhibitions) != 1 || snap.Exhibitions[0].Name != "Spring Show" {
		t.Fatalf("exhibitions = %+v, want one row for Spring Show", snap.Exhibitions)
	}
	if len(snap.Houses) != 1 || snap.Houses[0].Gallery != "East Wing" || snap.Houses[0].EID != eid {
		t.Errorf("houses = %+v, want East Wing housing %d", snap.Houses, eid)
	}
	if len(snap.BelongsTo) != 2 {
		t.Errorf("belongs_to = %+v, want 2 rows", snap.BelongsTo)
	}
	if len(snap.Locates) != 2 {
		t.Errorf("locates = %+v, want 2 rows", snap.Locates)
	}
	for _, l := range snap.Locates {
		if l.Gallery != "East Wing" {
			t.Errorf("locates row %+v, want gallery East Wing", l)
		}
	}
	if len(snap.Galleries) != 1 || snap.Galleries[0] != "East Wing" {
		t.Errorf("galleries = %v, want [East Wing]", snap.Galleries)
	}
}

func TestAddExhibitionUnknownPieceLeavesNothing(t *testing.T) {
	svc, st := newTestService(t, store.Snapshot{
		ArtPieces: []store.ArtPiece{{PID: 1, Name: "Water Lilies"}},
	})

	_, err := svc.AddExhibition(context.Background(), AddExhibitionRequest{
		Name:      "Spring Show",
		Begin:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Until:     time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC),
		Gallery:   "East Wing",
		ArtPieces: []string{"Water Lilies", "No Such Piece"},
	})
	if got := KindOf(err); got != KindNotFound {
		t.Fatalf("kind = %q, want %q (err: %v)", got, KindNotFound, err)
	}

	snap := st.ExportState()
	if len(snap.Exhibitions) != 0 || len(snap.Houses) != 0 || len(snap.BelongsTo) != 0 || len(snap.Locates) != 0 {
		t.Errorf("partial state after failed add: %+v", snap)
	}
}

func TestAddDepartmentConcurrentKeysAreDense(t *testing.T) {
	svc, st := newTestService(t, store.Snapshot{})

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AddDepartment(context.Background(), AddDepartmentRequest{
				Name: "Department " + string(rune('A'+i)),
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("AddDepartment %d: %v", i, err)
		}
	}

	snap := st.ExportState()
	if len(snap.Departments) != n {
		t.Fatalf("departments = %d, want %d", len(snap.Departments), n)
	}
	seen := make(map[int64]bool)
	for _, d := range snap.Departments {
		if d.DID < 1 || d.DID > n {
			t.Errorf("did %d outside 1..%d", d.DID, n)
		}
		if seen[d.DID] {
			t.Errorf("did %d allocated twice", d.DID)
		}
		seen[d.DID] = true
	}
}

func TestAddEmployee(t *testing.T) {
	svc, st := newTestService(t, store.Snapshot{
		Departments: []store.Department{{DID: 1, Name: "Conservation"}},
	})

	err := svc.AddEmployee(context.Background(), AddEmployeeRequest{
		Name: "Ana Ruiz", SSN: "123-45-6789", Age: 41, Department: "Conservation",
	})
	if err != nil {
		t.Fatalf("AddEmployee: %v", err)
	}

	snap := st.ExportState()
	if len(snap.Employees) != 1 || len(snap.WorksIn) != 1 {
		t.Fatalf("employees=%d works_in=%d, want 1/1", len(snap.Employees), len(snap.WorksIn))
	}
	if snap.WorksIn[0].DID != 1 || snap.WorksIn[0].SSN != "123-45-6789" {
		t.Errorf("works_in = %+v", snap.WorksIn[0])
	}
}

func TestAddEmployeeUnknownDepartmentRollsBack(t *testing.T) {
	svc, st := newTestService(t, store.Snapshot{})

	err := svc.AddEmployee(context.Background(), AddEmployeeRequest{
		Name: "Ana Ruiz", SSN: "123-45-6789", Age: 41, Department: "No Such Dept",
	})
	if got := KindOf(err); got != KindNotFound {
		t.Fatalf("kind = %q, want %q (err: %v)", got, KindNotFound, err)
	}
	if snap := st.ExportState(); len(snap.Employees) != 0 {
		t.Errorf("employee row survived a failed add: %+v", snap.Employees)
	}
}

func TestAddEmployeeDuplicateSSN(t *testing.T) {
	svc, _ := newTestService(t, store.Snapshot{
		Departments: []store.Department{{DID: 1, Name: "Conservation"}},
		Employees:   []store.Employee{{SSN: "123-45-6789", Name: "Ana Ruiz", Age: 41}},
		WorksIn:     []store.Assignment{{DID: 1, SSN: "123-45-6789"}},
	})

	err := svc.AddEmployee(context.Background(), AddEmployeeRequest{
		Name: "Impostor", SSN: "123-45-6789", Age: 30, Department: "Conservation",
	})
	if got := KindOf(err); got != KindConflict {
		t.Fatalf("kind = %q, want %q (err: %v)", got, KindConflict, err)
	}
}

func TestUpdateEmployeeAssignmentMovesMember(t *testing.T) {
	svc, st := newTestService(t, store.Snapshot{
		Departments: []store.Department{
			{DID: 1, Name: "Conservation"},
			{DID: 2, Name: "Archives"},
		},
		Employees: []store.Employee{{SSN: "123-45-6789", Name: "Ana Ruiz", Age: 41}},
		WorksIn:   []store.Assignment{{DID: 1, SSN: "123-45-6789"}},
	})

	err := svc.UpdateEmployeeAssignment(context.Background(), UpdateEmployeeRequest{
		Name: "Ana Ruiz", SSN: "123-45-6789", Age: 42, Department: "Archives", Position: "Conservator",
	})
	if err != nil {
		t.Fatalf("UpdateEmployeeAssignment: %v", err)
	}

	snap := st.ExportState()
	if len(snap.WorksIn) != 1 {
		t.Fatalf("works_in rows = %d, want exactly 1 after an in-place move", len(snap.WorksIn))
	}
	if snap.WorksIn[0].DID != 2 {
		t.Errorf("works_in did = %d, want 2", snap.WorksIn[0].DID)
	}
	if snap.Employees[0].Age != 42 {
		t.Errorf("employee age = %d, want 42 after upsert", snap.Employees[0].Age)
	}
}

func TestUpdateEmployeeAssignmentInsertsWhenUnassigned(t *testing.T) {
	svc, st := newTestService(t, store.Snapshot{
		Departments: []store.Department{{DID: 1, Name: "Conservation"}},
	})

	err := svc.UpdateEmployeeAssignment(context.Background(), UpdateEmployeeRequest{
		Name: "Ana Ruiz", SSN: "123-45-6789", Age: 41, Department: "Conservation", Position: "Conservator",
	})
	if err != nil {
		t.Fatalf("UpdateEmployeeAssignment: %v", err)
	}

	snap := st.ExportState()
	if len(snap.Employees) != 1 || len(snap.WorksIn) != 1 {
		t.Errorf("employees=%d works_in=%d, want 1/1", len(snap.Employees), len(snap.WorksIn))
	}
}

func TestUpdateEmployeeAssignmentMovesManager(t *testing.T) {
	svc, st := newTestService(t, store.Snapshot{
		Departments: []store.Department{
			{DID: 1, Name: "Conservation"},
			{DID: 2, Name: "Archives"},
		},
		Employees: []store.Employee{
			{SSN: "123-45-6789", Name: "Ana Ruiz", Age: 41},
			{SSN: "987-65-4321", Name: "Ben Okafor", Age: 55},
		},
		Manages: []store.Assignment{
			{DID: 1, SSN: "123-45-6789"},
			{DID: 1, SSN: "987-65-4321"},
		},
	})

	err := svc.UpdateEmployeeAssignment(context.Background(), UpdateEmployeeRequest{
		Name: "Ana Ruiz", SSN: "123-45-6789", Age: 41, Department: "Archives", Position: PositionManager,
	})
	if err != nil {
		t.Fatalf("UpdateEmployeeAssignment: %v", err)
	}

	// Only Ana moves; the other manager of department 1 stays put.
	snap := st.ExportState()
	for _, m := range snap.Manages {
		switch m.SSN {
		case "123-45-6789":
			if m.DID != 2 {
				t.Errorf("Ana manages did %d, want 2", m.DID)
			}
		case "987-65-4321":
			if m.DID != 1 {
				t.Errorf("Ben manages did %d, want 1", m.DID)
			}
		}
	}
	if len(snap.WorksIn) != 0 {
		t.Errorf("manager update touched works_in: %+v", snap.WorksIn)
	}
}

func TestUpdateEmployeeAssignmentPromotionFails(t *testing.T) {
	svc, st := newTestService(t, store.Snapshot{
		Departments: []store.Department{{DID: 1, Name: "Conservation"}},
		Employees:   []store.Employee{{SSN: "123-45-6789", Name: "Ana Ruiz", Age: 41}},
		WorksIn:     []store.Assignment{{DID: 1, SSN: "123-45-6789"}},
	})

	err := svc.UpdateEmployeeAssignment(context.Background(), UpdateEmployeeRequest{
		Name: "Ana Ruiz", SSN: "123-45-6789", Age: 45, Department: "Conservation", Position: PositionManager,
	})
	if got := KindOf(err); got != KindPreconditionFailed {
		t.Fatalf("kind = %q, want %q (err: %v)", got, KindPreconditionFailed, err)
	}

	// The whole operation rolls back, attribute upsert included.
	snap := st.ExportState()
	if snap.Employees[0].Age != 41 {
		t.Errorf("employee age = %d, want 41 after rollback", snap.Employees[0].Age)
	}
	if len(snap.Manages) != 0 {
		t.Errorf("manages rows appeared: %+v", snap.Manages)
	}
}

func TestPersonnelIncludesEmptyDepartments(t *testing.T) {
	svc, _ := newTestService(t, store.Snapshot{
		Departments: []store.Department{
			{DID: 1, Name: "Archives"},
			{DID: 2, Name: "Conservation"},
		},
		Employees: []store.Employee{
			{SSN: "123-45-6789", Name: "Ana Ruiz", Age: 41},
			{SSN: "987-65-4321", Name: "Ben Okafor", Age: 55},
		},
		WorksIn: []store.Assignment{{DID: 2, SSN: "123-45-6789"}},
		Manages: []store.Assignment{{DID: 2, SSN: "987-65-4321"}},
	})

	report, err := svc.Personnel(context.Background())
	if err != nil {
		t.Fatalf("Personnel: %v", err)
	}
	if len(report.Departments) != 2 {
		t.Fatalf("departments = %d, want 2", len(report.Departments))
	}

	archives := report.Departments[0]
	if archives.Department != "Archives" {
		t.Fatalf("first department = %q, want Archives", archives.Department)
	}
	if archives.Managers == nil || archives.Members == nil {
		t.Errorf("empty department lists must be non-nil: %+v", archives)
	}
	if len(archives.Managers) != 0 || len(archives.Members) != 0 {
		t.Errorf("Archives = %+v, want empty lists", archives)
	}

	conservation := report.Departments[1]
	if len(conservation.Managers) != 1 || conservation.Managers[0] != "Ben Okafor" {
		t.Errorf("Conservation managers = %v, want [Ben Okafor]", conservation.Managers)
	}
	if len(conservation.Members) != 1 || conservation.Members[0] != "Ana Ruiz" {
		t.Errorf("Conservation members = %v, want [Ana Ruiz]", conservation.Members)
	}

	if len(report.Roster) != 2 {
		t.Errorf("roster = %d employees, want 2", len(report.Roster))
	}
}

func TestUnassignedArtPieces(t *testing.T) {
	svc, _ := newTestService(t, store.Snapshot{
		ArtPieces: []store.ArtPiece{
			{PID: 1, Name: "Water Lilies"},
			{PID: 2, Name: "Irises"},
		},
		Exhibitions: []store.Exhibition{{EID: 1, Name: "Spring Show"}},
		BelongsTo:   []store.BelongsRow{{PID: 1, EID: 1}},
	})

	pieces, err := svc.UnassignedArtPieces(context.Background())
	if err != nil {
		t.Fatalf("UnassignedArtPieces: %v", err)
	}
	if len(pieces) != 1 || pieces[0].Name != "Irises" {
		t.Errorf("unassigned = %+v, want just Irises", pieces)
	}
}

func TestIndex(t *testing.T) {
	svc, _ := newTestService(t, store.Snapshot{
		ArtPieces:   []store.ArtPiece{{PID: 1, Name: "Water Lilies"}},
		Exhibitions: []store.Exhibition{{EID: 1, Name: "Spring Show"}},
		Galleries:   []string{"East Wing"},
		Employees:   []store.Employee{{SSN: "123-45-6789", Name: "Ana Ruiz"}},
		Customers:   []store.Customer{{Name: "Pat Lee", Visit: "2026-04-12"}},
	})

	sum, err := svc.Index(context.Background())
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if len(sum.ArtPieces) != 1 || sum.ArtPieces[0] != "Water Lilies" {
		t.Errorf("artpieces = %v", sum.ArtPieces)
	}
	if len(sum.Exhibitions) != 1 || sum.Exhibitions[0] != "Spring Show" {
		t.Errorf("exhibitions = %v", sum.Exhibitions)
	}
	if len(sum.Galleries) != 1 || sum.Galleries[0] != "East Wing" {
		t.Errorf("galleries = %v", sum.Galleries)
	}
	if len(sum.Customers) != 1 || sum.Customers[0] != "Pat Lee" {
		t.Errorf("customers = %v", sum.Customers)
	}
}

func TestFormChoices(t *testing.T) {
	svc, _ := newTestService(t, store.Snapshot{
		Galleries:   []string{"West Wing", "East Wing"},
		Departments: []store.Department{{DID: 1, Name: "Conservation"}},
		Artists:     []store.Artist{{AID: 1, Name: "Claude Monet"}},
		Employees:   []store.Employee{{SSN: "123-45-6789", Name: "Ana Ruiz"}},
	})

	choices, err := svc.FormChoices(context.Background())
	if err != nil {
		t.Fatalf("FormChoices: %v", err)
	}
	wantGalleries := []string{"East Wing", "West Wing"}
	if len(choices.Galleries) != 2 || choices.Galleries[0] != wantGalleries[0] || choices.Galleries[1] != wantGalleries[1] {
		t.Errorf("galleries = %v, want %v (sorted)", choices.Galleries, wantGalleries)
	}
	if len(choices.Departments) != 1 || len(choices.Artists) != 1 || len(choices.Employees) != 1 {
		t.Errorf("choices = %+v", choices)
	}
}
