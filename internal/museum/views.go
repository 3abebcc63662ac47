package museum

import (
	"context"

	"github.com/northhall/museum/internal/store"
)

// DepartmentPersonnel is one department with its (possibly empty)
// manager and member name lists.
type DepartmentPersonnel struct {
	Department string   `json:"department"`
	Managers   []string `json:"managers"`
	Members    []string `json:"members"`
}

// PersonnelReport groups personnel by department and carries a flat
// roster of every employee, independent of department.
type PersonnelReport struct {
	Departments []DepartmentPersonnel `json:"departments"`
	Roster      []store.Employee      `json:"roster"`
}

// Personnel returns every department, including those with no manager
// and no members, plus the employee roster.
func (s *Service) Personnel(ctx context.Context) (PersonnelReport, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var report PersonnelReport
	err := s.store.View(ctx, func(tx store.ReadTx) error {
		rows, err := tx.PersonnelRows(ctx)
		if err != nil {
			return err
		}
		report.Departments = foldPersonnel(rows)
		report.Roster, err = tx.EmployeeRoster(ctx)
		return err
	})
	if err != nil {
		return PersonnelReport{}, storeErr("personnel view", err)
	}
	return report, nil
}

// foldPersonnel groups role-tagged outer-join rows by department,
// preserving row order. Rows with a nil person register the department
// and contribute nothing to its lists.
func foldPersonnel(rows []store.PersonnelRow) []DepartmentPersonnel {
	index := make(map[string]int)
	out := make([]DepartmentPersonnel, 0)
	for _, r := range rows {
		i, ok := index[r.Department]
		if !ok {
			i = len(out)
			index[r.Department] = i
			out = append(out, DepartmentPersonnel{
				Department: r.Department,
				Managers:   []string{},
				Members:    []string{},
			})
		}
		if r.Person == nil {
			continue
		}
		switch r.Role {
		case store.RoleManager:
			out[i].Managers = append(out[i].Managers, *r.Person)
		case store.RoleMember:
			out[i].Members = append(out[i].Members, *r.Person)
		}
	}
	return out
}

// UnassignedArtPieces lists pieces with no BelongsTo row, the choices
// offered when composing a new exhibition.
func (s *Service) UnassignedArtPieces(ctx context.Context) ([]store.ArtPiece, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var pieces []store.ArtPiece
	err := s.store.View(ctx, func(tx store.ReadTx) error {
		var err error
		pieces, err = tx.UnassignedArtPieces(ctx)
		return err
	})
	if err != nil {
		return nil, storeErr("unassigned art pieces view", err)
	}
	return pieces, nil
}

// IndexSummary is the landing-page projection: the names of everything
// in the catalog.
type IndexSummary struct {
	ArtPieces   []string `json:"artpieces"`
	Exhibitions []string `json:"exhibitions"`
	Galleries   []string `json:"galleries"`
	Employees   []string `json:"employees"`
	Customers   []string `json:"customers"`
}

// Index assembles the landing-page name lists in one consistent view.
func (s *Service) Index(ctx context.Context) (IndexSummary, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var sum IndexSummary
	err := s.store.View(ctx, func(tx store.ReadTx) error {
		var err error
		if sum.ArtPieces, err = tx.ArtPieceNames(ctx); err != nil {
			return err
		}
		if sum.Exhibitions, err = tx.ExhibitionNames(ctx); err != nil {
			return err
		}
		if sum.Galleries, err = tx.GalleryNames(ctx); err != nil {
			return err
		}
		if sum.Employees, err = tx.EmployeeNames(ctx); err != nil {
			return err
		}
		customers, err := tx.Customers(ctx)
		if err != nil {
			return err
		}
		sum.Customers = make([]string, 0, len(customers))
		for _, c := range customers {
			sum.Customers = append(sum.Customers, c.Name)
		}
		return nil
	})
	if err != nil {
		return IndexSummary{}, storeErr("index view", err)
	}
	return sum, nil
}

// FormChoices carries the name lists the add forms offer.
type FormChoices struct {
	Galleries   []string `json:"galleries"`
	Departments []string `json:"departments"`
	Artists     []string `json:"artists"`
	Employees   []string `json:"employees"`
}

// FormChoices returns the reference lists for the mutation forms.
func (s *Service) FormChoices(ctx context.Context) (FormChoices, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var out FormChoices
	err := s.store.View(ctx, func(tx store.ReadTx) error {
		var err error
		if out.Galleries, err = tx.GalleryNames(ctx); err != nil {
			return err
		}
		if out.Departments, err = tx.DepartmentNames(ctx); err != nil {
			return err
		}
		if out.Artists, err = tx.ArtistNames(ctx); err != nil {
			return err
		}
		out.Employees, err = tx.EmployeeNames(ctx)
		return err
	})
	if err != nil {
		return FormChoices{}, storeErr("form choices view", err)
	}
	return out, nil
}

// Customers returns the customer visit records.
func (s *Service) Customers(ctx context.Context) ([]store.Customer, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var customers []store.Customer
	err := s.store.View(ctx, func(tx store.ReadTx) error {
		var err error
		customers, err = tx.Customers(ctx)
		return err
	})
	if err != nil {
		return nil, storeErr("customers view", err)
	}
	return customers, nil
}
