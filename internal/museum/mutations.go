package museum

import (
	"context"
	"fmt"

	"github.com/northhall/museum/internal/store"
)

// AddArtPiece registers an art piece and its Creates link. When the
// request carries an inline artist, that artist row is inserted first,
// in the same atomic scope. Returns the new pid.
func (s *Service) AddArtPiece(ctx context.Context, req AddArtPieceRequest) (int64, error) {
	if err := req.validateFields(); err != nil {
		return 0, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var pid int64
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		aid, err := resolveArtist(ctx, tx, req.Artist)
		if err != nil {
			return err
		}
		pid, err = tx.InsertArtPiece(ctx, store.ArtPiece{
			Name:   req.Name,
			Year:   req.Year,
			Genre:  req.Genre,
			Format: req.Format,
		})
		if err != nil {
			return storeErr(fmt.Sprintf("insert art piece %q", req.Name), err)
		}
		if err := tx.InsertCreates(ctx, pid, aid); err != nil {
			return storeErr(fmt.Sprintf("link art piece %d to artist %d", pid, aid), err)
		}
		return nil
	})
	if err != nil {
		return 0, storeErr("add art piece", err)
	}
	return pid, nil
}

func resolveArtist(ctx context.Context, tx store.Tx, ref ArtistRef) (int64, error) {
	if ref.New != nil {
		aid, err := tx.InsertArtist(ctx, store.Artist{
			Name:    ref.New.Name,
			Birth:   ref.New.Birth,
			Death:   ref.New.Death,
			Country: ref.New.Country,
		})
		if err != nil {
			return 0, storeErr(fmt.Sprintf("insert artist %q", ref.New.Name), err)
		}
		return aid, nil
	}
	aid, err := tx.ArtistIDByName(ctx, ref.Existing)
	if err != nil {
		return 0, storeErr(fmt.Sprintf("artist %q", ref.Existing), err)
	}
	return aid, nil
}

// AddExhibition registers an exhibition, links it to its gallery via
// Houses, and places every named art piece via BelongsTo and Locates.
// All names are resolved before the first write, so an unresolvable
// piece aborts with zero partial state. Returns the new eid.
func (s *Service) AddExhibition(ctx context.Context, req AddExhibitionRequest) (int64, error) {
	if err := checkRequest(req); err != nil {
		return 0, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var eid int64
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		pids := make([]int64, 0, len(req.ArtPieces))
		for _, name := range req.ArtPieces {
			pid, err := tx.ArtPieceIDByName(ctx, name)
			if err != nil {
				return storeErr(fmt.Sprintf("art piece %q", name), err)
			}
			pids = append(pids, pid)
		}

		var err error
		eid, err = tx.InsertExhibition(ctx, store.Exhibition{
			Name:  req.Name,
			Begin: req.Begin,
			Until: req.Until,
		})
		if err != nil {
			return storeErr(fmt.Sprintf("insert exhibition %q", req.Name), err)
		}
		if err := tx.InsertHouses(ctx, req.Gallery, eid); err != nil {
			return storeErr(fmt.Sprintf("house exhibition %d in %q", eid, req.Gallery), err)
		}
		// A placed piece is located at the housing gallery; BelongsTo and
		// Locates must agree.
		for _, pid := range pids {
			if err := tx.InsertBelongsTo(ctx, pid, eid); err != nil {
				return storeErr(fmt.Sprintf("place art piece %d in exhibition %d", pid, eid), err)
			}
			if err := tx.InsertLocates(ctx, pid, req.Gallery); err != nil {
				return storeErr(fmt.Sprintf("locate art piece %d at %q", pid, req.Gallery), err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, storeErr("add exhibition", err)
	}
	return eid, nil
}

// AddDepartment creates a department and returns the new did.
func (s *Service) AddDepartment(ctx context.Context, req AddDepartmentRequest) (int64, error) {
	if err := checkRequest(req); err != nil {
		return 0, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var did int64
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		var err error
		did, err = tx.InsertDepartment(ctx, req.Name)
		return storeErr(fmt.Sprintf("insert department %q", req.Name), err)
	})
	if err != nil {
		return 0, storeErr("add department", err)
	}
	return did, nil
}

// AddEmployee registers an employee and their WorksIn membership. If
// the department does not resolve, the employee insert rolls back too.
func (s *Service) AddEmployee(ctx context.Context, req AddEmployeeRequest) error {
	if err := checkRequest(req); err != nil {
		return err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		if err := tx.InsertEmployee(ctx, store.Employee{SSN: req.SSN, Name: req.Name, Age: req.Age}); err != nil {
			return storeErr(fmt.Sprintf("insert employee %s", req.SSN), err)
		}
		did, err := tx.DepartmentIDByName(ctx, req.Department)
		if err != nil {
			return storeErr(fmt.Sprintf("department %q", req.Department), err)
		}
		if err := tx.InsertWorksIn(ctx, did, req.SSN); err != nil {
			return storeErr(fmt.Sprintf("assign employee %s to department %d", req.SSN, did), err)
		}
		return nil
	})
	return storeErr("add employee", err)
}

// UpdateEmployeeAssignment upserts employee attributes by ssn and moves
// their assignment. Position "Manager" updates the existing Manages row
// (scoped by ssn) and fails with KindPreconditionFailed when there is
// none: promotion is explicit, never an implicit insert. Any other
// position updates the WorksIn row, inserting one if absent. Exactly one
// of Manages/WorksIn is touched per call.
func (s *Service) UpdateEmployeeAssignment(ctx context.Context, req UpdateEmployeeRequest) error {
	if err := checkRequest(req); err != nil {
		return err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		if err := tx.UpsertEmployee(ctx, store.Employee{SSN: req.SSN, Name: req.Name, Age: req.Age}); err != nil {
			return storeErr(fmt.Sprintf("upsert employee %s", req.SSN), err)
		}
		did, err := tx.DepartmentIDByName(ctx, req.Department)
		if err != nil {
			return storeErr(fmt.Sprintf("department %q", req.Department), err)
		}

		if req.Position == PositionManager {
			_, ok, err := tx.ManagesDepartment(ctx, req.SSN)
			if err != nil {
				return storeErr(fmt.Sprintf("look up manager record for %s", req.SSN), err)
			}
			if !ok {
				return preconditionf("employee %s is not a manager", req.SSN)
			}
			return storeErr(fmt.Sprintf("move manager %s to department %d", req.SSN, did),
				tx.UpdateManages(ctx, did, req.SSN))
		}

		_, ok, err := tx.WorksInDepartment(ctx, req.SSN)
		if err != nil {
			return storeErr(fmt.Sprintf("look up membership for %s", req.SSN), err)
		}
		if ok {
			return storeErr(fmt.Sprintf("move employee %s to department %d", req.SSN, did),
				tx.UpdateWorksIn(ctx, did, req.SSN))
		}
		return storeErr(fmt.Sprintf("assign employee %s to department %d", req.SSN, did),
			tx.InsertWorksIn(ctx, did, req.SSN))
	})
	return storeErr("update employee assignment", err)
}
