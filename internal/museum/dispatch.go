package museum

import (
	"context"

	"github.com/google/uuid"
	"github.com/northhall/museum/internal/logging"
)

// Operation names a mutator exposed to the boundary layer. The values
// match the form endpoints of the original surface.
type Operation string

const (
	OpAddArtPiece    Operation = "add_ap"
	OpAddExhibition  Operation = "add_exhib"
	OpAddDepartment  Operation = "add_dept"
	OpAddEmployee    Operation = "add_emp"
	OpUpdateEmployee Operation = "update_emp"
)

// MutationResult reports a committed mutation. ID is the surrogate key
// of the created entity, zero for operations keyed naturally (employee
// updates).
type MutationResult struct {
	Op Operation `json:"op"`
	ID int64     `json:"id,omitempty"`
}

// Mutate routes a named operation and its field bag to the matching
// mutator. Each call gets an operation ID that ties the log entries for
// one mutation together.
func (s *Service) Mutate(ctx context.Context, op Operation, fields Fields) (MutationResult, error) {
	opID := uuid.New().String()
	logger := logging.WithFields(ctx, "operation", string(op), "operation_id", opID)

	var (
		id  int64
		err error
	)
	switch op {
	case OpAddArtPiece:
		var req AddArtPieceRequest
		if req, err = ParseAddArtPiece(fields); err == nil {
			id, err = s.AddArtPiece(ctx, req)
		}
	case OpAddExhibition:
		var req AddExhibitionRequest
		if req, err = ParseAddExhibition(fields); err == nil {
			id, err = s.AddExhibition(ctx, req)
		}
	case OpAddDepartment:
		var req AddDepartmentRequest
		if req, err = ParseAddDepartment(fields); err == nil {
			id, err = s.AddDepartment(ctx, req)
		}
	case OpAddEmployee:
		var req AddEmployeeRequest
		if req, err = ParseAddEmployee(fields); err == nil {
			err = s.AddEmployee(ctx, req)
		}
	case OpUpdateEmployee:
		var req UpdateEmployeeRequest
		if req, err = ParseUpdateEmployee(fields); err == nil {
			err = s.UpdateEmployeeAssignment(ctx, req)
		}
	default:
		err = invalidf("unknown operation %q", op)
	}

	if err != nil {
		logger.Warn("mutation failed", "kind", string(KindOf(err)), "error", err)
		return MutationResult{}, err
	}
	logger.Info("mutation committed", "id", id)
	return MutationResult{Op: op, ID: id}, nil
}
