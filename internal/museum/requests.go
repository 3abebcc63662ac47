package museum

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Fields is the string-typed field bag handed over by the boundary
// layer, keyed by form field name. Values arrive already extracted from
// the request; the core only parses and validates them.
type Fields map[string][]string

// Get returns the first value for key, trimmed.
func (f Fields) Get(key string) string {
	vs := f[key]
	if len(vs) == 0 {
		return ""
	}
	return strings.TrimSpace(vs[0])
}

// List returns all non-empty values for key, trimmed.
func (f Fields) List(key string) []string {
	var out []string
	for _, v := range f[key] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

const dateLayout = "2006-01-02"

var validate = validator.New(validator.WithRequiredStructEnabled())

// checkRequest runs struct validation and converts failures into
// KindInvalid before anything touches the backend.
func checkRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return invalidf("field %s failed %s validation", strings.ToLower(fe.Field()), fe.Tag())
		}
		return invalidf("invalid request: %v", err)
	}
	return nil
}

// NewArtist carries the inline artist submitted with an art piece.
type NewArtist struct {
	Name    string `validate:"required"`
	Birth   int    `validate:"gte=0"`
	Death   *int
	Country string
}

// ArtistRef names either an existing artist or an inline new one.
// Exactly one of Existing/New is set; ParseAddArtPiece enforces that.
type ArtistRef struct {
	Existing string
	New      *NewArtist
}

// AddArtPieceRequest registers a catalog entry and its Creates link.
type AddArtPieceRequest struct {
	Name   string `validate:"required"`
	Year   int    `validate:"gte=0"`
	Genre  string `validate:"required"`
	Format string `validate:"required"`
	Artist ArtistRef
}

// ParseAddArtPiece builds a typed request from the field bag.
//
// Fields: name, year, genre, format, artist_mode ("existing" default, or
// "new"), artist (existing artist name), artist_name / artist_birth /
// artist_death / artist_country (inline artist).
func ParseAddArtPiece(f Fields) (AddArtPieceRequest, error) {
	req := AddArtPieceRequest{
		Name:   f.Get("name"),
		Genre:  f.Get("genre"),
		Format: f.Get("format"),
	}
	year, err := intField(f, "year")
	if err != nil {
		return req, err
	}
	req.Year = year

	switch mode := f.Get("artist_mode"); mode {
	case "", "existing":
		req.Artist.Existing = f.Get("artist")
		if req.Artist.Existing == "" {
			return req, invalidf("field artist is required")
		}
	case "new":
		birth, err := intField(f, "artist_birth")
		if err != nil {
			return req, err
		}
		na := &NewArtist{
			Name:    f.Get("artist_name"),
			Birth:   birth,
			Country: f.Get("artist_country"),
		}
		if d := f.Get("artist_death"); d != "" {
			death, err := strconv.Atoi(d)
			if err != nil {
				return req, invalidf("field artist_death is not a number: %q", d)
			}
			na.Death = &death
		}
		req.Artist.New = na
	default:
		return req, invalidf("field artist_mode must be %q or %q, got %q", "existing", "new", mode)
	}
	return req, nil
}

func (r AddArtPieceRequest) validateFields() error {
	if err := checkRequest(r); err != nil {
		return err
	}
	if r.Artist.New != nil {
		return checkRequest(*r.Artist.New)
	}
	return nil
}

// AddExhibitionRequest registers an exhibition, its gallery link, and
// the placement of every named art piece.
type AddExhibitionRequest struct {
	Name      string `validate:"required"`
	Begin     time.Time
	Until     time.Time
	Gallery   string   `validate:"required"`
	ArtPieces []string `validate:"min=1,dive,required"`
}

// ParseAddExhibition builds a typed request from the field bag.
//
// Fields: name, begin, until (YYYY-MM-DD), gallery, artpieces (repeated).
func ParseAddExhibition(f Fields) (AddExhibitionRequest, error) {
	req := AddExhibitionRequest{
		Name:      f.Get("name"),
		Gallery:   f.Get("gallery"),
		ArtPieces: f.List("artpieces"),
	}
	var err error
	if req.Begin, err = dateField(f, "begin"); err != nil {
		return req, err
	}
	if req.Until, err = dateField(f, "until"); err != nil {
		return req, err
	}
	if req.Until.Before(req.Begin) {
		return req, invalidf("field until predates begin")
	}
	return req, nil
}

// AddDepartmentRequest creates a department.
type AddDepartmentRequest struct {
	Name string `validate:"required"`
}

// ParseAddDepartment builds a typed request from the field bag.
func ParseAddDepartment(f Fields) (AddDepartmentRequest, error) {
	return AddDepartmentRequest{Name: f.Get("name")}, nil
}

// AddEmployeeRequest registers an employee and their WorksIn membership.
type AddEmployeeRequest struct {
	Name       string `validate:"required"`
	SSN        string `validate:"required"`
	Age        int    `validate:"gte=0"`
	Department string `validate:"required"`
}

// ParseAddEmployee builds a typed request from the field bag.
//
// Fields: name, ssn, age, department.
func ParseAddEmployee(f Fields) (AddEmployeeRequest, error) {
	req := AddEmployeeRequest{
		Name:       f.Get("name"),
		SSN:        f.Get("ssn"),
		Department: f.Get("department"),
	}
	age, err := intField(f, "age")
	if err != nil {
		return req, err
	}
	req.Age = age
	return req, nil
}

// PositionManager is the position value that routes an assignment update
// to the Manages relation instead of WorksIn.
const PositionManager = "Manager"

// UpdateEmployeeRequest upserts employee attributes and re-assigns their
// department in exactly one of Manages/WorksIn, chosen by Position.
type UpdateEmployeeRequest struct {
	Name       string `validate:"required"`
	SSN        string `validate:"required"`
	Age        int    `validate:"gte=0"`
	Department string `validate:"required"`
	Position   string `validate:"required"`
}

// ParseUpdateEmployee builds a typed request from the field bag.
//
// Fields: name, ssn, age, department, position.
func ParseUpdateEmployee(f Fields) (UpdateEmployeeRequest, error) {
	req := UpdateEmployeeRequest{
		Name:       f.Get("name"),
		SSN:        f.Get("ssn"),
		Department: f.Get("department"),
		Position:   f.Get("position"),
	}
	age, err := intField(f, "age")
	if err != nil {
		return req, err
	}
	req.Age = age
	return req, nil
}

func intField(f Fields, key string) (int, error) {
	v := f.Get(key)
	if v == "" {
		return 0, invalidf("field %s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, invalidf("field %s is not a number: %q", key, v)
	}
	return n, nil
}

func dateField(f Fields, key string) (time.Time, error) {
	v := f.Get(key)
	if v == "" {
		return time.Time{}, invalidf("field %s is required", key)
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, invalidf("field %s is not a date (use YYYY-MM-DD): %q", key, v)
	}
	return t, nil
}
