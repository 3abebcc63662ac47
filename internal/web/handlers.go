package web

import (
	"net/http"

	"github.com/northhall/museum/internal/museum"
)

type mutationResponse struct {
	Op       string `json:"op"`
	ID       int64  `json:"id,omitempty"`
	Redirect string `json:"redirect"`
}

// handleMutation adapts one named mutation to a form POST. The raw form
// values go to the core untouched; parsing and validation happen there.
func (s *Server) handleMutation(op museum.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			respondError(w, r, &museum.Error{
				Kind:   museum.KindInvalid,
				Detail: "parse form",
				Err:    err,
			})
			return
		}

		result, err := s.service.Mutate(r.Context(), op, museum.Fields(r.PostForm))
		if err != nil {
			respondError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, mutationResponse{
			Op:       string(result.Op),
			ID:       result.ID,
			Redirect: "/",
		})
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Index(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handlePersonnel(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Personnel(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.service.Customers(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) handleFormChoices(w http.ResponseWriter, r *http.Request) {
	choices, err := s.service.FormChoices(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, choices)
}

func (s *Server) handleUnassignedArtPieces(w http.ResponseWriter, r *http.Request) {
	pieces, err := s.service.UnassignedArtPieces(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pieces)
}
