package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/ports"
)

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeParseError(w, r, err)
		return
	}

	budget := decimal.Zero
	if raw := p.Get("budget"); raw != "" {
		var err error
		if budget, err = core.ParseAmount(raw); err != nil {
			UnprocessableEntityError(core.ErrInvalidBudget.Error()).Write(w)
			return
		}
	}

	user, err := s.svc.Expenses.RegisterUser(r.Context(), core.User{
		Email:  p.Get("email"),
		Role:   p.Get("role"),
		Budget: budget,
	})
	if err != nil {
		s.writeServiceError(w, r, err, log.OpCreate)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "User registered",
		log.NewFields().WithUser(user.ID).WithOperation(log.OpCreate).ToSlice()...)
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/users/"+strconv.FormatInt(user.ID, 10)).
		Body(user).
		Write(w)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	user, err := s.svc.Expenses.GetUser(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpRead)
		return
	}
	NewJSONResponse().Body(user).Write(w)
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := pathID(r, "userID")
	if err != nil {
		BadRequestError("invalid user id").Write(w)
		return 0, false
	}
	return id, true
}

func writeParseError(w http.ResponseWriter, r *http.Request, err error) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Invalid request body",
		log.NewFields().WithOperation(log.OpParse).WithError(err).ToSlice()...)
	if errors.Is(err, errBodyTooLarge) {
		ErrorResponse(http.StatusRequestEntityTooLarge, err.Error()).Write(w)
		return
	}
	BadRequestError("invalid request body").Write(w)
}

// writeServiceError maps err to a response and logs unexpected failures.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	resp := ErrorFromDomain(err)
	if resp.StatusCode() >= http.StatusInternalServerError {
		s.events.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", ""))
	} else if !errors.Is(err, ports.ErrNotFound) {
		log.FromContext(r.Context()).InfoContext(r.Context(), "Request rejected",
			log.NewFields().WithOperation(op).WithError(err).ToSlice()...)
	}
	resp.Write(w)
}
