package http

import (
	"net/http"
	"strconv"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	list, err := s.svc.Expenses.ListExpenses(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpList)
		return
	}
	NewJSONResponse().Body(list).Write(w)
}

// handleCreateExpense accepts category, amount, date (YYYY-MM-DD, default
// today) and description.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeParseError(w, r, err)
		return
	}

	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		UnprocessableEntityError(core.ErrInvalidAmount.Error()).Write(w)
		return
	}

	date := core.DateOf(time.Now())
	if raw := p.Get("date"); raw != "" {
		if date, err = core.ParseDate(raw); err != nil {
			UnprocessableEntityError(core.ErrInvalidDate.Error()).Write(w)
			return
		}
	}

	exp, err := s.svc.Expenses.AddExpense(r.Context(), core.Expense{
		UserID:      userID,
		Category:    p.Get("category"),
		Amount:      amount,
		Date:        date,
		Description: p.Get("description"),
	})
	if err != nil {
		s.writeServiceError(w, r, err, log.OpCreate)
		return
	}

	s.events.LogExpenseCreated(r.Context(), userID, exp.ID, exp.Category, exp.Amount.String())
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/users/"+strconv.FormatInt(userID, 10)+"/expenses/"+strconv.FormatInt(exp.ID, 10)).
		Body(exp).
		Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	expenseID, err := pathID(r, "expenseID")
	if err != nil {
		BadRequestError("invalid expense id").Write(w)
		return
	}

	if err := s.svc.Expenses.DeleteExpense(r.Context(), userID, expenseID); err != nil {
		s.writeServiceError(w, r, err, log.OpDelete)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Expense deleted",
		log.NewFields().WithUser(userID).WithExpense(expenseID, "", "").WithOperation(log.OpDelete).ToSlice()...)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
