package http

import (
	"net/http"

	"spendwise/internal/analytics"
	"spendwise/internal/log"
)

// handleDashboard serves the aggregate for ?period=week|month|year.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	view, err := s.svc.Dashboards.Dashboard(r.Context(), userID, r.URL.Query().Get("period"))
	if err != nil {
		s.writeServiceError(w, r, err, log.OpAggregate)
		return
	}
	NewJSONResponse().Body(view).Write(w)
}

type insightsResponse struct {
	Insights []string `json:"insights"`
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	insights, err := s.svc.Insights.Insights(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpRead)
		return
	}
	if insights == nil {
		insights = []string{}
	}
	NewJSONResponse().Body(insightsResponse{Insights: insights}).Write(w)
}

// handleOptimize reads total_budget plus either a JSON items array of
// {category, amount} or parallel categories[] and amounts[] fields.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	if _, err := s.svc.Expenses.GetUser(r.Context(), userID); err != nil {
		s.writeServiceError(w, r, err, log.OpOptimize)
		return
	}

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeParseError(w, r, err)
		return
	}

	total := p.Get("total_budget")
	if !p.Has("total_budget") {
		total = "0"
	}

	view := s.svc.Planner.Plan(r.Context(), total, proposalFrom(p))
	if view.Optimized {
		s.events.LogPlanOptimized(r.Context(), userID, len(view.Comparison)-1, view.Result.Reduced())
	}
	NewJSONResponse().Body(view).Write(w)
}

// proposalFrom pairs categories with amounts by position. A category without
// a matching amount gets an empty one and is skipped by the optimizer.
func proposalFrom(p *RequestBodyParser) []analytics.ProposalItem {
	if items := p.Objects("items"); len(items) > 0 {
		proposal := make([]analytics.ProposalItem, 0, len(items))
		for _, item := range items {
			proposal = append(proposal, analytics.ProposalItem{
				Category: item["category"],
				Amount:   item["amount"],
			})
		}
		return proposal
	}

	categories := p.Values("categories")
	amounts := p.Values("amounts")
	proposal := make([]analytics.ProposalItem, 0, len(categories))
	for i, category := range categories {
		item := analytics.ProposalItem{Category: category}
		if i < len(amounts) {
			item.Amount = amounts[i]
		}
		proposal = append(proposal, item)
	}
	return proposal
}
