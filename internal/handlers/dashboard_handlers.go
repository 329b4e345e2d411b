package handlers

import (
	"net/http"

	"whisply/internal/engine/actors"
	"whisply/internal/middleware"
)

// HandleDashboard serves the authenticated author's summary stats for
// the dashboard charts.
func (s *Server) HandleDashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		result, err := s.request(s.Engine.GetPostActor(), &actors.GetDashboardStatsMsg{AuthorID: userID})
		if err != nil {
			http.Error(w, "Failed to get dashboard stats", http.StatusInternalServerError)
			return
		}
		if s.respondIfAppError(w, result) {
			return
		}

		stats, ok := result.(*actors.DashboardStats)
		if !ok {
			http.Error(w, "Invalid response type", http.StatusInternalServerError)
			return
		}

		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"name": s.authorUsername(userID),
			"summaryStats": []map[string]interface{}{
				{"title": "Total Posts", "value": stats.TotalPosts},
				{"title": "Published", "value": stats.Published},
				{"title": "Drafts", "value": stats.Drafts},
				{"title": "Total Comments", "value": stats.TotalComments},
			},
			"postsPerMonth": stats.PostsPerMonth,
		})
	}
}
