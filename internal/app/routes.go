package app

import (
	"github.com/gorilla/mux"
	"github.com/moneymap/moneymap/internal/config"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Project budgets
	r.HandleFunc("/api/project", deps.ProjectHandler.Create).Methods("POST")
	r.HandleFunc("/api/project", deps.ProjectHandler.GetAll).Methods("GET")
	r.HandleFunc("/api/project/{projectId}", deps.ProjectHandler.Get).Methods("GET")
	r.HandleFunc("/api/project/{projectId}", deps.ProjectHandler.Delete).Methods("DELETE")

	// Aggregated overview
	r.HandleFunc("/api/project/{projectId}/overview", deps.ProjectHandler.GetOverview).Methods("GET")

	// Expense allocation
	r.HandleFunc("/api/project/{projectId}/expense/move", deps.ProjectHandler.MoveExpense).Methods("POST")
	r.HandleFunc("/api/project/{projectId}/expense/bulk-move", deps.ProjectHandler.BulkMove).Methods("POST")
	r.HandleFunc("/api/project/{projectId}/transactions/tag", deps.ProjectHandler.BulkTag).Methods("POST")
	r.HandleFunc("/api/project/{projectId}/transaction/{transactionId}", deps.ProjectHandler.Untag).Methods("DELETE")
}
