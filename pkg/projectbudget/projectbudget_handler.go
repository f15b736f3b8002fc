package projectbudget

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/moneymap/moneymap/pkg/expense"
	"github.com/moneymap/moneymap/pkg/transaction"
	log "github.com/sirupsen/logrus"
)

type FundingSourceDTO struct {
	Type            string  `json:"type"`
	Description     string  `json:"description,omitempty"`
	ExpectedAmount  float64 `json:"expectedAmount"`
	AvailableAmount float64 `json:"availableAmount"`
	Currency        string  `json:"currency"`
}

type CategoryBudgetDTO struct {
	CategoryID            string   `json:"categoryId"`
	SubCategoryID         string   `json:"subCategoryId"`
	BudgetedAmount        float64  `json:"budgetedAmount"`
	Currency              string   `json:"currency"`
	AllocatedTransactions []string `json:"allocatedTransactions,omitempty"`
}

type ProjectBudgetDTO struct {
	ID              string              `json:"id,omitempty"`
	Name            string              `json:"name"`
	Currency        string              `json:"currency"`
	ProjectTag      string              `json:"projectTag"`
	StartDate       *time.Time          `json:"startDate,omitempty"`
	EndDate         *time.Time          `json:"endDate,omitempty"`
	FundingSources  []FundingSourceDTO  `json:"fundingSources,omitempty"`
	CategoryBudgets []CategoryBudgetDTO `json:"categoryBudgets,omitempty"`
}

type MoveExpenseDTO struct {
	// ExpenseID is either a transaction id or an installment group
	// identifier in its string wire format.
	ExpenseID     string `json:"expenseId"`
	CategoryID    string `json:"categoryId"`
	SubCategoryID string `json:"subCategoryId"`
}

type BulkMoveDTO struct {
	Items []MoveExpenseDTO `json:"items"`
}

type BulkTagDTO struct {
	TransactionIDs []string `json:"transactionIds"`
}

type BulkResultDTO struct {
	Results []ItemResult `json:"results"`
}

type MoveResultDTO struct {
	TransactionID      string       `json:"transactionId,omitempty"`
	GroupID            string       `json:"groupId,omitempty"`
	ConvertedAmount    float64      `json:"convertedAmount"`
	ConversionFallback bool         `json:"conversionFallback,omitempty"`
	ConversionDegraded bool         `json:"conversionDegraded,omitempty"`
	Results            []ItemResult `json:"results,omitempty"`
}

type Handler struct {
	service         Service
	classifier      ClassifierService
	overviewService OverviewService
}

func NewHandler(service Service, classifier ClassifierService, overviewService OverviewService) *Handler {
	return &Handler{
		service:         service,
		classifier:      classifier,
		overviewService: overviewService,
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new project budget")
	w.Header().Set("Content-Type", "application/json")

	var dto ProjectBudgetDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), dtoToProject(dto))
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(projectToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) GetAll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	projects, err := h.service.GetAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]ProjectBudgetDTO, 0, len(projects))
	for _, project := range projects {
		dtos = append(dtos, projectToDTO(project))
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	projectID := mux.Vars(r)["projectId"]

	project, err := h.service.Get(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(projectToDTO(project)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	projectID := mux.Vars(r)["projectId"]

	deleted, err := h.service.Delete(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		http.Error(w, "Project budget not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	projectID := mux.Vars(r)["projectId"]

	overview, err := h.overviewService.GetOverview(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(overview); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// MoveExpense allocates a single expense or a whole installment group to a
// category budget.
func (h *Handler) MoveExpense(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	projectID := mux.Vars(r)["projectId"]

	var dto MoveExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.moveOne(r, projectID, dto)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// BulkMove processes each item independently and always answers 200 with a
// per-item results array, even when some or all items failed.
func (h *Handler) BulkMove(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	projectID := mux.Vars(r)["projectId"]

	var dto BulkMoveDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	results := make([]ItemResult, 0, len(dto.Items))
	for _, item := range dto.Items {
		result, err := h.moveOne(r, projectID, item)
		if err != nil {
			results = append(results, ItemResult{TransactionID: item.ExpenseID, Error: err.Error()})
			continue
		}
		if result.GroupID != "" {
			results = append(results, result.Results...)
		} else {
			results = append(results, ItemResult{
				TransactionID:   result.TransactionID,
				Succeeded:       true,
				ConvertedAmount: result.ConvertedAmount,
			})
		}
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(BulkResultDTO{Results: results}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) BulkTag(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	projectID := mux.Vars(r)["projectId"]

	var dto BulkTagDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	results, err := h.classifier.TagTransactions(r.Context(), projectID, dto.TransactionIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(BulkResultDTO{Results: results}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) Untag(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	vars := mux.Vars(r)

	if err := h.classifier.Untag(r.Context(), vars["projectId"], vars["transactionId"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// moveOne dispatches on the expense id format: group identifiers go through
// the group move, everything else is a plain transaction id.
func (h *Handler) moveOne(r *http.Request, projectID string, dto MoveExpenseDTO) (MoveResultDTO, error) {
	if strings.HasPrefix(dto.ExpenseID, "installment-group-") {
		key, err := expense.ParseGroupID(dto.ExpenseID)
		if err != nil {
			return MoveResultDTO{}, err
		}
		result, err := h.classifier.MoveGroupToPlanned(r.Context(), projectID, key, dto.CategoryID, dto.SubCategoryID)
		if err != nil {
			return MoveResultDTO{}, err
		}
		return MoveResultDTO{
			GroupID:         result.GroupID,
			ConvertedAmount: result.TotalConverted,
			Results:         result.Results,
		}, nil
	}

	result, err := h.classifier.MoveToPlanned(r.Context(), projectID, dto.ExpenseID, dto.CategoryID, dto.SubCategoryID)
	if err != nil {
		return MoveResultDTO{}, err
	}
	return MoveResultDTO{
		TransactionID:      result.TransactionID,
		ConvertedAmount:    result.ConvertedAmount,
		ConversionFallback: result.ConversionFallback,
		ConversionDegraded: result.ConversionDegraded,
	}, nil
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProjectNotFound), errors.Is(err, transaction.ErrTransactionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrTargetBudgetNotFound),
		errors.Is(err, expense.ErrInvalidGroupID),
		errors.Is(err, ErrDuplicateCategoryBudget):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func projectToDTO(project ProjectBudget) ProjectBudgetDTO {
	var startDate, endDate *time.Time
	if !project.StartDate.IsZero() {
		startDate = &project.StartDate
	}
	if !project.EndDate.IsZero() {
		endDate = &project.EndDate
	}
	fundingSources := make([]FundingSourceDTO, 0, len(project.FundingSources))
	for _, source := range project.FundingSources {
		fundingSources = append(fundingSources, FundingSourceDTO{
			Type:            string(source.Type),
			Description:     source.Description,
			ExpectedAmount:  source.ExpectedAmount,
			AvailableAmount: source.AvailableAmount,
			Currency:        source.Currency,
		})
	}
	categoryBudgets := make([]CategoryBudgetDTO, 0, len(project.CategoryBudgets))
	for _, budget := range project.CategoryBudgets {
		categoryBudgets = append(categoryBudgets, CategoryBudgetDTO{
			CategoryID:            budget.CategoryID,
			SubCategoryID:         budget.SubCategoryID,
			BudgetedAmount:        budget.BudgetedAmount,
			Currency:              budget.Currency,
			AllocatedTransactions: budget.AllocatedTransactions,
		})
	}
	return ProjectBudgetDTO{
		ID:              project.ID,
		Name:            project.Name,
		Currency:        project.Currency,
		ProjectTag:      project.ProjectTag,
		StartDate:       startDate,
		EndDate:         endDate,
		FundingSources:  fundingSources,
		CategoryBudgets: categoryBudgets,
	}
}

func dtoToProject(dto ProjectBudgetDTO) ProjectBudget {
	var startDate, endDate time.Time
	if dto.StartDate != nil {
		startDate = *dto.StartDate
	}
	if dto.EndDate != nil {
		endDate = *dto.EndDate
	}
	fundingSources := make([]FundingSource, 0, len(dto.FundingSources))
	for _, source := range dto.FundingSources {
		fundingSources = append(fundingSources, FundingSource{
			Type:            FundingSourceType(source.Type),
			Description:     source.Description,
			ExpectedAmount:  source.ExpectedAmount,
			AvailableAmount: source.AvailableAmount,
			Currency:        source.Currency,
		})
	}
	categoryBudgets := make([]CategoryBudget, 0, len(dto.CategoryBudgets))
	for _, budget := range dto.CategoryBudgets {
		categoryBudgets = append(categoryBudgets, CategoryBudget{
			CategoryID:            budget.CategoryID,
			SubCategoryID:         budget.SubCategoryID,
			BudgetedAmount:        budget.BudgetedAmount,
			Currency:              budget.Currency,
			AllocatedTransactions: budget.AllocatedTransactions,
		})
	}
	return ProjectBudget{
		ID:              dto.ID,
		Name:            dto.Name,
		Currency:        dto.Currency,
		ProjectTag:      dto.ProjectTag,
		StartDate:       startDate,
		EndDate:         endDate,
		FundingSources:  fundingSources,
		CategoryBudgets: categoryBudgets,
	}
}
