package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moneymap/moneymap/internal/config"
	"github.com/moneymap/moneymap/internal/utils"
	"github.com/moneymap/moneymap/pkg/category"
	"github.com/moneymap/moneymap/pkg/currency"
	"github.com/moneymap/moneymap/pkg/expense"
	"github.com/moneymap/moneymap/pkg/projectbudget"
	"github.com/moneymap/moneymap/pkg/transaction"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	RateRepo          currency.RateRepo
	ConversionService currency.ConversionService

	TransactionRepo transaction.Repo

	CategoryRepo    category.Repo
	CategoryService category.Service

	Grouper *expense.Grouper

	ProjectRepo           projectbudget.Repo
	ProjectService        projectbudget.Service
	ClassifierService     projectbudget.ClassifierService
	RecommendationService projectbudget.RecommendationService
	OverviewService       projectbudget.OverviewService
	ProjectHandler        *projectbudget.Handler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}

	deps.RateRepo = currency.NewRateRepo(db)
	deps.ConversionService = currency.NewConversionService(deps.RateRepo, cfg.Currency.MaxFallbackDays)

	deps.TransactionRepo = transaction.NewRepo(db)

	deps.CategoryRepo = category.NewRepo(db)
	deps.CategoryService = category.NewService(deps.CategoryRepo)

	deps.Grouper = expense.NewGrouper(deps.ConversionService)

	deps.ProjectRepo = projectbudget.NewRepo(db)
	deps.ProjectService = projectbudget.NewService(deps.ProjectRepo)
	deps.ClassifierService = projectbudget.NewClassifierService(deps.ProjectRepo, deps.TransactionRepo, deps.ConversionService)
	deps.RecommendationService = projectbudget.NewRecommendationService(deps.ConversionService)
	deps.OverviewService = projectbudget.NewOverviewService(
		deps.ProjectRepo,
		deps.TransactionRepo,
		deps.Grouper,
		deps.ConversionService,
		deps.RecommendationService,
		deps.CategoryService,
		deps.Clock,
	)
	deps.ProjectHandler = projectbudget.NewHandler(deps.ProjectService, deps.ClassifierService, deps.OverviewService)

	return deps
}
