package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ikkim/telecom-settlement-backend/config"
	"github.com/ikkim/telecom-settlement-backend/internal/app/controller"
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/app/service"
	"github.com/ikkim/telecom-settlement-backend/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	authController          *controller.AuthController
	storeController         *controller.StoreController
	customerController      *controller.CustomerController
	dealerController        *controller.DealerController
	saleController          *controller.SaleController
	recalculationController *controller.RecalculationController
	goalController          *controller.GoalController
	fixedExpenseController  *controller.FixedExpenseController
	reportController        *controller.ReportController
	authMiddleware          *middleware.AuthMiddleware
	scopeService            service.ScopeService
	config                  *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	storeController *controller.StoreController,
	customerController *controller.CustomerController,
	dealerController *controller.DealerController,
	saleController *controller.SaleController,
	recalculationController *controller.RecalculationController,
	goalController *controller.GoalController,
	fixedExpenseController *controller.FixedExpenseController,
	reportController *controller.ReportController,
	authMiddleware *middleware.AuthMiddleware,
	scopeService service.ScopeService,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:          authController,
		storeController:         storeController,
		customerController:      customerController,
		dealerController:        dealerController,
		saleController:          saleController,
		recalculationController: recalculationController,
		goalController:          goalController,
		fixedExpenseController:  fixedExpenseController,
		reportController:        reportController,
		authMiddleware:          authMiddleware,
		scopeService:            scopeService,
		config:                  cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Settlement API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	hq := r.authMiddleware.RequireRole(string(model.RoleHeadquarters))

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", r.authController.Login)
			auth.POST("/refresh", r.authController.RefreshToken)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
		}

		// 이하 모든 라우트는 DB에 저장된 권한으로 조회 범위를 계산한다
		api := v1.Group("", r.authMiddleware.Authenticate(), middleware.LoadPrincipal(r.scopeService))

		api.GET("/scope", r.storeController.GetScope)

		branches := api.Group("/branches")
		{
			branches.GET("", r.storeController.ListBranches)
			branches.POST("", hq, r.storeController.CreateBranch)
		}

		stores := api.Group("/stores")
		{
			stores.GET("", r.storeController.ListStores)
			stores.POST("", r.storeController.CreateStore)
			stores.GET("/:id", r.storeController.GetStore)
			stores.PUT("/:id", r.storeController.UpdateStore)
			stores.PUT("/:id/branch", hq, r.storeController.ReassignStore)
			stores.GET("/:id/deletion-plan", r.storeController.GetDeletionPlan)
			stores.DELETE("/:id", r.storeController.DeleteStore)
		}

		customers := api.Group("/customers")
		{
			customers.GET("", r.customerController.ListCustomers)
			customers.POST("", r.customerController.CreateCustomer)
		}

		dealers := api.Group("/dealers")
		{
			dealers.GET("", r.dealerController.ListDealers)
			dealers.POST("", hq, r.dealerController.CreateDealer)
			dealers.GET("/:code/active-policy", r.dealerController.GetActivePolicy)
			dealers.PUT("/:code", hq, r.dealerController.UpdateDealer)
			dealers.POST("/:code/activate", hq, r.dealerController.Activate)
			dealers.POST("/:code/deactivate", hq, r.dealerController.Deactivate)
			dealers.POST("/:code/suspend", hq, r.dealerController.Suspend)
		}

		sales := api.Group("/sales")
		{
			sales.GET("", r.saleController.ListSales)
			sales.POST("", r.saleController.SubmitSale)
			sales.GET("/summary", r.saleController.GetSummary)
			sales.POST("/import", r.saleController.ImportSales)
			sales.GET("/:id", r.saleController.GetSale)
			sales.PUT("/:id", r.saleController.UpdateSale)
			sales.POST("/:id/recalculate", r.saleController.RecalculateSale)
		}

		recalculations := api.Group("/recalculations", hq)
		{
			recalculations.POST("", r.recalculationController.StartJob)
			recalculations.GET("/:id", r.recalculationController.GetJob)
			recalculations.GET("/:id/stream", r.recalculationController.StreamJob)
		}

		goals := api.Group("/goals")
		{
			goals.GET("", r.goalController.ListGoals)
			goals.POST("", r.goalController.CreateGoal)
			goals.GET("/achievement", r.goalController.GetAchievement)
			goals.DELETE("/:id", r.goalController.DeactivateGoal)
		}

		expenses := api.Group("/fixed-expenses")
		{
			expenses.GET("", r.fixedExpenseController.ListFixedExpenses)
			expenses.POST("", hq, r.fixedExpenseController.RecordFixedExpense)
		}

		reports := api.Group("/reports")
		{
			reports.GET("/settlements", r.reportController.ExportSettlements)
			reports.POST("/settlements/archive", r.reportController.ArchiveSettlements)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, X-Request-ID, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID, X-Report-Rows")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
