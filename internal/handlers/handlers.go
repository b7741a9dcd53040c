package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"libraryledger/internal/services"
)

type Handler struct {
	auth    services.AuthService
	catalog services.CatalogService
	ledger  services.LedgerService
	db      *gorm.DB
}

// RegisterRoutes wires the full API surface under /api. Catalog reads are
// open to any authenticated user; catalog writes, user management and the
// unscoped transaction/penalty projections are admin-only; everything under
// /my and /borrow acts on the caller's own records.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, auth services.AuthService, catalog services.CatalogService, ledger services.LedgerService) {
	h := &Handler{auth: auth, catalog: catalog, ledger: ledger, db: db}

	api := r.Group("/api")

	api.POST("/login", h.login)
	api.POST("/register", h.register)
	api.GET("/health", h.health)

	authed := api.Group("")
	authed.Use(RequireAuth(auth))
	{
		authed.POST("/logout", h.logout)

		authed.GET("/books", h.listBooks)
		authed.GET("/books/:id", h.getBook)
		authed.GET("/authors", h.listAuthors)
		authed.GET("/authors/:id", h.getAuthor)
		authed.GET("/categories", h.listCategories)
		authed.GET("/categories/:id", h.getCategory)

		// Member panel
		authed.POST("/borrow", h.borrow)
		authed.GET("/my/transactions", h.listMyTransactions)
		authed.POST("/my/transactions/:id/return", h.returnMyTransaction)
		authed.GET("/my/penalties", h.listMyPenalties)
		authed.POST("/my/penalties/:id/pay", h.payMyPenalty)
		authed.GET("/my/stats", h.myStats)
	}

	admin := api.Group("")
	admin.Use(RequireAuth(auth), RequireAdmin())
	{
		admin.POST("/authors", h.createAuthor)
		admin.PUT("/authors/:id", h.updateAuthor)
		admin.DELETE("/authors/:id", h.deleteAuthor)

		admin.POST("/categories", h.createCategory)
		admin.PUT("/categories/:id", h.updateCategory)
		admin.DELETE("/categories/:id", h.deleteCategory)

		admin.POST("/books", h.createBook)
		admin.PUT("/books/:id", h.updateBook)
		admin.DELETE("/books/:id", h.deleteBook)

		admin.GET("/users", h.listUsers)
		admin.GET("/users/:id", h.getUser)
		admin.POST("/users", h.createUser)
		admin.PUT("/users/:id", h.updateUser)
		admin.DELETE("/users/:id", h.deleteUser)

		admin.GET("/transactions", h.listTransactions)
		admin.POST("/transactions", h.createTransaction)
		admin.DELETE("/transactions/:id", h.deleteTransaction)

		admin.GET("/penalties", h.listPenalties)
		admin.DELETE("/penalties/:id", h.deletePenalty)

		admin.GET("/stats", h.stats)
	}
}

func (h *Handler) health(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "unhealthy", "database": "disconnected"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": "connected"})
}

// respondError maps service sentinels onto the error taxonomy: validation
// 400, auth 401, authorization 403, not found 404, conflict 409. Anything
// unrecognized is a 500 with a generic message so internals do not leak.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrAuthorNotFound),
		errors.Is(err, services.ErrCategoryNotFound),
		errors.Is(err, services.ErrBookNotFound),
		errors.Is(err, services.ErrTransactionNotFound),
		errors.Is(err, services.ErrPenaltyNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrOutOfStock),
		errors.Is(err, services.ErrAlreadyReturned),
		errors.Is(err, services.ErrAlreadyPaid),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrAuthorInUse),
		errors.Is(err, services.ErrCategoryInUse):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}
