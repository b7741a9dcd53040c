package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"libraryledger/internal/models"
)

// ─── Authors ──────────────────────────────────────────────────────────────────

type authorRequest struct {
	Name     string `json:"name" binding:"required"`
	LastName string `json:"lastName" binding:"required"`
	Country  string `json:"country"`
}

func (h *Handler) listAuthors(c *gin.Context) {
	authors, err := h.catalog.ListAuthors()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, authors)
}

func (h *Handler) getAuthor(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	author, err := h.catalog.GetAuthor(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, author)
}

func (h *Handler) createAuthor(c *gin.Context) {
	var req authorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	author, err := h.catalog.CreateAuthor(req.Name, req.LastName, req.Country)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, author)
}

func (h *Handler) updateAuthor(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req authorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	author, err := h.catalog.UpdateAuthor(id, req.Name, req.LastName, req.Country)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, author)
}

func (h *Handler) deleteAuthor(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteAuthor(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "author deleted"})
}

// ─── Categories ───────────────────────────────────────────────────────────────

type categoryRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *Handler) getCategory(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	category, err := h.catalog.GetCategory(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *Handler) createCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	category, err := h.catalog.CreateCategory(req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *Handler) updateCategory(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	category, err := h.catalog.UpdateCategory(id, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "category deleted"})
}

// ─── Books ────────────────────────────────────────────────────────────────────

type bookRequest struct {
	Title             string `json:"title" binding:"required"`
	AuthorID          string `json:"authorId" binding:"required,uuid"`
	CategoryID        string `json:"categoryId" binding:"required,uuid"`
	StockNumber       int    `json:"stockNumber" binding:"required,min=0"`
	YearOfPublication int    `json:"yearOfPublication"`
}

func (h *Handler) listBooks(c *gin.Context) {
	books, err := h.catalog.ListBooks()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookViews(books))
}

func (h *Handler) getBook(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	book, err := h.catalog.GetBook(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookView(*book))
}

func (h *Handler) createBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	authorID, _ := uuid.Parse(req.AuthorID)
	categoryID, _ := uuid.Parse(req.CategoryID)

	book, err := h.catalog.CreateBook(req.Title, authorID, categoryID, req.StockNumber, req.YearOfPublication)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (h *Handler) updateBook(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	authorID, _ := uuid.Parse(req.AuthorID)
	categoryID, _ := uuid.Parse(req.CategoryID)

	book, err := h.catalog.UpdateBook(id, req.Title, authorID, categoryID, req.StockNumber, req.YearOfPublication)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *Handler) deleteBook(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteBook(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "book deleted"})
}

// ─── Users ────────────────────────────────────────────────────────────────────

type createUserRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Role     string `json:"role"`
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.catalog.ListUsers()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	user, err := h.catalog.GetUser(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.catalog.CreateUser(req.FullName, req.Email, req.Password, models.UserRole(req.Role))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) updateUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.catalog.UpdateUser(id, req.FullName, req.Email, models.UserRole(req.Role))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteUser(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "user deleted"})
}
