package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ─── Member panel ─────────────────────────────────────────────────────────────

type borrowRequest struct {
	BookID string `json:"bookId" binding:"required,uuid"`
}

func (h *Handler) borrow(c *gin.Context) {
	identity := currentIdentity(c)

	var req borrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bookID, _ := uuid.Parse(req.BookID)

	loan, err := h.ledger.Borrow(identity.UserID, bookID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"message":     fmt.Sprintf("book borrowed, due back %s", loan.ReturnDate.Format("2006-01-02 15:04:05")),
		"transaction": loan,
	})
}

func (h *Handler) listMyTransactions(c *gin.Context) {
	identity := currentIdentity(c)
	txs, err := h.ledger.ListUserTransactions(identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTransactionViews(txs))
}

func (h *Handler) returnMyTransaction(c *gin.Context) {
	identity := currentIdentity(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	result, err := h.ledger.Return(id, identity.UserID, identity.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}

	// The caller learns about the late fee through the message; no extra
	// state leaks into the transaction itself.
	message := "book returned on time"
	if result.Penalty != nil {
		message = fmt.Sprintf("book returned late, penalty of %.2f incurred", result.Penalty.Amount)
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     message,
		"transaction": newTransactionView(*result.Transaction),
	})
}

func (h *Handler) listMyPenalties(c *gin.Context) {
	identity := currentIdentity(c)
	penalties, err := h.ledger.ListUserPenalties(identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPenaltyViews(penalties))
}

func (h *Handler) payMyPenalty(c *gin.Context) {
	identity := currentIdentity(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	penalty, err := h.ledger.PayPenalty(id, identity.UserID, identity.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("penalty of %.2f paid", penalty.Amount),
	})
}

func (h *Handler) myStats(c *gin.Context) {
	identity := currentIdentity(c)
	stats, err := h.ledger.UserStats(identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ─── Admin panel ──────────────────────────────────────────────────────────────

func (h *Handler) listTransactions(c *gin.Context) {
	txs, err := h.ledger.ListTransactions()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTransactionViews(txs))
}

type createTransactionRequest struct {
	BookID string `json:"bookId" binding:"required,uuid"`
	UserID string `json:"userId" binding:"required,uuid"`
}

// createTransaction lets an admin borrow on a member's behalf. It goes
// through the same atomic borrow path as the member endpoint.
func (h *Handler) createTransaction(c *gin.Context) {
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bookID, _ := uuid.Parse(req.BookID)
	userID, _ := uuid.Parse(req.UserID)

	loan, err := h.ledger.Borrow(userID, bookID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

func (h *Handler) deleteTransaction(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.ledger.DeleteTransaction(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "transaction deleted"})
}

func (h *Handler) listPenalties(c *gin.Context) {
	penalties, err := h.ledger.ListPenalties()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPenaltyViews(penalties))
}

func (h *Handler) deletePenalty(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.ledger.DeletePenalty(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "penalty deleted"})
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.ledger.Stats()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
