package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ae-utbm/sith-pos/internal/models"
	"github.com/ae-utbm/sith-pos/internal/services"
)

// AccountingHandler exposes the club accounting journals.
type AccountingHandler struct {
	accountingService services.AccountingService
}

// NewAccountingHandler creates a new AccountingHandler.
func NewAccountingHandler(as services.AccountingService) *AccountingHandler {
	return &AccountingHandler{accountingService: as}
}

// CreateJournal opens a new general journal for a club.
func (h *AccountingHandler) CreateJournal(c *gin.Context) {
	var req struct {
		ClubID    int64     `json:"club_id" binding:"required"`
		Name      string    `json:"name" binding:"required"`
		StartDate time.Time `json:"start_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "CreateJournal")
		return
	}
	journal, err := h.accountingService.CreateJournal(req.ClubID, req.Name, req.StartDate)
	if err != nil {
		respondServiceError(c, err, "CreateJournal: Error from accountingService.CreateJournal")
		return
	}
	c.JSON(http.StatusCreated, journal)
}

// GetJournal returns a journal with its running amounts.
func (h *AccountingHandler) GetJournal(c *gin.Context) {
	journalID, ok := pathID(c, "id")
	if !ok {
		return
	}
	journal, err := h.accountingService.GetJournal(journalID)
	if err != nil {
		respondServiceError(c, err, "GetJournal: Error from accountingService.GetJournal")
		return
	}
	c.JSON(http.StatusOK, journal)
}

// CloseJournal closes a journal; no operation may be appended afterwards.
func (h *AccountingHandler) CloseJournal(c *gin.Context) {
	journalID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		EndDate time.Time `json:"end_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "CloseJournal")
		return
	}
	if err := h.accountingService.CloseJournal(journalID, req.EndDate); err != nil {
		respondServiceError(c, err, "CloseJournal: Error from accountingService.CloseJournal")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Journal closed successfully"})
}

// GetJournalOperations lists the operations of a journal in number order.
func (h *AccountingHandler) GetJournalOperations(c *gin.Context) {
	journalID, ok := pathID(c, "id")
	if !ok {
		return
	}
	operations, err := h.accountingService.GetJournalOperations(journalID)
	if err != nil {
		respondServiceError(c, err, "GetJournalOperations: Error from accountingService.GetJournalOperations")
		return
	}
	if operations == nil {
		operations = []models.Operation{}
	}
	c.JSON(http.StatusOK, operations)
}

// RecordOperation appends one operation to a journal.
func (h *AccountingHandler) RecordOperation(c *gin.Context) {
	journalID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var op models.Operation
	if err := c.ShouldBindJSON(&op); err != nil {
		bindError(c, err, "RecordOperation")
		return
	}
	created, err := h.accountingService.RecordOperation(journalID, &op)
	if err != nil {
		respondServiceError(c, err, "RecordOperation: Error from accountingService.RecordOperation")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// RecordOperationPair appends a linked debit/credit pair to a journal.
func (h *AccountingHandler) RecordOperationPair(c *gin.Context) {
	journalID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Debit  models.Operation `json:"debit" binding:"required"`
		Credit models.Operation `json:"credit" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "RecordOperationPair")
		return
	}
	if err := h.accountingService.RecordOperationPair(journalID, &req.Debit, &req.Credit); err != nil {
		respondServiceError(c, err, "RecordOperationPair: Error from accountingService.RecordOperationPair")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"debit":  req.Debit,
		"credit": req.Credit,
	})
}
