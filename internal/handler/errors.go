package handler

import (
	"errors"
	"net/http"

	"copraledger/internal/ledger"
	"copraledger/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// respondError maps domain errors to HTTP statuses and writes the standard
// error envelope.
func respondError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidTransition),
		errors.Is(err, ledger.ErrInvalidLoanState),
		errors.Is(err, ledger.ErrAlreadyAllocated):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrNotEligible):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, response.Error(status, err.Error()))
}

// currentUserID extracts the authenticated user id set by the auth middleware.
func currentUserID(c *gin.Context) string {
	userID, _ := c.Get("userID")
	str, _ := userID.(string)
	return str
}
