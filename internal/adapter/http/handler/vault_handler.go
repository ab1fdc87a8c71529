package handler

import (
	"strconv"
	"time"

	"kipu-bank/internal/adapter/http/dto"
	"kipu-bank/internal/adapter/http/middleware"
	"kipu-bank/internal/core/domain"
	"kipu-bank/internal/core/ports"
	"kipu-bank/pkg/apperror"
	"kipu-bank/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// VaultHandler handles vault-related endpoints. The acting account is always
// the one from the bearer token; there is no way to move another account's
// funds.
type VaultHandler struct {
	vaultSvc ports.VaultService
}

// NewVaultHandler creates a new VaultHandler.
func NewVaultHandler(vaultSvc ports.VaultService) *VaultHandler {
	return &VaultHandler{vaultSvc: vaultSvc}
}

// callerID extracts the authenticated account ID set by the JWT middleware.
func callerID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxAccountID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// Deposit handles POST /api/v1/vault/deposit.
func (h *VaultHandler) Deposit(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	movement, err := h.vaultSvc.Deposit(c.Request.Context(), ports.MovementRequest{
		AccountID: accountID,
		Amount:    req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toMovementResponse(movement))
}

// Withdraw handles POST /api/v1/vault/withdraw.
func (h *VaultHandler) Withdraw(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	movement, err := h.vaultSvc.Withdraw(c.Request.Context(), ports.MovementRequest{
		AccountID: accountID,
		Amount:    req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toMovementResponse(movement))
}

// GetBalance handles GET /api/v1/vault/balance.
func (h *VaultHandler) GetBalance(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	balance, err := h.vaultSvc.BalanceOf(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		AccountID: accountID.String(),
		Balance:   balance,
	})
}

// GetSummary handles GET /api/v1/vault/summary.
func (h *VaultHandler) GetSummary(c *gin.Context) {
	summary, err := h.vaultSvc.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.SummaryResponse{
		BankCap:         summary.BankCap,
		WithdrawalLimit: summary.WithdrawalLimit,
		TotalBalance:    summary.TotalBalance,
		DepositCount:    summary.DepositCount,
		WithdrawalCount: summary.WithdrawalCount,
	})
}

// ListMovements handles GET /api/v1/vault/movements.
func (h *VaultHandler) ListMovements(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	params := ports.MovementListParams{
		AccountID: accountID,
		Page:      page,
		PageSize:  pageSize,
	}
	if typeStr := c.Query("type"); typeStr != "" {
		mt := domain.MovementType(typeStr)
		if mt != domain.MovementTypeDeposit && mt != domain.MovementTypeWithdrawal {
			response.Error(c, apperror.Validation("type must be DEPOSIT or WITHDRAWAL"))
			return
		}
		params.Type = &mt
	}

	movements, total, err := h.vaultSvc.ListMovements(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.MovementResponse, 0, len(movements))
	for i := range movements {
		items = append(items, toMovementResponse(&movements[i]))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	response.OK(c, dto.MovementListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

func toMovementResponse(m *domain.Movement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:           m.ID.String(),
		MovementType: string(m.MovementType),
		Amount:       m.Amount,
		BalanceAfter: m.BalanceAfter,
		CreatedAt:    m.CreatedAt.Format(time.RFC3339),
	}
}
