// Package handlers converts HTTP requests into use-case calls. No business
// logic lives here; the handlers validate shape, call the application layer,
// and map errors to status codes.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/velopay/walletd/internal/adapters/http/common"
	"github.com/velopay/walletd/internal/application/commands"
	"github.com/velopay/walletd/internal/application/queries"
	"github.com/velopay/walletd/internal/application/usecases"
	"github.com/velopay/walletd/internal/domain/entities"
	"github.com/velopay/walletd/internal/domain/valueobjects"
)

// WalletHandler serves the wallet API surface.
type WalletHandler struct {
	service      *usecases.WalletService
	getWallet    *queries.GetWalletHandler
	balance      *queries.HistoricalBalanceHandler
	transactions *queries.ListTransactionsHandler
	readDeadline time.Duration
	logger       *slog.Logger
}

// NewWalletHandler wires the handler. readDeadline bounds query requests.
func NewWalletHandler(
	service *usecases.WalletService,
	getWallet *queries.GetWalletHandler,
	balance *queries.HistoricalBalanceHandler,
	transactions *queries.ListTransactionsHandler,
	readDeadline time.Duration,
	logger *slog.Logger,
) *WalletHandler {
	if readDeadline <= 0 {
		readDeadline = 500 * time.Millisecond
	}
	return &WalletHandler{
		service:      service,
		getWallet:    getWallet,
		balance:      balance,
		transactions: transactions,
		readDeadline: readDeadline,
		logger:       logger,
	}
}

// ===== Request / Response DTOs =====

type createWalletRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

type operationRequest struct {
	Amount      string `json:"amount" binding:"required,money"`
	ReferenceID string `json:"reference_id" binding:"required,max=128"`
	Description string `json:"description" binding:"max=512"`
}

type transferRequest struct {
	DestinationWalletID string `json:"destination_wallet_id" binding:"required,uuid"`
	Amount              string `json:"amount" binding:"required,money"`
	ReferenceID         string `json:"reference_id" binding:"required,max=128"`
	Description         string `json:"description" binding:"max=512"`
}

type walletResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Balance   string    `json:"balance"`
	Status    string    `json:"status"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type transactionResponse struct {
	ID                  string    `json:"id"`
	WalletID            string    `json:"wallet_id"`
	DestinationWalletID *string   `json:"destination_wallet_id,omitempty"`
	Type                string    `json:"type"`
	Amount              string    `json:"amount"`
	ReferenceID         string    `json:"reference_id"`
	Status              string    `json:"status"`
	Description         string    `json:"description,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

type balanceResponse struct {
	WalletID string    `json:"wallet_id"`
	Balance  string    `json:"balance"`
	At       time.Time `json:"at"`
}

func toWalletResponse(w *entities.Wallet) walletResponse {
	return walletResponse{
		ID:        w.ID().String(),
		UserID:    w.UserID().String(),
		Balance:   w.Balance().String(),
		Status:    string(w.Status()),
		Version:   w.Version(),
		CreatedAt: w.CreatedAt(),
		UpdatedAt: w.UpdatedAt(),
	}
}

func toTransactionResponse(tx *entities.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          tx.ID().String(),
		WalletID:    tx.WalletID().String(),
		Type:        string(tx.Type()),
		Amount:      tx.Amount().String(),
		ReferenceID: tx.ReferenceID(),
		Status:      string(tx.Status()),
		Description: tx.Description(),
		CreatedAt:   tx.CreatedAt(),
	}
	if dest := tx.DestinationWalletID(); dest != nil {
		s := dest.String()
		resp.DestinationWalletID = &s
	}
	return resp
}

// ===== Command endpoints =====

// Create handles POST /wallets.
func (h *WalletHandler) Create(c *gin.Context) {
	var req createWalletRequest
	if !h.bind(c, &req) {
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		common.BadRequestResponse(c, "user_id must be a UUID")
		return
	}

	wallet, err := h.service.CreateWallet(c.Request.Context(), commands.CreateWalletCommand{UserID: userID})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Location", "/wallets/"+wallet.ID().String())
	common.Success(c, http.StatusCreated, toWalletResponse(wallet))
}

// Deposit handles POST /wallets/:id/deposit.
func (h *WalletHandler) Deposit(c *gin.Context) {
	walletID, ok := h.walletID(c)
	if !ok {
		return
	}
	var req operationRequest
	if !h.bind(c, &req) {
		return
	}
	amount, ok := h.amount(c, req.Amount)
	if !ok {
		return
	}

	tx, err := h.service.Deposit(c.Request.Context(), commands.DepositCommand{
		WalletID:    walletID,
		Amount:      amount,
		ReferenceID: req.ReferenceID,
		Description: req.Description,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	common.Success(c, http.StatusOK, toTransactionResponse(tx))
}

// Withdraw handles POST /wallets/:id/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	walletID, ok := h.walletID(c)
	if !ok {
		return
	}
	var req operationRequest
	if !h.bind(c, &req) {
		return
	}
	amount, ok := h.amount(c, req.Amount)
	if !ok {
		return
	}

	tx, err := h.service.Withdraw(c.Request.Context(), commands.WithdrawCommand{
		WalletID:    walletID,
		Amount:      amount,
		ReferenceID: req.ReferenceID,
		Description: req.Description,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	common.Success(c, http.StatusOK, toTransactionResponse(tx))
}

// Transfer handles POST /wallets/:id/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	walletID, ok := h.walletID(c)
	if !ok {
		return
	}
	var req transferRequest
	if !h.bind(c, &req) {
		return
	}
	destinationID, err := uuid.Parse(req.DestinationWalletID)
	if err != nil {
		common.BadRequestResponse(c, "destination_wallet_id must be a UUID")
		return
	}
	amount, ok := h.amount(c, req.Amount)
	if !ok {
		return
	}

	tx, err := h.service.Transfer(c.Request.Context(), commands.TransferCommand{
		SourceWalletID:      walletID,
		DestinationWalletID: destinationID,
		Amount:              amount,
		ReferenceID:         req.ReferenceID,
		Description:         req.Description,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	common.Success(c, http.StatusOK, toTransactionResponse(tx))
}

// ===== Admin endpoints =====

// Freeze handles POST /admin/wallets/:id/freeze.
func (h *WalletHandler) Freeze(c *gin.Context) {
	h.changeStatus(c, h.service.Freeze)
}

// Unfreeze handles POST /admin/wallets/:id/unfreeze.
func (h *WalletHandler) Unfreeze(c *gin.Context) {
	h.changeStatus(c, h.service.Unfreeze)
}

// Close handles POST /admin/wallets/:id/close.
func (h *WalletHandler) Close(c *gin.Context) {
	h.changeStatus(c, h.service.Close)
}

func (h *WalletHandler) changeStatus(
	c *gin.Context,
	op func(context.Context, commands.ChangeStatusCommand) (*entities.Wallet, error),
) {
	walletID, ok := h.walletID(c)
	if !ok {
		return
	}

	wallet, err := op(c.Request.Context(), commands.ChangeStatusCommand{WalletID: walletID})
	if err != nil {
		h.fail(c, err)
		return
	}
	common.Success(c, http.StatusOK, toWalletResponse(wallet))
}

// ===== Query endpoints =====

// Get handles GET /wallets/:id.
func (h *WalletHandler) Get(c *gin.Context) {
	walletID, ok := h.walletID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.readDeadline)
	defer cancel()

	snap, err := h.getWallet.Execute(ctx, walletID)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.Success(c, http.StatusOK, walletResponse{
		ID:        snap.ID.String(),
		UserID:    snap.UserID.String(),
		Balance:   snap.Balance,
		Status:    snap.Status,
		Version:   snap.Version,
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.UpdatedAt,
	})
}

// Balance handles GET /wallets/:id/balance?at=RFC3339.
func (h *WalletHandler) Balance(c *gin.Context) {
	walletID, ok := h.walletID(c)
	if !ok {
		return
	}

	at := c.Query("at")
	if at == "" {
		common.BadRequestResponse(c, "query parameter 'at' is required")
		return
	}
	asOf, err := time.Parse(time.RFC3339, at)
	if err != nil {
		common.BadRequestResponse(c, "'at' must be an RFC3339 timestamp")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.readDeadline)
	defer cancel()

	balance, err := h.balance.Execute(ctx, walletID, asOf)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.Success(c, http.StatusOK, balanceResponse{
		WalletID: walletID.String(),
		Balance:  balance.String(),
		At:       asOf,
	})
}

// Transactions handles GET /wallets/:id/transactions?limit&offset.
func (h *WalletHandler) Transactions(c *gin.Context) {
	walletID, ok := h.walletID(c)
	if !ok {
		return
	}

	var params struct {
		Limit  int `form:"limit" binding:"omitempty,min=1"`
		Offset int `form:"offset" binding:"omitempty,min=0"`
	}
	if err := c.ShouldBindQuery(&params); err != nil {
		HandleValidationErrors(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.readDeadline)
	defer cancel()

	txs, err := h.transactions.Execute(ctx, walletID, params.Offset, params.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		resp = append(resp, toTransactionResponse(tx))
	}
	common.Success(c, http.StatusOK, resp)
}

// ===== Helpers =====

func (h *WalletHandler) walletID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.BadRequestResponse(c, "wallet id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *WalletHandler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		HandleValidationErrors(c, err)
		return false
	}
	return true
}

func (h *WalletHandler) amount(c *gin.Context, raw string) (valueobjects.Amount, bool) {
	amount, err := valueobjects.ParseOperationAmount(raw)
	if err != nil {
		common.ValidationErrorResponse(c, []common.FieldError{
			{Field: "amount", Message: err.Error()},
		})
		return valueobjects.Amount{}, false
	}
	return amount, true
}

func (h *WalletHandler) fail(c *gin.Context, err error) {
	if errorID := common.HandleDomainError(c, err); errorID != "" {
		h.logger.Error("internal error",
			slog.String("error_id", errorID),
			slog.String("request_id", common.GetRequestID(c)),
			slog.String("error", err.Error()),
		)
	}
}
