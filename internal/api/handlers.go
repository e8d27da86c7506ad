package api

import (
	"errors"
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ShareFlow/internal/editor"
	"ShareFlow/internal/flowrate"
	"ShareFlow/internal/model"
	"ShareFlow/internal/project"
	"ShareFlow/internal/store"
)

type Handler struct {
	svc *project.Service
}

func NewHandler(svc *project.Service) *Handler {
	return &Handler{svc: svc}
}

// Register attaches project routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
	rg.GET("/:id/draft", h.draft)
	rg.POST("/:id/roles", h.addRole)
	rg.PUT("/:id/roles/:roleID/percent", h.setPercent)
	rg.PUT("/:id/roles/:roleID/name", h.rename)
	rg.PUT("/:id/roles/:roleID/wallet", h.setWallet)
	rg.DELETE("/:id/roles/:roleID", h.removeRole)
	rg.POST("/:id/undo", h.undo)
	rg.POST("/:id/redo", h.redo)
	rg.POST("/:id/save", h.save)
	rg.POST("/:id/discard", h.discard)
	rg.PUT("/:id/expenses", h.setExpenses)
	rg.POST("/:id/funding", h.recordFunding)
	rg.GET("/:id/funding", h.fundingHistory)
	rg.PUT("/:id/target", h.setTarget)
	rg.GET("/:id/dashboard", h.dashboard)
	rg.POST("/:id/streams", h.launchStreams)
}

// statusOf maps service errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, editor.ErrUnknownRole):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, project.ErrInvalidAllocation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, project.ErrStreamProtocol):
		return http.StatusBadGateway
	case errors.Is(err, project.ErrInvalidInput),
		errors.Is(err, editor.ErrEmptyName),
		errors.Is(err, editor.ErrDuplicateRole),
		errors.Is(err, editor.ErrLastRole),
		errors.Is(err, flowrate.ErrNegativeAmount),
		errors.Is(err, flowrate.ErrPercentOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusOf(err), gin.H{"ok": false, "error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msg})
}

// parseMoney reads a non-negative decimal string such as "125.50".
func parseMoney(s string) (float64, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0, false
	}
	return d.InexactFloat64(), true
}

type createReq struct {
	Name          string              `json:"name"`
	Template      string              `json:"template"`
	Roles         []project.RoleInput `json:"roles"`
	FundingTarget string              `json:"funding_target"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	var target float64
	if req.FundingTarget != "" {
		v, ok := parseMoney(req.FundingTarget)
		if !ok {
			badRequest(c, "funding_target must be a non-negative decimal string")
			return
		}
		target = v
	}

	p, err := h.svc.Create(c.Request.Context(), project.CreateParams{
		Name:          req.Name,
		Template:      req.Template,
		Roles:         req.Roles,
		FundingTarget: target,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p})
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": items})
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) respondDraft(c *gin.Context, view project.AllocationView, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "draft": view})
}

func (h *Handler) draft(c *gin.Context) {
	view, err := h.svc.Draft(c.Request.Context(), c.Param("id"))
	h.respondDraft(c, view, err)
}

type percentReq struct {
	Percent *float64 `json:"percent"`
}

func (h *Handler) setPercent(c *gin.Context) {
	var req percentReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Percent == nil {
		badRequest(c, "percent is required")
		return
	}
	view, err := h.svc.EditPercent(c.Request.Context(), c.Param("id"), c.Param("roleID"), *req.Percent)
	h.respondDraft(c, view, err)
}

type addRoleReq struct {
	Name    string  `json:"name"`
	Percent float64 `json:"percent"`
}

func (h *Handler) addRole(c *gin.Context) {
	var req addRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	roleID, view, err := h.svc.AddRole(c.Request.Context(), c.Param("id"), req.Name, req.Percent)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "role_id": roleID, "draft": view})
}

func (h *Handler) removeRole(c *gin.Context) {
	view, err := h.svc.RemoveRole(c.Request.Context(), c.Param("id"), c.Param("roleID"))
	h.respondDraft(c, view, err)
}

type nameReq struct {
	Name string `json:"name"`
}

func (h *Handler) rename(c *gin.Context) {
	var req nameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	view, err := h.svc.RenameRole(c.Request.Context(), c.Param("id"), c.Param("roleID"), req.Name)
	h.respondDraft(c, view, err)
}

type walletReq struct {
	WalletAddress string `json:"wallet_address"`
}

func (h *Handler) setWallet(c *gin.Context) {
	var req walletReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	p, err := h.svc.SetWallet(c.Request.Context(), c.Param("id"), c.Param("roleID"), req.WalletAddress)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) undo(c *gin.Context) {
	view, err := h.svc.Undo(c.Request.Context(), c.Param("id"))
	h.respondDraft(c, view, err)
}

func (h *Handler) redo(c *gin.Context) {
	view, err := h.svc.Redo(c.Request.Context(), c.Param("id"))
	h.respondDraft(c, view, err)
}

func (h *Handler) save(c *gin.Context) {
	p, err := h.svc.Save(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) discard(c *gin.Context) {
	h.svc.Discard(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) setExpenses(c *gin.Context) {
	var req struct {
		Expenses []model.Expense `json:"expenses"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	p, err := h.svc.SetExpenses(c.Request.Context(), c.Param("id"), req.Expenses)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

type amountReq struct {
	Amount string `json:"amount"`
}

func (h *Handler) recordFunding(c *gin.Context) {
	var req amountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	amount, ok := parseMoney(req.Amount)
	if !ok {
		badRequest(c, "amount must be a non-negative decimal string")
		return
	}
	prog, err := h.svc.RecordFunding(c.Request.Context(), c.Param("id"), amount)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "progress": prog})
}

func (h *Handler) fundingHistory(c *gin.Context) {
	snaps, err := h.svc.FundingHistory(c.Request.Context(), c.Param("id"), 0)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "snapshots": snaps})
}

func (h *Handler) setTarget(c *gin.Context) {
	var req struct {
		FundingTarget string `json:"funding_target"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	target, ok := parseMoney(req.FundingTarget)
	if !ok {
		badRequest(c, "funding_target must be a non-negative decimal string")
		return
	}
	prog, err := h.svc.SetTarget(c.Request.Context(), c.Param("id"), target)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "progress": prog})
}

func (h *Handler) dashboard(c *gin.Context) {
	inflow := new(big.Int)
	if v := c.Query("inflow"); v != "" {
		n, err := flowrate.ParseAmount(v)
		if err != nil {
			badRequest(c, "inflow must be a non-negative integer in base units")
			return
		}
		inflow = n
	}
	d, err := h.svc.Dashboard(c.Request.Context(), c.Param("id"), inflow)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "dashboard": d})
}

func (h *Handler) launchStreams(c *gin.Context) {
	var req struct {
		TotalAmount string `json:"total_amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	total, err := flowrate.ParseAmount(req.TotalAmount)
	if err != nil {
		badRequest(c, "total_amount must be a non-negative integer in base units")
		return
	}

	// A protocol failure after some streams started still reports them.
	res, err := h.svc.LaunchStreams(c.Request.Context(), c.Param("id"), total)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"ok": false, "error": err.Error(), "result": res})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": res})
}
