package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/inventory"
	"github.com/gaslink/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

const defaultWindowDays = 30

type InventoryHandler struct {
	engine   *service.Engine
	location *time.Location
}

func NewInventoryHandler(engine *service.Engine, location *time.Location) *InventoryHandler {
	if location == nil {
		location = time.UTC
	}
	return &InventoryHandler{engine: engine, location: location}
}

func (h *InventoryHandler) today() time.Time {
	return inventory.Today(h.location)
}

// GetSummaries returns summary rows for ?from=&to= (default: last 30 days).
func (h *InventoryHandler) GetSummaries(c *gin.Context) {
	id, ok := distributorID(c)
	if !ok {
		return
	}
	from, to, err := dateWindow(c, h.today(), defaultWindowDays)
	if err != nil {
		respondError(c, err)
		return
	}

	rows, err := h.engine.Summaries.List(c.Request.Context(), id, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from":      inventory.FormatDate(from),
		"to":        inventory.FormatDate(to),
		"summaries": rows,
	})
}

// Populate derives the rows for ?date= (default today).
func (h *InventoryHandler) Populate(c *gin.Context) {
	id, ok := distributorID(c)
	if !ok {
		return
	}
	date, err := dateQuery(c, "date", h.today())
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.engine.Population.Populate(c.Request.Context(), id, date)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusMultiStatus
	}
	c.JSON(status, res)
}

// GetGaps reports missing dates for ?from=&to= or ?lookback_days=.
func (h *InventoryHandler) GetGaps(c *gin.Context) {
	id, ok := distributorID(c)
	if !ok {
		return
	}

	var report *domain.GapReport
	if c.Query("from") != "" || c.Query("to") != "" {
		from, to, err := dateWindow(c, h.today(), defaultWindowDays)
		if err != nil {
			respondError(c, err)
			return
		}
		report, err = h.engine.Gaps.DetectInRange(c.Request.Context(), id, from, to)
		if err != nil {
			respondError(c, err)
			return
		}
	} else {
		lookback, err := intQuery(c, "lookback_days", 0)
		if err != nil {
			respondError(c, err)
			return
		}
		report, err = h.engine.Gaps.Detect(c.Request.Context(), id, lookback)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, report)
}

// Recover backfills gaps in ?from=&to= or the lookback window.
func (h *InventoryHandler) Recover(c *gin.Context) {
	id, ok := distributorID(c)
	if !ok {
		return
	}

	var (
		res *domain.RecoveryResult
		err error
	)
	if c.Query("from") != "" || c.Query("to") != "" {
		var from, to time.Time
		if from, to, err = dateWindow(c, h.today(), defaultWindowDays); err != nil {
			respondError(c, err)
			return
		}
		res, err = h.engine.Gaps.Recover(c.Request.Context(), id, from, to)
	} else {
		var lookback int
		if lookback, err = intQuery(c, "lookback_days", 0); err != nil {
			respondError(c, err)
			return
		}
		res, err = h.engine.Gaps.RecoverLookback(c.Request.Context(), id, lookback)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// Rebuild wipes and rebuilds the history. Requires ?confirm=true.
func (h *InventoryHandler) Rebuild(c *gin.Context) {
	id, ok := distributorID(c)
	if !ok {
		return
	}

	confirm, _ := strconv.ParseBool(c.Query("confirm"))
	opts := service.RebuildOptions{Confirm: confirm}
	if c.Query("until") != "" {
		until, err := dateQuery(c, "until", h.today())
		if err != nil {
			respondError(c, err)
			return
		}
		opts.Until = &until
	}

	res, err := h.engine.Rebuild.Rebuild(c.Request.Context(), id, opts)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *InventoryHandler) CheckContinuity(c *gin.Context) {
	id, ok := distributorID(c)
	if !ok {
		return
	}
	from, to, err := dateWindow(c, h.today(), defaultWindowDays)
	if err != nil {
		respondError(c, err)
		return
	}

	report, err := h.engine.Continuity.Check(c.Request.Context(), id, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report":     report,
		"consistent": report.Consistent(),
	})
}

func (h *InventoryHandler) Reconcile(c *gin.Context) {
	id, ok := distributorID(c)
	if !ok {
		return
	}
	from, to, err := dateWindow(c, h.today(), defaultWindowDays)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.engine.Continuity.Reconcile(c.Request.Context(), id, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// CheckLowStock runs the monitor for ?date= (default today), which reads the
// previous day's closing.
func (h *InventoryHandler) CheckLowStock(c *gin.Context) {
	id, ok := distributorID(c)
	if !ok {
		return
	}
	date, err := dateQuery(c, "date", h.today())
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.engine.LowStock.Check(c.Request.Context(), id, date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

type unaccountedRequest struct {
	CylinderTypeID   int64  `json:"cylinder_type_id" binding:"required"`
	Date             string `json:"date" binding:"required"`
	Kind             string `json:"kind" binding:"required"`
	Quantity         int    `json:"quantity"`
	Reason           string `json:"reason"`
	ResponsibleParty string `json:"responsible_party"`
	ResponsibleRole  string `json:"responsible_role"`
}

func (h *InventoryHandler) RecordUnaccounted(c *gin.Context) {
	id, ok := distributorID(c)
	if !ok {
		return
	}

	var req unaccountedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	date, err := inventory.ParseDate(req.Date)
	if err != nil {
		respondError(c, err)
		return
	}

	entry, err := h.engine.Unaccounted.Record(c.Request.Context(), &domain.UnaccountedEntry{
		DistributorID:    id,
		CylinderTypeID:   req.CylinderTypeID,
		EntryDate:        date,
		Kind:             domain.UnaccountedKind(req.Kind),
		Quantity:         req.Quantity,
		Reason:           req.Reason,
		ResponsibleParty: req.ResponsibleParty,
		ResponsibleRole:  domain.ResponsibleRole(req.ResponsibleRole),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}
