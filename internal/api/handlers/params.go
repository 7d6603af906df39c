package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/inventory"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func distributorID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid distributor id"})
		return 0, false
	}
	return id, true
}

// dateQuery reads a YYYY-MM-DD query parameter, falling back to def.
func dateQuery(c *gin.Context, name string, def time.Time) (time.Time, error) {
	value := strings.TrimSpace(c.Query(name))
	if value == "" {
		return def, nil
	}
	return inventory.ParseDate(value)
}

// dateWindow reads from/to, defaulting to the days ending today.
func dateWindow(c *gin.Context, today time.Time, days int) (time.Time, time.Time, error) {
	to, err := dateQuery(c, "to", today)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	from, err := dateQuery(c, "from", to.AddDate(0, 0, -days))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	value := strings.TrimSpace(c.Query(name))
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, domain.ErrInvalidInput)
	}
	return n, nil
}

// respondError maps domain sentinels to HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConfirmationRequired):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
