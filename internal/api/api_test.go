package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gaslink/backend-go/internal/config"
	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/inventory"
	"github.com/gaslink/backend-go/internal/jobs"
	"github.com/gaslink/backend-go/internal/repository/memory"
	"github.com/gaslink/backend-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	store  *memory.Store
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.NewStore()
	store.AddDistributor(domain.Distributor{ID: 1, Name: "Sri Ganesh Gas", Code: "SGG", Active: true})
	store.AddCylinderType(domain.CylinderType{ID: 10, DistributorID: 1, Code: "DOM14", Active: true})

	engine := service.NewEngine(store, nil, nil, config.InventoryConfig{}, "backups")
	router := NewRouter(&Services{
		Engine:   engine,
		Tracker:  jobs.NewTracker(store),
		Location: time.UTC,
	}, []string{"*"})

	return &testServer{store: store, router: router}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestPopulateThenListSummaries(t *testing.T) {
	// GIVEN a delivered order on June 2
	srv := newTestServer(t)
	srv.store.AddOrder(domain.Order{
		DistributorID: 1,
		DeliveryDate:  time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		Status:        domain.OrderStatusDelivered,
		Items:         []domain.OrderItem{{CylinderTypeID: 10, Quantity: 3, EmptiesCollected: 2}},
	})

	// WHEN June 2 is populated over the API
	rec := srv.do(t, http.MethodPost, "/api/v1/distributors/1/inventory/populate?date=2024-06-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	// THEN the row is listed for that window
	rec = srv.do(t, http.MethodGet, "/api/v1/distributors/1/inventory/summaries?from=2024-06-01&to=2024-06-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Summaries []domain.DailyInventorySummary `json:"summaries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Summaries, 1)
	assert.Equal(t, 3, resp.Summaries[0].DeliveredQty)
	assert.Equal(t, 2, resp.Summaries[0].ClosingEmpties)
}

func TestBadParameters(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"bad date", http.MethodPost, "/api/v1/distributors/1/inventory/populate?date=02-06-2024", http.StatusBadRequest},
		{"bad distributor", http.MethodGet, "/api/v1/distributors/abc/inventory/summaries", http.StatusBadRequest},
		{"reversed window", http.MethodGet, "/api/v1/distributors/1/inventory/summaries?from=2024-06-05&to=2024-06-01", http.StatusBadRequest},
		{"negative lookback", http.MethodGet, "/api/v1/distributors/1/inventory/gaps?lookback_days=-1", http.StatusBadRequest},
		{"non-numeric lookback", http.MethodPost, "/api/v1/distributors/1/inventory/recover?lookback_days=ten", http.StatusBadRequest},
		{"rebuild without confirm", http.MethodPost, "/api/v1/distributors/1/inventory/rebuild", http.StatusConflict},
		{"unknown job", http.MethodPost, "/api/v1/jobs/nope/run", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, tt.method, tt.path, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestGaps_ExplicitWindow(t *testing.T) {
	srv := newTestServer(t)
	srv.store.PutSummary(domain.DailyInventorySummary{
		SummaryDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), CylinderTypeID: 10, DistributorID: 1,
		Status: domain.SummaryStatusCalculated,
	})

	rec := srv.do(t, http.MethodGet, "/api/v1/distributors/1/inventory/gaps?from=2024-06-01&to=2024-06-04", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.GapReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, []string{"2024-06-02", "2024-06-03", "2024-06-04"}, report.MissingDates)
}

func TestRecordUnaccounted(t *testing.T) {
	srv := newTestServer(t)
	path := "/api/v1/distributors/1/inventory/unaccounted"

	// GIVEN a valid entry for a day without a row yet
	rec := srv.do(t, http.MethodPost, path, gin.H{
		"cylinder_type_id":  10,
		"date":              "2024-06-02",
		"kind":              "customer",
		"quantity":          2,
		"reason":            "customer kept cylinders",
		"responsible_party": "Ravi",
		"responsible_role":  "driver",
	})

	// THEN the row is populated and the entry recorded
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	row, err := srv.store.GetSummary(context.Background(), 1, 10, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 2, row.CustomerUnaccounted)

	// AND invalid roles, unknown types and missing fields are rejected
	rec = srv.do(t, http.MethodPost, path, gin.H{
		"cylinder_type_id": 10, "date": "2024-06-02", "kind": "customer",
		"quantity": 1, "reason": "x", "responsible_role": "manager",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, path, gin.H{
		"cylinder_type_id": 99, "date": "2024-06-02", "kind": "inventory",
		"quantity": 1, "reason": "leak", "responsible_role": "inventory_staff",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPost, path, gin.H{"date": "2024-06-02"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContinuityAndReconcile(t *testing.T) {
	// GIVEN June 2 opening does not match June 1 closing
	srv := newTestServer(t)
	srv.store.PutSummary(domain.DailyInventorySummary{
		SummaryDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), CylinderTypeID: 10, DistributorID: 1,
		OpeningFulls: 20, ClosingFulls: 20, Status: domain.SummaryStatusCalculated,
	})
	srv.store.PutSummary(domain.DailyInventorySummary{
		SummaryDate: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), CylinderTypeID: 10, DistributorID: 1,
		OpeningFulls: 5, ClosingFulls: 5, Status: domain.SummaryStatusCalculated,
	})

	rec := srv.do(t, http.MethodGet, "/api/v1/distributors/1/inventory/continuity?from=2024-06-01&to=2024-06-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"consistent":false`)

	// WHEN reconciled
	rec = srv.do(t, http.MethodPost, "/api/v1/distributors/1/inventory/reconcile?from=2024-06-01&to=2024-06-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN the chain is consistent again
	rec = srv.do(t, http.MethodGet, "/api/v1/distributors/1/inventory/continuity?from=2024-06-01&to=2024-06-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"consistent":true`)
}

func TestLowStockCheckAndJobRuns(t *testing.T) {
	srv := newTestServer(t)
	today := inventory.Today(time.UTC)
	srv.store.PutSummary(domain.DailyInventorySummary{
		SummaryDate: today.AddDate(0, 0, -1), CylinderTypeID: 10, DistributorID: 1,
		ClosingFulls: 4, Status: domain.SummaryStatusCalculated,
	})

	rec := srv.do(t, http.MethodPost, "/api/v1/distributors/1/inventory/low-stock/check", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res domain.LowStockResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Created, 1)
	assert.Equal(t, 6, res.Created[0].RequestedQty)

	rec = srv.do(t, http.MethodGet, "/api/v1/jobs/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"runs"`)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"https://a.example, https://b.example", " "})
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, origins)
	assert.False(t, all)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}
