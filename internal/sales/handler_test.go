package sales

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo *memoryRepo) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, NewService(repo, ServiceConfig{}))
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func TestHandleCommitRejectsUnknownStatus(t *testing.T) {
	router := newTestRouter(seedRepo())

	body := `{"items":[{"productId":12,"productName":"Candy","price":5,"quantity":2}],
"total":10,"status":7,"paymentType":"Cash","paymentInfo":{"tendered":10}}`
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "status")
}

func TestHandleCommitAcceptsHeldAndPaid(t *testing.T) {
	for _, status := range []string{"0", "1"} {
		repo := seedRepo()
		router := newTestRouter(repo)

		body := `{"items":[{"productId":12,"productName":"Candy","price":5,"quantity":2}],
"total":10,"status":` + status + `,"paymentType":"Cash","paymentInfo":{"tendered":10},"paidAmount":10}`
		req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, "status %s", status)
		require.Len(t, repo.state.transactions, 1)
	}
}
