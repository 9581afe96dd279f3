package app_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/app/routes"
	"github.com/shashiranjanraj/kashvi-shop/database/dbtest"
	"github.com/shashiranjanraj/kashvi-shop/pkg/app"
	"github.com/shashiranjanraj/kashvi-shop/pkg/auth"
	"github.com/shashiranjanraj/kashvi-shop/pkg/queue"
	"github.com/shashiranjanraj/kashvi-shop/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T) *app.App {
	t.Helper()
	db := dbtest.Open(t)
	disks := storage.NewManager("local")
	disks.Register("local", storage.NewLocalDisk(t.TempDir(), "http://files.test"))
	a := app.FromDB(db)
	a.Storage = disks
	return a
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	ok := app.NewRouter(routes.Deps{}, func(context.Context) error { return nil }).Handler()
	rec := get(t, ok, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	down := app.NewRouter(routes.Deps{}, func(context.Context) error { return errors.New("db gone") }).Handler()
	rec = get(t, down, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "db gone")
}

func TestHandlerServesAPIAndMetrics(t *testing.T) {
	a := newApp(t)
	h := a.Handler()

	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	token, err := auth.GenerateToken(1, models.RoleUser)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestWriteRoutes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, app.WriteRoutes(&buf))

	out := buf.String()
	assert.Contains(t, out, "METHOD")
	assert.Regexp(t, `POST\s+/api/orders\s+orders.store`, out)
	assert.Regexp(t, `PATCH\s+/api/orders/\{id\}/status`, out)
	assert.Contains(t, out, "/healthz")
}

func TestExportOrders(t *testing.T) {
	a := newApp(t)

	res, err := a.ExportOrders(context.Background(), time.Now().Add(-time.Hour), "")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Orders)
	assert.Contains(t, res.URL, "http://files.test/exports/orders-")

	_, err = a.ExportOrders(context.Background(), time.Now(), "s3")
	assert.Error(t, err, "unregistered disk")
}

func TestMakeAdmin(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()

	_, err := a.MakeAdmin(ctx, "root@example.com", "")
	assert.ErrorContains(t, err, "--password")

	u, err := a.MakeAdmin(ctx, "root@example.com", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	again, err := a.MakeAdmin(ctx, "ROOT@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
}

func TestSchedulerLists(t *testing.T) {
	a := newApp(t)
	s, err := a.Scheduler()
	require.NoError(t, err)
	assert.Len(t, s.List(), 2)
}

func TestFailedJobsListAndRetry(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	store := queue.NewDBFailedStore(a.DB)
	require.NoError(t, store.Record(ctx, queue.FailedJob{
		JobType: "orders.webhook", Payload: `{"delivery_id":"d-1"}`, Error: "status 503\nupstream body", Attempts: 3,
	}))

	var buf bytes.Buffer
	n, err := a.WriteFailedJobs(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Regexp(t, `1\s+orders.webhook\s+3\s+.*status 503`, buf.String())
	assert.NotContains(t, buf.String(), "upstream body")

	_, err = a.RetryFailed(ctx, 0)
	assert.ErrorContains(t, err, "QUEUE_DRIVER=redis")

	rdb, mock := redismock.NewClientMock()
	mock.ExpectLPush("shop:queue:jobs", []byte(`{"type":"orders.webhook","payload":{"delivery_id":"d-1"}}`)).SetVal(1)
	a.RedisQueue = queue.NewRedisDriver(rdb)
	a.Queue = queue.NewManager(a.RedisQueue)

	n, err = a.RetryFailed(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())

	n, err = a.WriteFailedJobs(ctx, &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
}
