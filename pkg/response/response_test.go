package response_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
	"github.com/shashiranjanraj/kashvi-shop/pkg/response"
	"github.com/stretchr/testify/assert"
)

func TestErrorDerivesCode(t *testing.T) {
	rec := httptest.NewRecorder()
	response.Error(rec, http.StatusTooManyRequests, "slow down")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":429,"error":"too_many_requests","message":"slow down"}`, rec.Body.String())
}

func TestPaginated(t *testing.T) {
	rec := httptest.NewRecorder()
	response.Paginated(rec, []string{"lamp"}, orm.Pagination{Page: 1, Limit: 20, Total: 1, TotalPages: 1})

	assert.JSONEq(t, `{"status":200,"data":{"items":["lamp"],"pagination":{"page":1,"limit":20,"total":1,"total_pages":1}}}`, rec.Body.String())
}

func TestCode(t *testing.T) {
	assert.Equal(t, "not_found", response.Code(http.StatusNotFound))
	assert.Equal(t, "internal_server_error", response.Code(http.StatusInternalServerError))
	assert.Equal(t, "error", response.Code(599))
}
