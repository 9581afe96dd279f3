package controllers_test

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shashiranjanraj/kashvi-shop/app/events"
	"github.com/shashiranjanraj/kashvi-shop/app/listeners"
	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/app/routes"
	"github.com/shashiranjanraj/kashvi-shop/database/dbtest"
	"github.com/shashiranjanraj/kashvi-shop/pkg/event"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
	"github.com/shashiranjanraj/kashvi-shop/pkg/router"
	"github.com/shashiranjanraj/kashvi-shop/pkg/sse"
	"github.com/shashiranjanraj/kashvi-shop/pkg/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminStreamSeesPlacedOrders(t *testing.T) {
	db := orm.New(dbtest.Open(t))
	feed := sse.NewBroker()
	d := event.New(nil)
	d.Listen(events.OrderPlaced, listeners.Publish(feed, events.OrderPlaced))

	r := router.New()
	routes.RegisterAPI(r, routes.Deps{DB: db, Events: d, Hub: ws.NewHub(), Feed: feed})
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	a := &api{t: t, db: db, handler: r.Handler()}
	_, admin := a.user(models.RoleAdmin)
	_, shopper := a.user(models.RoleUser)
	lamp := a.product("Lamp", 1999, 3)

	rec, _ := a.do(http.MethodGet, "/api/orders/stream", shopper, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/orders/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Eventually(t, func() bool { return feed.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec, _ = a.do(http.MethodPost, "/api/cart", shopper, fmt.Sprintf(`{"productId":%d,"quantity":2}`, lamp.ID))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = a.do(http.MethodPost, "/api/orders", shopper, "")
	require.Equal(t, http.StatusOK, rec.Code)

	lines := bufio.NewScanner(resp.Body)
	var got []string
	for lines.Scan() {
		if lines.Text() == "" {
			break
		}
		got = append(got, lines.Text())
	}
	require.Len(t, got, 2)
	assert.Equal(t, "event: order.placed", got[0])
	assert.True(t, strings.HasPrefix(got[1], "data: {"), got[1])
	assert.Contains(t, got[1], `"total":3998`)
}
