package order

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/orderflow/internal/event"
	"github.com/drblury/orderflow/internal/jsoncodec"
)

func newTestServer(t *testing.T) (*httptest.Server, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	svc := newTestService(newFakeStore(), pub, &fakeRates{rate: 0.9})
	srv := httptest.NewServer(NewRouter(svc, slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(srv.Close)
	return srv, pub
}

func postOrder(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/orders", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestCreateOrderEndpoint(t *testing.T) {
	srv, pub := newTestServer(t)

	resp := postOrder(t, srv, `{"user":"Alice","product":"Pizza","price":42}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var o Order
	require.NoError(t, jsoncodec.Decode(resp.Body, &o))
	assert.EqualValues(t, 1, o.ID)
	assert.Equal(t, "Alice", o.UserName)

	require.Len(t, pub.published, 1)
	assert.Equal(t, event.ActionCreate, pub.published[0].Action)
}

func TestCreateOrderAcceptsUserNameKey(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postOrder(t, srv, `{"user_name":"Bob","product":"Sushi","price":18}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var o Order
	require.NoError(t, jsoncodec.Decode(resp.Body, &o))
	assert.Equal(t, "Bob", o.UserName)
}

func TestCreateOrderValidation(t *testing.T) {
	srv, pub := newTestServer(t)

	for _, body := range []string{
		`{"product":"Pizza","price":42}`,
		`{"user":"Alice","price":42}`,
		`{"user":"Alice","product":"Pizza"}`,
		`not json`,
	} {
		resp := postOrder(t, srv, body)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %s", body)
	}
	assert.Empty(t, pub.published)
}

func TestListAndGetOrders(t *testing.T) {
	srv, _ := newTestServer(t)

	postOrder(t, srv, `{"user":"Alice","product":"Pizza","price":42}`).Body.Close()
	postOrder(t, srv, `{"user":"Bob","product":"Sushi","price":18}`).Body.Close()

	resp, err := http.Get(srv.URL + "/orders")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var orders []Order
	require.NoError(t, jsoncodec.Decode(resp.Body, &orders))
	require.Len(t, orders, 2)

	one, err := http.Get(srv.URL + "/orders/1")
	require.NoError(t, err)
	defer one.Body.Close()
	require.Equal(t, http.StatusOK, one.StatusCode)

	var o Order
	require.NoError(t, jsoncodec.Decode(one.Body, &o))
	assert.Equal(t, "Alice", o.UserName)
}

func TestGetOrderNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/orders/99")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	bad, err := http.Get(srv.URL + "/orders/abc")
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestUpdateOrderEndpoint(t *testing.T) {
	srv, pub := newTestServer(t)

	postOrder(t, srv, `{"user":"Alice","product":"Pizza","price":42}`).Body.Close()

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/orders/1", strings.NewReader(`{"user":"Alice","product":"Calzone","price":45}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, pub.published, 2)
	assert.Equal(t, event.ActionUpdate, pub.published[1].Action)
}

func TestDeleteOrderEndpoint(t *testing.T) {
	srv, pub := newTestServer(t)

	postOrder(t, srv, `{"user":"Alice","product":"Pizza","price":42}`).Body.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/orders/1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, pub.published, 2)
	assert.Equal(t, event.ActionDelete, pub.published[1].Action)
	assert.EqualValues(t, 1, pub.published[1].OrderID)

	gone, err := http.Get(srv.URL + "/orders/1")
	require.NoError(t, err)
	defer gone.Body.Close()
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/orders", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
