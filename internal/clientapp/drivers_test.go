package clientapp

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmjl/deliverydesk/internal/session"
)

func driversAPI(t *testing.T) *fakeAPI {
	api := newFakeAPI()
	api.handle("/drivers", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, []map[string]any{{
				"id":          1,
				"driverId":    7,
				"fullName":    "Ada Lovelace",
				"email":       "ada@example.com",
				"phoneNumber": "5550100",
			}})
		case http.MethodPost:
			body := decodeBody(t, r)
			assert.Equal(t, float64(2), body["userRole"])
			assert.Equal(t, float64(77), body["driverId"])
			assert.Equal(t, "Grace Hopper", body["fullName"])
			w.WriteHeader(http.StatusCreated)
		}
	})
	api.handle("/drivers/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drivers/7", r.URL.Path)
		if r.Method == http.MethodPut {
			body := decodeBody(t, r)
			assert.Equal(t, map[string]any{"userRole": float64(2), "fullName": "Ada King"}, body)
		}
	})
	return api
}

func driverForm(csrf string, overrides map[string]string) url.Values {
	form := url.Values{
		csrfFieldName: {csrf},
		"driverId":    {"7"},
		"fullName":    {"Ada Lovelace"},
		"phoneNumber": {"5550100"},
		"email":       {"ada@example.com"},
	}
	for k, v := range overrides {
		form.Set(k, v)
	}
	return form
}

func TestDriversListAndEditForm(t *testing.T) {
	app := newTestApp(t, driversAPI(t))
	cookie, _ := app.signIn(t, session.RoleAdmin, 0)

	rec := app.get("/drivers", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ada Lovelace")
	assert.Contains(t, rec.Body.String(), "/drivers?edit=7")

	rec = app.get("/drivers?edit=7", cookie)
	assert.Contains(t, rec.Body.String(), `action="/drivers/7/update"`)
	assert.Contains(t, rec.Body.String(), `value="ada@example.com"`)

	rec = app.get("/drivers?edit=404", cookie)
	assert.Contains(t, rec.Body.String(), "Driver not found.")
}

func TestCreateDriverValidatesFirst(t *testing.T) {
	api := driversAPI(t)
	app := newTestApp(t, api)
	cookie, sess := app.signIn(t, session.RoleAdmin, 0)

	rec := app.post("/drivers", driverForm(sess.CSRF, map[string]string{"driverId": "7a", "email": "nope"}), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Driver ID must contain digits only.")
	assert.Contains(t, body, "Invalid email format.")
	assert.Contains(t, body, "Password is required.")
	assert.Zero(t, api.count("POST /drivers"))

	rec = app.post("/drivers", driverForm(sess.CSRF, map[string]string{"password": "weakpass"}), cookie)
	assert.Contains(t, rec.Body.String(), "At least 8 chars, 1 number &amp; 1 special char.")
	assert.Zero(t, api.count("POST /drivers"))
}

func TestCreateDriver(t *testing.T) {
	api := driversAPI(t)
	app := newTestApp(t, api)
	cookie, sess := app.signIn(t, session.RoleAdmin, 0)

	rec := app.post("/drivers", driverForm(sess.CSRF, map[string]string{
		"driverId": "77", "fullName": "Grace Hopper", "password": "c0bol#1959",
	}), cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, q := redirectQuery(t, rec)
	assert.Equal(t, "Driver created.", q.Get("message"))
	assert.Equal(t, 1, api.count("POST /drivers"))
}

func TestUpdateDriverSendsOnlyChanges(t *testing.T) {
	api := driversAPI(t)
	app := newTestApp(t, api)
	cookie, sess := app.signIn(t, session.RoleAdmin, 0)

	rec := app.post("/drivers/7/update", driverForm(sess.CSRF, nil), cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, q := redirectQuery(t, rec)
	assert.Equal(t, "No changes.", q.Get("message"))
	assert.Zero(t, api.count("PUT /drivers/7"))

	rec = app.post("/drivers/7/update", driverForm(sess.CSRF, map[string]string{"fullName": " Ada King "}), cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, q = redirectQuery(t, rec)
	assert.Equal(t, "Driver updated.", q.Get("message"))
	assert.Equal(t, 1, api.count("PUT /drivers/7"))
}

func TestDeleteDriverNeedsConfirmation(t *testing.T) {
	api := driversAPI(t)
	app := newTestApp(t, api)
	cookie, sess := app.signIn(t, session.RoleAdmin, 0)

	rec := app.post("/drivers/7/delete", url.Values{csrfFieldName: {sess.CSRF}}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/drivers?delete=7", rec.Header().Get("Location"))
	assert.Zero(t, api.count("DELETE /drivers/7"))

	rec = app.get("/drivers?delete=7", cookie)
	assert.Contains(t, rec.Body.String(), `action="/drivers/7/delete"`)

	rec = app.post("/drivers/7/delete", url.Values{csrfFieldName: {sess.CSRF}, "confirm": {"yes"}}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, q := redirectQuery(t, rec)
	assert.Equal(t, "Driver deleted.", q.Get("message"))
	assert.Equal(t, 1, api.count("DELETE /drivers/7"))
}

func TestDriverActionsRequireCSRF(t *testing.T) {
	api := driversAPI(t)
	app := newTestApp(t, api)
	cookie, sess := app.signIn(t, session.RoleAdmin, 0)

	rec := app.post("/drivers/7/delete", url.Values{"confirm": {"yes"}}, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = app.post("/drivers", driverForm("", nil), cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, api.count("DELETE /drivers/7"))
	assert.Equal(t, http.StatusNotFound, app.post("/drivers/7/explode", url.Values{csrfFieldName: {sess.CSRF}}, cookie).Code)
}
