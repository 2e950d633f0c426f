package clientapp

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cmjl/deliverydesk/internal/backend"
	"github.com/cmjl/deliverydesk/internal/security"
)

const driverPasswordRule = "At least 8 chars, 1 number & 1 special char."

var driverFields = []string{"driverId", "fullName", "phoneNumber", "email"}

func (s *server) driversRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.driversPage(w, r)
	case http.MethodPost:
		s.createDriver(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// driversData loads the list. A failed load still renders the page with
// an error and no rows.
func (s *server) driversData(r *http.Request) pageData {
	sess := sessionFrom(r)
	data := pageData{
		Title:   "Drivers",
		Nav:     "drivers",
		CSRF:    sess.CSRF,
		User:    sess,
		IsAdmin: true,
	}
	drivers, err := s.api.ListDrivers(r.Context(), sess.Token)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("driver list unavailable")
		data.Error = backend.Message(err, "Failed to load drivers")
		return data
	}
	data.Drivers = drivers
	return data
}

func findDriver(drivers []backend.Driver, pathID string) (backend.Driver, bool) {
	for _, d := range drivers {
		if d.PathKey() == pathID {
			return d, true
		}
	}
	return backend.Driver{}, false
}

func driverValues(d backend.Driver) map[string]string {
	return map[string]string{
		"driverId":    d.DriverID,
		"fullName":    d.FullName,
		"phoneNumber": d.PhoneNumber,
		"email":       d.Email,
	}
}

func (s *server) driversPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := s.driversData(r)
	if msg := q.Get("error"); msg != "" {
		data.Error = msg
	}
	data.Message = q.Get("message")

	switch {
	case q.Has("new"):
		data.Editing = &driverFormView{Create: true, Values: map[string]string{}}
	case q.Get("edit") != "":
		d, ok := findDriver(data.Drivers, q.Get("edit"))
		if !ok {
			data.Error = "Driver not found."
			break
		}
		data.Editing = &driverFormView{PathID: d.PathKey(), Values: driverValues(d)}
	case q.Get("delete") != "":
		d, ok := findDriver(data.Drivers, q.Get("delete"))
		if !ok {
			data.Error = "Driver not found."
			break
		}
		data.Deleting = &d
	}
	s.render(w, r, s.driversTmpl, data)
}

// validateDriverForm applies the add/edit rules. The password is only
// required when creating.
func validateDriverForm(values map[string]string, password string, create bool) map[string]string {
	errs := map[string]string{}
	switch {
	case values["driverId"] == "":
		errs["driverId"] = "Driver ID is required."
	case !security.AllDigits(values["driverId"]):
		errs["driverId"] = "Driver ID must contain digits only."
	}
	if values["fullName"] == "" {
		errs["fullName"] = "Full name is required."
	}
	switch {
	case values["phoneNumber"] == "":
		errs["phoneNumber"] = "Phone number is required."
	case !security.AllDigits(values["phoneNumber"]):
		errs["phoneNumber"] = "Phone number must contain digits only."
	}
	switch {
	case values["email"] == "":
		errs["email"] = "Email is required."
	case !security.ValidEmail(values["email"]):
		errs["email"] = "Invalid email format."
	}

	password = strings.TrimSpace(password)
	switch err := security.CheckPassword(password); {
	case err == nil:
	case errors.Is(err, security.ErrPasswordRequired):
		if create {
			errs["password"] = "Password is required."
		}
	default:
		errs["password"] = driverPasswordRule
	}
	return errs
}

func readDriverForm(r *http.Request) (map[string]string, string) {
	values := make(map[string]string, len(driverFields))
	for _, f := range driverFields {
		values[f] = strings.TrimSpace(r.FormValue(f))
	}
	return values, r.FormValue("password")
}

func (s *server) createDriver(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := r.ParseForm(); err != nil || !checkCSRF(r, sess) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}
	values, password := readDriverForm(r)
	form := &driverFormView{Create: true, Values: values}

	if form.Errors = validateDriverForm(values, password, true); len(form.Errors) > 0 {
		data := s.driversData(r)
		data.Editing = form
		s.render(w, r, s.driversTmpl, data)
		return
	}

	driverID, _ := strconv.ParseInt(values["driverId"], 10, 64)
	err := s.api.CreateDriver(r.Context(), sess.Token, backend.DriverInput{
		Email:       values["email"],
		Password:    strings.TrimSpace(password),
		DriverID:    driverID,
		FullName:    values["fullName"],
		PhoneNumber: values["phoneNumber"],
	})
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("create driver failed")
		form.Errors = map[string]string{"form": backend.Message(err, "Operation failed")}
		data := s.driversData(r)
		data.Editing = form
		s.render(w, r, s.driversTmpl, data)
		return
	}
	redirectWith(w, r, "/drivers", "message", "Driver created.")
}

// driverActionRoute serves POST /drivers/{id}/update and
// POST /drivers/{id}/delete.
func (s *server) driverActionRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/drivers/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	sess := sessionFrom(r)
	if err := r.ParseForm(); err != nil || !checkCSRF(r, sess) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	switch parts[1] {
	case "update":
		s.updateDriver(w, r, parts[0])
	case "delete":
		s.deleteDriver(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (s *server) updateDriver(w http.ResponseWriter, r *http.Request, pathID string) {
	sess := sessionFrom(r)
	values, password := readDriverForm(r)
	form := &driverFormView{PathID: pathID, Values: values}

	data := s.driversData(r)
	if data.Error != "" {
		data.Editing = form
		s.render(w, r, s.driversTmpl, data)
		return
	}
	old, ok := findDriver(data.Drivers, pathID)
	if !ok {
		redirectWith(w, r, "/drivers", "error", "Driver not found.")
		return
	}

	if form.Errors = validateDriverForm(values, password, false); len(form.Errors) > 0 {
		data.Editing = form
		s.render(w, r, s.driversTmpl, data)
		return
	}

	patch := backend.DiffDriver(old, backend.DriverForm{
		DriverID:    values["driverId"],
		FullName:    values["fullName"],
		Email:       values["email"],
		PhoneNumber: values["phoneNumber"],
		Password:    password,
	})
	if patch == nil {
		redirectWith(w, r, "/drivers", "message", "No changes.")
		return
	}
	if err := s.api.UpdateDriver(r.Context(), sess.Token, old.PathKey(), patch); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("driver", pathID).Msg("update driver failed")
		form.Errors = map[string]string{"form": backend.Message(err, "Operation failed")}
		data.Editing = form
		s.render(w, r, s.driversTmpl, data)
		return
	}
	redirectWith(w, r, "/drivers", "message", "Driver updated.")
}

func (s *server) deleteDriver(w http.ResponseWriter, r *http.Request, pathID string) {
	sess := sessionFrom(r)
	if r.FormValue("confirm") != "yes" {
		http.Redirect(w, r, "/drivers?delete="+url.QueryEscape(pathID), http.StatusSeeOther)
		return
	}
	if err := s.api.DeleteDriver(r.Context(), sess.Token, pathID); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("driver", pathID).Msg("delete driver failed")
		redirectWith(w, r, "/drivers", "error", backend.Message(err, "Delete failed"))
		return
	}
	redirectWith(w, r, "/drivers", "message", "Driver deleted.")
}
