package clientapp

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cmjl/deliverydesk/internal/backend"
	"github.com/cmjl/deliverydesk/internal/security"
	"github.com/cmjl/deliverydesk/internal/session"
)

func roleParam(raw string) string {
	if session.ParseRole(raw) == session.RoleDriver {
		return "driver"
	}
	return "admin"
}

func idLabel(role string) string {
	if role == "driver" {
		return "Driver ID"
	}
	return "Admin ID"
}

func (s *server) loginRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.loginPage(w, r)
	case http.MethodPost:
		s.login(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) loginPage(w http.ResponseWriter, r *http.Request) {
	if sess, err := s.codec.Read(r); err == nil {
		http.Redirect(w, r, sess.Role.Home(), http.StatusFound)
		return
	}
	q := r.URL.Query()
	s.render(w, r, s.loginTmpl, pageData{
		Title:   "Login",
		Role:    roleParam(q.Get("role")),
		Error:   q.Get("error"),
		Message: q.Get("message"),
	})
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/login", "error", "Invalid form submission")
		return
	}
	role := roleParam(r.FormValue("role"))
	rawID := strings.TrimSpace(r.FormValue("id"))
	password := r.FormValue("password")

	fieldErrors := map[string]string{}
	id, err := strconv.ParseInt(rawID, 10, 64)
	switch {
	case rawID == "":
		fieldErrors["id"] = idLabel(role) + " is required."
	case err != nil || !security.AllDigits(rawID):
		fieldErrors["id"] = idLabel(role) + " must be numeric."
	}
	if strings.TrimSpace(password) == "" {
		fieldErrors["password"] = "Password is required."
	}
	if len(fieldErrors) > 0 {
		s.render(w, r, s.loginTmpl, pageData{
			Title:       "Login",
			Role:        role,
			Form:        map[string]string{"id": rawID},
			FieldErrors: fieldErrors,
		})
		return
	}

	req := backend.LoginRequest{Password: password}
	if role == "driver" {
		req.DriverID, req.UserRole = &id, int(session.RoleDriver)
	} else {
		req.AdminID, req.UserRole = &id, int(session.RoleAdmin)
	}
	res, err := s.api.Login(r.Context(), req)
	if err != nil {
		zerolog.Ctx(r.Context()).Info().Err(err).Str("role", role).Msg("login rejected")
		msg := "Invalid credentials. Please try again."
		if errors.Is(err, backend.ErrTransport) {
			msg = "Network error."
		}
		s.render(w, r, s.loginTmpl, pageData{
			Title: "Login",
			Role:  role,
			Error: msg,
			Form:  map[string]string{"id": rawID},
		})
		return
	}

	sessRole := session.Role(res.Role)
	if sessRole != session.RoleAdmin && sessRole != session.RoleDriver {
		sessRole = session.Role(req.UserRole)
	}
	sess, err := session.Login(res.AccessToken, sessRole, id, res.FullName, s.now())
	if err != nil {
		redirectWith(w, r, "/login", "error", "Unable to start session")
		return
	}
	if err := s.codec.Write(w, sess); err != nil {
		redirectWith(w, r, "/login", "error", "Unable to start session")
		return
	}
	zerolog.Ctx(r.Context()).Info().Str("session", sess.ID).Str("role", sess.Role.String()).Msg("login")
	http.Redirect(w, r, sess.Role.Home(), http.StatusSeeOther)
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := sessionFrom(r)
	if err := r.ParseForm(); err != nil || !checkCSRF(r, sess) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}
	s.reports.Delete(sess.ID)
	s.drivers.Delete(sess.ID)
	if err := s.codec.Write(w, sess.Logout()); err != nil {
		http.Error(w, "logout failed", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *server) registerRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, r, s.registerTmpl, pageData{Title: "Register", Error: r.URL.Query().Get("error")})
	case http.MethodPost:
		s.register(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/register", "error", "Invalid form submission")
		return
	}
	form := map[string]string{
		"driverId": strings.TrimSpace(r.FormValue("driverId")),
		"fullName": strings.TrimSpace(r.FormValue("fullName")),
		"phone":    strings.TrimSpace(r.FormValue("phone")),
		"email":    strings.TrimSpace(r.FormValue("email")),
	}
	password := r.FormValue("password")

	fieldErrors := validateRegistration(form, password)
	if len(fieldErrors) > 0 {
		s.render(w, r, s.registerTmpl, pageData{Title: "Register", Form: form, FieldErrors: fieldErrors})
		return
	}

	driverID, _ := strconv.ParseInt(form["driverId"], 10, 64)
	err := s.api.Register(r.Context(), backend.RegisterRequest{
		Email:       form["email"],
		Password:    password,
		UserRole:    int(session.RoleDriver),
		DriverID:    driverID,
		FullName:    form["fullName"],
		PhoneNumber: form["phone"],
	})
	if err != nil {
		s.render(w, r, s.registerTmpl, pageData{
			Title: "Register",
			Form:  form,
			Error: backend.Message(err, "Registration failed. Please try again."),
		})
		return
	}
	redirectWith(w, r, "/login?role=driver", "message", "Registration complete. Please log in.")
}

func validateRegistration(form map[string]string, password string) map[string]string {
	errs := map[string]string{}
	switch {
	case form["driverId"] == "":
		errs["driverId"] = "Driver ID is required."
	case !security.AllDigits(form["driverId"]):
		errs["driverId"] = "Driver ID must contain digits only."
	}
	if form["fullName"] == "" {
		errs["fullName"] = "Full name is required."
	}
	switch {
	case form["phone"] == "":
		errs["phone"] = "Phone number is required."
	case !security.AllDigits(form["phone"]):
		errs["phone"] = "Phone number must contain digits only."
	}
	switch {
	case form["email"] == "":
		errs["email"] = "Email is required."
	case !security.ValidEmail(form["email"]):
		errs["email"] = "Invalid email format."
	}
	if msg := passwordMessage(security.CheckPassword(password)); msg != "" {
		errs["password"] = msg
	}
	return errs
}

func passwordMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, security.ErrPasswordRequired):
		return "Password is required."
	case errors.Is(err, security.ErrPasswordMismatch):
		return "Passwords do not match"
	default:
		return "Password must be at least 8 characters and include a number and a special character."
	}
}

// The reset flow is lookup (which also emails the code), verify, reset.
// State between steps travels in hidden fields.
func (s *server) forgotRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, r, s.forgotTmpl, pageData{
			Title: "Forgot Password",
			Step:  "lookup",
			Role:  roleParam(r.URL.Query().Get("role")),
		})
	case http.MethodPost:
		s.forgotStep(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) forgotStep(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/forgot", "error", "Invalid form submission")
		return
	}
	data := pageData{
		Title:       "Forgot Password",
		Role:        roleParam(r.FormValue("role")),
		Step:        r.FormValue("step"),
		MaskedEmail: r.FormValue("maskedEmail"),
		ResetToken:  r.FormValue("resetToken"),
	}
	data.UserID, _ = strconv.ParseInt(r.FormValue("userId"), 10, 64)
	ctx := r.Context()

	switch data.Step {
	case "verify":
		code := strings.TrimSpace(r.FormValue("code"))
		if data.UserID <= 0 || code == "" {
			data.Error = "Invalid code"
			break
		}
		token, err := s.api.ForgotVerifyCode(ctx, data.UserID, code)
		if err != nil {
			data.Error = backend.Message(err, "Verification failed")
			break
		}
		data.Step, data.ResetToken = "reset", token

	case "reset":
		if data.ResetToken == "" {
			data.Step, data.Error = "lookup", "Reset failed"
			break
		}
		password := r.FormValue("newPassword")
		if msg := passwordMessage(security.CheckNewPassword(password, r.FormValue("confirmPassword"))); msg != "" {
			data.Error = msg
			break
		}
		if err := s.api.ForgotReset(ctx, data.ResetToken, password); err != nil {
			data.Error = backend.Message(err, "Reset failed")
			break
		}
		redirectWith(w, r, "/login?role="+data.Role, "message", "Password reset successfully!")
		return

	default:
		data.Step = "lookup"
		id, ok := parseID(r.FormValue("id"))
		if !ok {
			data.Error = idLabel(data.Role) + " must be numeric."
			break
		}
		req := backend.LookupRequest{}
		if data.Role == "driver" {
			req.UserRole, req.DriverID = int(session.RoleDriver), &id
		} else {
			req.UserRole, req.AdminID = int(session.RoleAdmin), &id
		}
		found, err := s.api.ForgotLookup(ctx, req)
		if err != nil {
			data.Error = backend.Message(err, "Data not found")
			break
		}
		if err := s.api.ForgotSendCode(ctx, found.UserID); err != nil {
			data.Error = backend.Message(err, "Failed to send code")
			break
		}
		data.Step, data.UserID, data.MaskedEmail = "verify", found.UserID, found.MaskedEmail
	}

	s.render(w, r, s.forgotTmpl, data)
}
