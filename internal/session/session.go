package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cmjl/deliverydesk/internal/security"
)

// Role is the numeric user role the backend uses.
type Role int

const (
	RoleNone   Role = 0
	RoleAdmin  Role = 1
	RoleDriver Role = 2
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleDriver:
		return "driver"
	default:
		return ""
	}
}

// ParseRole accepts the numeric form or the name.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "admin":
		return RoleAdmin
	case "2", "driver":
		return RoleDriver
	default:
		return RoleNone
	}
}

// Home is where a freshly logged in user lands.
func (r Role) Home() string {
	if r == RoleAdmin {
		return "/dashboard"
	}
	return "/upload"
}

// Session is an immutable login. The zero value is the logged out session.
type Session struct {
	ID       string    `json:"sid"`
	Token    string    `json:"token"`
	Role     Role      `json:"role"`
	DriverID int64     `json:"driverId,omitempty"`
	Name     string    `json:"name,omitempty"`
	CSRF     string    `json:"csrf"`
	IssuedAt time.Time `json:"iat"`
}

// Login builds a new session; driverID is only kept for drivers.
func Login(token string, role Role, driverID int64, name string, now time.Time) (Session, error) {
	if strings.TrimSpace(token) == "" {
		return Session{}, errors.New("empty access token")
	}
	if role != RoleAdmin && role != RoleDriver {
		return Session{}, fmt.Errorf("unknown role %d", role)
	}
	csrf, err := security.RandomToken(24)
	if err != nil {
		return Session{}, err
	}
	if role != RoleDriver {
		driverID = 0
	}
	return Session{
		ID:       uuid.NewString(),
		Token:    token,
		Role:     role,
		DriverID: driverID,
		Name:     strings.TrimSpace(name),
		CSRF:     csrf,
		IssuedAt: now.UTC(),
	}, nil
}

// Logout returns the zero session.
func (s Session) Logout() Session {
	return Session{}
}

func (s Session) Valid() bool {
	return s.Token != "" && (s.Role == RoleAdmin || s.Role == RoleDriver)
}

func (s Session) IsAdmin() bool {
	return s.Valid() && s.Role == RoleAdmin
}

const CookieName = "deliverydesk_session"

var (
	ErrNoSession = errors.New("no session cookie")
	ErrExpired   = errors.New("session expired")
)

// Codec moves sessions in and out of a signed cookie.
type Codec struct {
	signer *security.Signer
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewCodec(secret string, ttl time.Duration, secure bool) (*Codec, error) {
	signer, err := security.NewSigner(secret)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Codec{signer: signer, ttl: ttl, secure: secure, now: time.Now}, nil
}

func (c *Codec) Encode(s Session) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	return c.signer.Sign(raw), nil
}

func (c *Codec) Decode(value string) (Session, error) {
	raw, err := c.signer.Verify(value)
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if c.now().Sub(s.IssuedAt) > c.ttl {
		return Session{}, ErrExpired
	}
	if !s.Valid() {
		return Session{}, ErrNoSession
	}
	return s, nil
}

// Read returns the session carried by r, or the zero session with an error.
func (c *Codec) Read(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Session{}, ErrNoSession
	}
	return c.Decode(cookie.Value)
}

func (c *Codec) Write(w http.ResponseWriter, s Session) error {
	if !s.Valid() {
		c.Clear(w)
		return nil
	}
	value, err := c.Encode(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.ttl / time.Second),
	})
	return nil
}

func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
