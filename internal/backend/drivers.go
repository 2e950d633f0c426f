package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cmjl/deliverydesk/internal/report"
)

// Driver is a driver record as listed by the backend. Ids are kept as text
// because the backend sends them as numbers or strings.
type Driver struct {
	ID          string
	UserID      string
	DriverID    string
	FullName    string
	Email       string
	PhoneNumber string
}

// ReportKey is the id used for report queries: id, then userId, then
// driverId.
func (d Driver) ReportKey() string {
	for _, v := range []string{d.ID, d.UserID, d.DriverID} {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// PathKey is the id used in /drivers/{id} paths: driverId, then id.
func (d Driver) PathKey() string {
	if strings.TrimSpace(d.DriverID) != "" {
		return strings.TrimSpace(d.DriverID)
	}
	return strings.TrimSpace(d.ID)
}

type rawDriver struct {
	ID          text `json:"id"`
	UserID      text `json:"userId"`
	DriverID    text `json:"driverId"`
	FullName    text `json:"fullName"`
	Email       text `json:"email"`
	PhoneNumber text `json:"phoneNumber"`
}

// ListDrivers accepts either a bare array or an object with the drivers
// under "data".
func (c *Client) ListDrivers(ctx context.Context, token string) ([]Driver, error) {
	resp, err := c.do(ctx, http.MethodGet, "/drivers", token, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return nil, decodeError(resp, fmt.Sprintf("Failed to fetch drivers (%d)", resp.StatusCode))
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read drivers: %w", err)
	}

	var list []rawDriver
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &list)
	} else {
		var env struct {
			Data []rawDriver `json:"data"`
		}
		err = json.Unmarshal(trimmed, &env)
		list = env.Data
	}
	if err != nil {
		return nil, fmt.Errorf("decode drivers: %w", err)
	}

	drivers := make([]Driver, 0, len(list))
	for _, d := range list {
		drivers = append(drivers, Driver{
			ID:          string(d.ID),
			UserID:      string(d.UserID),
			DriverID:    string(d.DriverID),
			FullName:    strings.TrimSpace(string(d.FullName)),
			Email:       string(d.Email),
			PhoneNumber: string(d.PhoneNumber),
		})
	}
	return drivers, nil
}

// DriverOptions loads the drivers as report selector options.
func (c *Client) DriverOptions(ctx context.Context, token string) ([]report.DriverOption, error) {
	drivers, err := c.ListDrivers(ctx, token)
	if err != nil {
		return nil, err
	}
	return Options(drivers), nil
}

// Options skips drivers whose report key is not numeric.
func Options(drivers []Driver) []report.DriverOption {
	out := make([]report.DriverOption, 0, len(drivers))
	for _, d := range drivers {
		id, err := strconv.ParseInt(d.ReportKey(), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, report.NewDriverOption(id, d.FullName))
	}
	return out
}

// DriverInput is the create payload. UserRole is always 2.
type DriverInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	UserRole    int    `json:"userRole"`
	DriverID    int64  `json:"driverId"`
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
}

func (c *Client) CreateDriver(ctx context.Context, token string, in DriverInput) error {
	in.UserRole = 2
	resp, err := c.doJSON(ctx, http.MethodPost, "/drivers", token, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return decodeError(resp, fmt.Sprintf("Create failed (%d)", resp.StatusCode))
	}
	return nil
}

// DriverForm is the edit form as submitted.
type DriverForm struct {
	DriverID    string
	FullName    string
	Email       string
	PhoneNumber string
	Password    string
}

// DiffDriver builds the update payload: changed fields plus userRole. It
// returns nil when nothing but userRole would be sent.
func DiffDriver(old Driver, form DriverForm) map[string]any {
	diff := map[string]any{"userRole": 2}
	changed := func(next, prev string) bool {
		return strings.TrimSpace(next) != strings.TrimSpace(prev)
	}
	if changed(form.Email, old.Email) {
		diff["email"] = strings.TrimSpace(form.Email)
	}
	if changed(form.FullName, old.FullName) {
		diff["fullName"] = strings.TrimSpace(form.FullName)
	}
	if changed(form.PhoneNumber, old.PhoneNumber) {
		diff["phoneNumber"] = strings.TrimSpace(form.PhoneNumber)
	}
	if changed(form.DriverID, old.DriverID) {
		if n, err := strconv.ParseInt(strings.TrimSpace(form.DriverID), 10, 64); err == nil {
			diff["driverId"] = n
		}
	}
	if p := strings.TrimSpace(form.Password); p != "" {
		diff["password"] = p
	}
	if len(diff) == 1 {
		return nil
	}
	return diff
}

func (c *Client) UpdateDriver(ctx context.Context, token, pathID string, patch map[string]any) error {
	resp, err := c.doJSON(ctx, http.MethodPut, "/drivers/"+url.PathEscape(pathID), token, patch)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return decodeError(resp, fmt.Sprintf("Update failed (%d)", resp.StatusCode))
	}
	return nil
}

func (c *Client) DeleteDriver(ctx context.Context, token, driverID string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/drivers/"+url.PathEscape(driverID), token, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return decodeError(resp, fmt.Sprintf("Delete failed (%d)", resp.StatusCode))
	}
	return nil
}
