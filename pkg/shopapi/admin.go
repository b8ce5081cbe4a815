package shopapi

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/pagination"
)

// AdminLogin exchanges administrator credentials for a token.
func (c *Client) AdminLogin(ctx context.Context, req AdminLoginRequest) (*LoginResponse, error) {
	var out struct {
		Token string  `json:"token"`
		Admin Profile `json:"admin"`
	}
	if err := c.doJSON(ctx, call{endpoint: "admin.login", method: http.MethodPost, path: "/admin/login", body: req}, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "login response missing token")
	}
	return &LoginResponse{Token: out.Token, Profile: out.Admin}, nil
}

// AdminLogout ends the administrator's upstream session.
func (c *Client) AdminLogout(ctx context.Context) error {
	return c.doJSON(ctx, call{endpoint: "admin.logout", method: http.MethodPost, path: "/admin/logout"}, nil)
}

// SalesReport fetches aggregated sales figures and a page of orders.
func (c *Client) SalesReport(ctx context.Context, q SalesReportQuery) (*SalesReport, error) {
	var out struct {
		SalesReport
		Data *SalesReport `json:"data"`
	}
	if err := c.doJSON(ctx, call{endpoint: "admin.sales_report", method: http.MethodGet, path: "/admin/sales-report", query: q.values()}, &out); err != nil {
		return nil, err
	}
	report := &out.SalesReport
	if out.Data != nil {
		report = out.Data
	}
	if report.Orders == nil {
		report.Orders = []SalesOrder{}
	}
	report.Pagination = report.Pagination.Fill()
	return report, nil
}

// DownloadSalesReport streams the report file in the requested format.
func (c *Client) DownloadSalesReport(ctx context.Context, q SalesReportQuery, format string) (*Download, error) {
	values := q.values()
	values.Del("page")
	values.Del("limit")
	values.Set("format", format)

	resp, err := c.send(ctx, call{endpoint: "admin.sales_report_download", method: http.MethodGet, path: "/admin/sales-report/download", query: values})
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, downloadBodyMaxBytes))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read sales report download")
	}
	return &Download{
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    dispositionFilename(resp.Header.Get("Content-Disposition")),
		Body:        body,
	}, nil
}

// ListUsers returns a page of shopper accounts.
func (c *Client) ListUsers(ctx context.Context, q UsersQuery) (*UsersPage, error) {
	values := pageValues(q.Page)
	if s := strings.TrimSpace(q.Search); s != "" {
		values.Set("search", s)
	}
	var out struct {
		UsersPage
		Data *UsersPage `json:"data"`
	}
	if err := c.doJSON(ctx, call{endpoint: "admin.users", method: http.MethodGet, path: "/admin/users", query: values}, &out); err != nil {
		return nil, err
	}
	page := &out.UsersPage
	if out.Data != nil {
		page = out.Data
	}
	if page.Users == nil {
		page.Users = []AdminUser{}
	}
	page.Pagination = page.Pagination.Fill()
	return page, nil
}

// DeleteUser removes a shopper account.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.doJSON(ctx, call{endpoint: "admin.users_delete", method: http.MethodDelete, path: "/admin/users/" + url.PathEscape(id)}, nil)
}

// SetUserStatus blocks or reactivates a shopper account.
func (c *Client) SetUserStatus(ctx context.Context, id, status string) (*AdminUser, error) {
	var out struct {
		User *AdminUser `json:"user"`
	}
	body := map[string]string{"status": status}
	if err := c.doJSON(ctx, call{endpoint: "admin.users_status", method: http.MethodPut, path: "/admin/users/" + url.PathEscape(id) + "/status", body: body}, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (q SalesReportQuery) values() url.Values {
	values := pageValues(q.Page)
	if q.Period != "" {
		values.Set("period", q.Period)
	}
	if q.StartDate != "" {
		values.Set("startDate", q.StartDate)
	}
	if q.EndDate != "" {
		values.Set("endDate", q.EndDate)
	}
	return values
}

func pageValues(p pagination.Params) url.Values {
	n := p.Normalize()
	values := url.Values{}
	values.Set("page", strconv.Itoa(n.Page))
	values.Set("limit", strconv.Itoa(n.Limit))
	return values
}

func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
