// Package dashboard loads the administrator's sales report and user list.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/pagination"
	"github.com/angelmondragon/storefront-gateway/pkg/shopapi"
)

const dateLayout = "2006-01-02"

// DefaultPeriod is used when a report filter names no period.
const DefaultPeriod = enums.ReportPeriodMonthly

type adminAPI interface {
	SalesReport(ctx context.Context, q shopapi.SalesReportQuery) (*shopapi.SalesReport, error)
	DownloadSalesReport(ctx context.Context, q shopapi.SalesReportQuery, format string) (*shopapi.Download, error)
	ListUsers(ctx context.Context, q shopapi.UsersQuery) (*shopapi.UsersPage, error)
	DeleteUser(ctx context.Context, id string) error
	SetUserStatus(ctx context.Context, id, status string) (*shopapi.AdminUser, error)
}

// ReportFilter selects the sales report window. Dates are YYYY-MM-DD and only
// apply to the custom period.
type ReportFilter struct {
	Period    enums.ReportPeriod
	StartDate string
	EndDate   string
	Page      pagination.Params
}

// UsersFilter pages through shopper accounts.
type UsersFilter struct {
	Search string
	Page   pagination.Params
}

type Service interface {
	SalesReport(ctx context.Context, filter ReportFilter) (*shopapi.SalesReport, error)
	DownloadSalesReport(ctx context.Context, filter ReportFilter, format enums.ReportFormat) (*shopapi.Download, error)
	Users(ctx context.Context, filter UsersFilter) (*shopapi.UsersPage, error)
	DeleteUser(ctx context.Context, id string) error
	SetUserStatus(ctx context.Context, id string, status enums.UserStatus) (*shopapi.AdminUser, error)
}

type service struct {
	api adminAPI
}

func NewService(api adminAPI) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("storefront api client required")
	}
	return &service{api: api}, nil
}

func (s *service) SalesReport(ctx context.Context, filter ReportFilter) (*shopapi.SalesReport, error) {
	query, err := filter.query()
	if err != nil {
		return nil, err
	}
	report, err := s.api.SalesReport(ctx, query)
	if err != nil {
		return nil, err
	}
	if report.Orders == nil {
		report.Orders = []shopapi.SalesOrder{}
	}
	return report, nil
}

func (s *service) DownloadSalesReport(ctx context.Context, filter ReportFilter, format enums.ReportFormat) (*shopapi.Download, error) {
	if format == "" {
		format = enums.ReportFormatPDF
	}
	if !format.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("format must be pdf or excel (got %q)", format))
	}
	query, err := filter.query()
	if err != nil {
		return nil, err
	}
	download, err := s.api.DownloadSalesReport(ctx, query, format.String())
	if err != nil {
		return nil, err
	}
	if download.Filename == "" {
		download.Filename = defaultFilename(query.Period, format)
	}
	if download.ContentType == "" {
		download.ContentType = contentTypeFor(format)
	}
	return download, nil
}

func (s *service) Users(ctx context.Context, filter UsersFilter) (*shopapi.UsersPage, error) {
	page, err := s.api.ListUsers(ctx, shopapi.UsersQuery{
		Search: strings.TrimSpace(filter.Search),
		Page:   filter.Page.Normalize(),
	})
	if err != nil {
		return nil, err
	}
	if page.Users == nil {
		page.Users = []shopapi.AdminUser{}
	}
	return page, nil
}

func (s *service) DeleteUser(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.api.DeleteUser(ctx, id)
}

func (s *service) SetUserStatus(ctx context.Context, id string, status enums.UserStatus) (*shopapi.AdminUser, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("status must be active or blocked (got %q)", status))
	}
	user, err := s.api.SetUserStatus(ctx, id, status.String())
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = &shopapi.AdminUser{ID: id, Status: status.String()}
	}
	return user, nil
}

// query validates the filter and converts it to upstream parameters.
func (f ReportFilter) query() (shopapi.SalesReportQuery, error) {
	period := f.Period
	if period == "" {
		period = DefaultPeriod
	}
	if !period.IsValid() {
		return shopapi.SalesReportQuery{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown report period %q", f.Period))
	}
	query := shopapi.SalesReportQuery{Period: period.String(), Page: f.Page.Normalize()}
	if period != enums.ReportPeriodCustom {
		return query, nil
	}

	start, err := parseDate("startDate", f.StartDate)
	if err != nil {
		return shopapi.SalesReportQuery{}, err
	}
	end, err := parseDate("endDate", f.EndDate)
	if err != nil {
		return shopapi.SalesReportQuery{}, err
	}
	if start.After(end) {
		return shopapi.SalesReportQuery{}, pkgerrors.New(pkgerrors.CodeValidation, "startDate must not be after endDate")
	}
	query.StartDate = start.Format(dateLayout)
	query.EndDate = end.Format(dateLayout)
	return query, nil
}

func parseDate(field, value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, field+" is required for a custom period")
	}
	parsed, err := time.Parse(dateLayout, trimmed)
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, field+" must be YYYY-MM-DD")
	}
	return parsed, nil
}

func defaultFilename(period string, format enums.ReportFormat) string {
	ext := "pdf"
	if format == enums.ReportFormatExcel {
		ext = "xlsx"
	}
	return fmt.Sprintf("sales-report-%s.%s", period, ext)
}

func contentTypeFor(format enums.ReportFormat) string {
	if format == enums.ReportFormatExcel {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/pdf"
}
