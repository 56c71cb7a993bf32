package services

import (
	"errors"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cutting-report-backend/internal/apperror"
	"cutting-report-backend/internal/models"
)

// Policy holds the configurable domain rules.
type Policy struct {
	AllowSelfValidation bool
}

// Services bundles every domain service.
type Services struct {
	MasterData *MasterDataService
	Reports    *ReportService
	Downtime   *DowntimeService
	Waste      *WasteService
	Export     *ExportService
}

func NewServices(db *gorm.DB, log *zap.Logger, policy Policy) *Services {
	reports := NewReportService(db, log, policy)
	return &Services{
		MasterData: NewMasterDataService(db, log),
		Reports:    reports,
		Downtime:   NewDowntimeService(db, log),
		Waste:      NewWasteService(db, log),
		Export:     NewExportService(reports),
	}
}

var validate = validator.New()

// Validate checks a request struct against its `validate` tags and turns the
// failures into a ValidationError keyed by json field name.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apperror.Validation("input tidak valid", nil)
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[jsonFieldPath(fe)] = fe.Tag()
	}
	return apperror.Validation("validasi gagal", fields)
}

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// jsonFieldPath drops the Go struct names from the namespace,
// "CreateReportRequest.ReportRequest.details[0].ukuran" -> "details[0].ukuran".
func jsonFieldPath(fe validator.FieldError) string {
	parts := strings.Split(fe.Namespace(), ".")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" && unicode.IsUpper(rune(p[0])) {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return fe.Field()
	}
	return strings.Join(kept, ".")
}

// Paging is the normalised page window of a list request.
type Paging struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

const (
	defaultPerPage = 20
	maxPerPage     = 200
)

func (p Paging) normalize() Paging {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return p
}

func (p Paging) apply(q *gorm.DB) *gorm.DB {
	p = p.normalize()
	return q.Offset((p.Page - 1) * p.PerPage).Limit(p.PerPage)
}

// notFoundOr maps gorm.ErrRecordNotFound to a NotFoundError.
func notFoundOr(err error, entity string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(entity, id)
	}
	return err
}

// exists reports whether a row of model with the given id exists.
func exists(tx *gorm.DB, model any, id uint) (bool, error) {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// loadUser fetches a user by id, NotFoundError when missing.
func loadUser(tx *gorm.DB, id uint) (*models.User, error) {
	var u models.User
	if err := tx.First(&u, id).Error; err != nil {
		return nil, notFoundOr(err, "user", id)
	}
	return &u, nil
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, apperror.Field(field, "format tanggal harus YYYY-MM-DD")
	}
	return t, nil
}
