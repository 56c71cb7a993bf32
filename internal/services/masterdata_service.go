package services

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cutting-report-backend/internal/apperror"
	"cutting-report-backend/internal/models"
)

// Record constrains the registry to pointer types implementing MasterRecord.
type Record[T any] interface {
	*T
	models.MasterRecord
}

// MasterFilter narrows a master data listing.
type MasterFilter struct {
	Status string
	Search string
	Paging
}

// Registry manages one kind of reference entity: uniqueness of its code,
// soft deactivation and delete policies towards dependent tables.
type Registry[T any, P Record[T]] struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewRegistry[T any, P Record[T]](db *gorm.DB, log *zap.Logger) *Registry[T, P] {
	return &Registry[T, P]{db: db, log: log}
}

func (r *Registry[T, P]) proto() P {
	var zero T
	return P(&zero)
}

func (r *Registry[T, P]) List(ctx context.Context, f MasterFilter) ([]T, int64, error) {
	p := r.proto()
	q := r.db.WithContext(ctx).Model(new(T))
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where(p.CodeColumn()+" LIKE ? OR "+p.NameColumn()+" LIKE ?", like, like)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []T
	if err := f.Paging.apply(q).Order(p.CodeColumn()).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *Registry[T, P]) Get(ctx context.Context, id uint) (*T, error) {
	var rec T
	if err := r.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, notFoundOr(err, r.proto().EntityName(), id)
	}
	return &rec, nil
}

func (r *Registry[T, P]) Create(ctx context.Context, rec *T) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ensureUnique(tx, P(rec), 0); err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		return err
	}
	r.log.Info("master data created",
		zap.String("entity", P(rec).EntityName()),
		zap.Uint("id", P(rec).GetID()),
		zap.String("code", P(rec).Code()))
	return nil
}

// Update loads the record, lets apply mutate it and saves it when the code is
// still unique.
func (r *Registry[T, P]) Update(ctx context.Context, id uint, apply func(*T) error) (*T, error) {
	var rec T
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, id).Error; err != nil {
			return notFoundOr(err, r.proto().EntityName(), id)
		}
		if err := apply(&rec); err != nil {
			return err
		}
		if err := r.ensureUnique(tx, P(&rec), id); err != nil {
			return err
		}
		return tx.Save(&rec).Error
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Deactivate is the standard decommission path; dependent reports keep
// pointing at the record.
func (r *Registry[T, P]) Deactivate(ctx context.Context, id uint) (*T, error) {
	rec, err := r.Update(ctx, id, func(t *T) error {
		P(t).Deactivate()
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("master data deactivated",
		zap.String("entity", P(rec).EntityName()),
		zap.Uint("id", id))
	return rec, nil
}

// Delete removes the record. Restricted dependents block the delete with a
// ConflictError; set-null dependents lose the reference in the same
// transaction.
func (r *Registry[T, P]) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec T
		if err := tx.First(&rec, id).Error; err != nil {
			return notFoundOr(err, r.proto().EntityName(), id)
		}
		rules := P(&rec).DeleteRules()

		for _, rule := range rules {
			if rule.Policy != models.Restrict {
				continue
			}
			var n int64
			if err := tx.Table(rule.Table).Where(rule.Column+" = ?", id).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return apperror.Conflict("%s %s masih dipakai oleh %d baris %s; nonaktifkan saja",
					P(&rec).EntityName(), P(&rec).Code(), n, rule.Table)
			}
		}

		for _, rule := range rules {
			if rule.Policy != models.SetNull {
				continue
			}
			if err := tx.Table(rule.Table).Where(rule.Column+" = ?", id).Update(rule.Column, nil).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&rec).Error
	})
	if err != nil {
		return err
	}
	r.log.Info("master data deleted",
		zap.String("entity", r.proto().EntityName()),
		zap.Uint("id", id))
	return nil
}

func (r *Registry[T, P]) ensureUnique(tx *gorm.DB, rec P, exceptID uint) error {
	var n int64
	q := tx.Model(new(T)).Where(rec.CodeColumn()+" = ?", rec.Code())
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperror.Conflict("%s dengan %s %q sudah ada", rec.EntityName(), rec.CodeColumn(), rec.Code())
	}
	return nil
}

// MasterDataService groups the registries of all reference entities.
type MasterDataService struct {
	Shifts    *Registry[models.Shift, *models.Shift]
	Machines  *Registry[models.CuttingMachine, *models.CuttingMachine]
	Fabrics   *Registry[models.FabricType, *models.FabricType]
	Lines     *Registry[models.ProductionLine, *models.ProductionLine]
	Customers *Registry[models.Customer, *models.Customer]
	Patterns  *Registry[models.Pattern, *models.Pattern]
}

func NewMasterDataService(db *gorm.DB, log *zap.Logger) *MasterDataService {
	return &MasterDataService{
		Shifts:    NewRegistry[models.Shift, *models.Shift](db, log),
		Machines:  NewRegistry[models.CuttingMachine, *models.CuttingMachine](db, log),
		Fabrics:   NewRegistry[models.FabricType, *models.FabricType](db, log),
		Lines:     NewRegistry[models.ProductionLine, *models.ProductionLine](db, log),
		Customers: NewRegistry[models.Customer, *models.Customer](db, log),
		Patterns:  NewRegistry[models.Pattern, *models.Pattern](db, log),
	}
}
