package registry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"subdns/internal/model"

	"gorm.io/gorm"
)

// Mutable is the set of subdomain columns an update may touch. Name,
// customer and prototype ids are identity fields and stay immutable.
var Mutable = map[string]bool{
	"status":     true,
	"target_url": true,
	"expires_at": true,
	"metadata":   true,
}

// ListFilter narrows List results
type ListFilter struct {
	CustomerID string
	Status     string
}

// Store provides durable CRUD over subdomains and customers
type Store struct {
	db *gorm.DB
}

// NewStore creates a new registry store
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the subdomain row for name, or ErrNotFound
func (s *Store) Get(name string) (*model.Subdomain, error) {
	var sub model.Subdomain
	if err := s.db.Where("name = ?", name).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("registry get %s: %w", name, err)
	}
	return &sub, nil
}

// UpsertCustomer creates a minimal customer row if the id is unknown.
// Existing rows are left untouched.
func (s *Store) UpsertCustomer(id, name string) (*model.Customer, error) {
	return upsertCustomer(s.db, id, name)
}

func upsertCustomer(tx *gorm.DB, id, name string) (*model.Customer, error) {
	var customer model.Customer
	err := tx.Where("id = ?", id).First(&customer).Error
	if err == nil {
		return &customer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("registry customer lookup %s: %w", id, err)
	}

	if name == "" {
		name = id
	}
	customer = model.Customer{
		ID:     id,
		Name:   name,
		Status: model.CustomerStatusActive,
	}
	if err := tx.Create(&customer).Error; err != nil {
		// Lost a race with a concurrent upsert for the same id.
		if isUniqueViolation(err) {
			if ferr := tx.Where("id = ?", id).First(&customer).Error; ferr == nil {
				return &customer, nil
			}
		}
		return nil, fmt.Errorf("registry customer create %s: %w", id, err)
	}
	return &customer, nil
}

// Insert creates the subdomain row, failing with ErrConflict if the name
// is already taken
func (s *Store) Insert(sub *model.Subdomain) error {
	return insertSubdomain(s.db, sub)
}

func insertSubdomain(tx *gorm.DB, sub *model.Subdomain) error {
	if sub.Status == "" {
		sub.Status = model.SubdomainStatusActive
	}
	if err := tx.Create(sub).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("registry insert %s: %w", sub.Name, err)
	}
	return nil
}

// Create inserts the subdomain together with its customer upsert inside a
// single transaction, so a partially registered name never becomes visible.
func (s *Store) Create(sub *model.Subdomain, customerName string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := upsertCustomer(tx, sub.CustomerID, customerName); err != nil {
			return err
		}
		return insertSubdomain(tx, sub)
	})
}

// Update applies a partial field set to the named subdomain. Fields outside
// the mutable set are rejected; an empty set fails with ErrNoFields.
func (s *Store) Update(name string, fields map[string]interface{}) (*model.Subdomain, error) {
	if len(fields) == 0 {
		return nil, ErrNoFields
	}
	for col := range fields {
		if !Mutable[col] {
			return nil, fmt.Errorf("registry update %s: column %q is not mutable", name, col)
		}
	}

	var updated *model.Subdomain
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sub model.Subdomain
		if err := tx.Where("name = ?", name).First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("registry update lookup %s: %w", name, err)
		}
		if err := tx.Model(&sub).Updates(fields).Error; err != nil {
			return fmt.Errorf("registry update %s: %w", name, err)
		}
		if err := tx.Where("name = ?", name).First(&sub).Error; err != nil {
			return fmt.Errorf("registry update reload %s: %w", name, err)
		}
		updated = &sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the subdomain row; returns true if a row was removed
func (s *Store) Delete(name string) (bool, error) {
	res := s.db.Where("name = ?", name).Delete(&model.Subdomain{})
	if res.Error != nil {
		return false, fmt.Errorf("registry delete %s: %w", name, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// List returns subdomains matching the filter, newest-created first
func (s *Store) List(filter ListFilter, limit, offset int) ([]model.Subdomain, error) {
	q := s.db.Model(&model.Subdomain{})
	if filter.CustomerID != "" {
		q = q.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var subs []model.Subdomain
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("registry list: %w", err)
	}
	return subs, nil
}

// SweepExpired transitions active subdomains whose expiry is strictly in
// the past to expired, returning the number of rows transitioned.
func (s *Store) SweepExpired(now time.Time) (int, error) {
	res := s.db.Model(&model.Subdomain{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", model.SubdomainStatusActive, now).
		Update("status", model.SubdomainStatusExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("registry sweep: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// isUniqueViolation detects a uniqueness constraint error across the
// supported drivers (sqlite and mysql report it differently).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "constraint failed")
}
