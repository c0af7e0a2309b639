package repository

import (
	"mytestbuddies_backend/internal/model"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	DB *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

func (r *PaymentRepository) Create(p *model.Payment) error {
	return r.DB.Create(p).Error
}

func (r *PaymentRepository) FindByID(id string) (*model.Payment, error) {
	var p model.Payment
	err := r.DB.First(&p, "id = ?", id).Error
	return &p, err
}

func (r *PaymentRepository) FindByUTR(utr string) (*model.Payment, error) {
	var p model.Payment
	err := r.DB.Where("utr = ?", utr).Order("created_at desc").First(&p).Error
	return &p, err
}

func (r *PaymentRepository) Update(p *model.Payment) error {
	return r.DB.Save(p).Error
}

func (r *PaymentRepository) List() ([]model.Payment, error) {
	var payments []model.Payment
	err := r.DB.Order("created_at desc").Find(&payments).Error
	return payments, err
}

func (r *PaymentRepository) ListByStatus(status model.PaymentStatus) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.DB.Where("status = ?", status).Order("created_at asc").Find(&payments).Error
	return payments, err
}

func (r *PaymentRepository) HasVerifiedPayment(userID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Payment{}).
		Where("user_id = ? AND status = ?", userID, model.PaymentSuccess).
		Count(&count).Error
	return count > 0, err
}
