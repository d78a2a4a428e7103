package dto

import (
	"time"

	"github.com/GlebRadaev/smswallet/internal/domain"
)

type PurchaseRequestDTO struct {
	ProductID string `json:"product_id" validate:"required,max=64" example:"whatsapp"`
}

type OrderDTO struct {
	ID          string    `json:"id" example:"0b6f7b1e-8f7a-4c43-8d0a-5b7b6f0b9e11"`
	ProductID   string    `json:"product_id" example:"whatsapp"`
	Price       string    `json:"price" example:"15.00"`
	PhoneNumber string    `json:"phone_number,omitempty" example:"5511999998888"`
	SMSCode     string    `json:"sms_code,omitempty" example:"123456"`
	State       string    `json:"state" example:"WAITING"`
	Stage       string    `json:"stage" example:"PROVIDER_PENDING"`
	ExpiresAt   time.Time `json:"expires_at" example:"2024-05-01T12:10:00Z"`
	CreatedAt   time.Time `json:"created_at" example:"2024-05-01T12:00:00Z"`
}

type ProductDTO struct {
	ID      string `json:"id" example:"whatsapp"`
	Name    string `json:"name" example:"WhatsApp"`
	Service string `json:"service" example:"wa"`
	Country int    `json:"country" example:"73"`
	Price   string `json:"price" example:"15.00"`
	Active  bool   `json:"active" example:"true"`
}

type SaveProductRequestDTO struct {
	Name    string `json:"name" validate:"max=64" example:"WhatsApp"`
	Service string `json:"service" validate:"required,max=16" example:"wa"`
	Country int    `json:"country" validate:"gte=0" example:"73"`
	Price   string `json:"price" validate:"required,numeric" example:"15.00"`
	Active  *bool  `json:"active" example:"true"`
}

type ProviderBalanceResponseDTO struct {
	Balance string `json:"balance" example:"120.35"`
}

func NewOrderDTO(order *domain.Order) OrderDTO {
	return OrderDTO{
		ID:          order.ID,
		ProductID:   order.ProductID,
		Price:       order.Price.StringFixed(2),
		PhoneNumber: order.PhoneNumber,
		SMSCode:     order.SMSCode,
		State:       string(order.State),
		Stage:       string(order.Stage),
		ExpiresAt:   order.ExpiresAt,
		CreatedAt:   order.CreatedAt,
	}
}

func NewProductDTO(product *domain.Product) ProductDTO {
	return ProductDTO{
		ID:      product.ID,
		Name:    product.Name,
		Service: product.Service,
		Country: product.Country,
		Price:   product.Price.StringFixed(2),
		Active:  product.Active,
	}
}
