package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/rentiva/rentiva-backend/api/responses"
	"github.com/rentiva/rentiva-backend/api/validators"
	productsvc "github.com/rentiva/rentiva-backend/internal/products"
	"github.com/rentiva/rentiva-backend/pkg/logger"
	"github.com/rentiva/rentiva-backend/pkg/types"
)

type createVariantRequest struct {
	SKU             string           `json:"sku" validate:"required"`
	Name            string           `json:"name" validate:"required"`
	Attributes      types.JSONMap    `json:"attributes,omitempty"`
	HourlyRate      *decimal.Decimal `json:"hourly_rate,omitempty"`
	DailyRate       *decimal.Decimal `json:"daily_rate,omitempty"`
	WeeklyRate      *decimal.Decimal `json:"weekly_rate,omitempty"`
	MonthlyRate     *decimal.Decimal `json:"monthly_rate,omitempty"`
	SecurityDeposit *decimal.Decimal `json:"security_deposit,omitempty"`
	StockQuantity   int              `json:"stock_quantity" validate:"min=0"`
}

func (r createVariantRequest) toInput() productsvc.CreateVariantInput {
	return productsvc.CreateVariantInput{
		SKU:             r.SKU,
		Name:            r.Name,
		Attributes:      r.Attributes,
		HourlyRate:      r.HourlyRate,
		DailyRate:       r.DailyRate,
		WeeklyRate:      r.WeeklyRate,
		MonthlyRate:     r.MonthlyRate,
		SecurityDeposit: r.SecurityDeposit,
		StockQuantity:   r.StockQuantity,
	}
}

type createProductRequest struct {
	Name        string                 `json:"name" validate:"required"`
	Description *string                `json:"description,omitempty"`
	Category    string                 `json:"category" validate:"required"`
	IsRentable  *bool                  `json:"is_rentable,omitempty"`
	Variants    []createVariantRequest `json:"variants,omitempty" validate:"dive"`
}

type updateProductRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	IsRentable  *bool   `json:"is_rentable,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// optionalDecimal distinguishes an absent key from an explicit null so rate
// tiers can be cleared through PATCH-style updates.
type optionalDecimal struct {
	set   bool
	value *decimal.Decimal
}

func (o *optionalDecimal) UnmarshalJSON(data []byte) error {
	o.set = true
	if string(data) == "null" {
		o.value = nil
		return nil
	}
	var d decimal.Decimal
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	o.value = &d
	return nil
}

func (o *optionalDecimal) pointer() **decimal.Decimal {
	if !o.set {
		return nil
	}
	return &o.value
}

type updateVariantRequest struct {
	Name            *string          `json:"name,omitempty"`
	Attributes      *types.JSONMap   `json:"attributes,omitempty"`
	HourlyRate      optionalDecimal  `json:"hourly_rate"`
	DailyRate       optionalDecimal  `json:"daily_rate"`
	WeeklyRate      optionalDecimal  `json:"weekly_rate"`
	MonthlyRate     optionalDecimal  `json:"monthly_rate"`
	SecurityDeposit *decimal.Decimal `json:"security_deposit,omitempty"`
	StockQuantity   *int             `json:"stock_quantity,omitempty" validate:"omitempty,min=0"`
	IsActive        *bool            `json:"is_active,omitempty"`
}

// BrowseProducts serves the public catalog with optional filters.
func BrowseProducts(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := productsvc.ListFilters{
			Category: optionalQuery(r, "category"),
			Search:   optionalQuery(r, "q"),
		}
		if raw := optionalQuery(r, "vendor_id"); raw != nil {
			vendorID, err := validators.ParsePathUUID(*raw, "vendor_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			filters.VendorID = &vendorID
		}

		list, err := svc.ListPublic(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GetProductBySlug serves a single public listing.
func GetProductBySlug(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		product, err := svc.GetBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// VendorListProducts lists the vendor's own catalog, active or not.
func VendorListProducts(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListVendor(r.Context(), vendorID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// VendorGetProduct fetches one of the vendor's own products.
func VendorGetProduct(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetVendorProduct(r.Context(), vendorID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// VendorCreateProduct handles product creation for vendors.
func VendorCreateProduct(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := productsvc.CreateProductInput{
			Name:        payload.Name,
			Description: payload.Description,
			Category:    payload.Category,
			IsRentable:  payload.IsRentable,
		}
		for _, variant := range payload.Variants {
			input.Variants = append(input.Variants, variant.toInput())
		}

		product, err := svc.Create(r.Context(), vendorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// VendorUpdateProduct applies partial product mutations.
func VendorUpdateProduct(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), vendorID, productID, productsvc.UpdateProductInput{
			Name:        payload.Name,
			Description: payload.Description,
			Category:    payload.Category,
			IsRentable:  payload.IsRentable,
			IsActive:    payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// VendorArchiveProduct retires a listing without deleting its history.
func VendorArchiveProduct(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Archive(r.Context(), vendorID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "archived"})
	}
}

// VendorAddVariant adds a rentable unit under an existing product.
func VendorAddVariant(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createVariantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant, err := svc.AddVariant(r.Context(), vendorID, productID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, variant)
	}
}

// VendorUpdateVariant applies partial variant mutations including rate clears.
func VendorUpdateVariant(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := pathUUID(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateVariantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant, err := svc.UpdateVariant(r.Context(), vendorID, variantID, productsvc.UpdateVariantInput{
			Name:            payload.Name,
			Attributes:      payload.Attributes,
			HourlyRate:      payload.HourlyRate.pointer(),
			DailyRate:       payload.DailyRate.pointer(),
			WeeklyRate:      payload.WeeklyRate.pointer(),
			MonthlyRate:     payload.MonthlyRate.pointer(),
			SecurityDeposit: payload.SecurityDeposit,
			StockQuantity:   payload.StockQuantity,
			IsActive:        payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, variant)
	}
}
