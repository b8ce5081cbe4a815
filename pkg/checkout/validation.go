package checkout

import (
	"fmt"

	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
)

const (
	// MinQuantity and MaxQuantity bound the units of one variant a cart line may hold.
	MinQuantity = 1
	MaxQuantity = 5
)

// QuantityViolationDetail exposes the data returned to callers when a validation fails.
type QuantityViolationDetail struct {
	VariantID    string `json:"variantId"`
	RequestedQty int    `json:"requestedQty"`
	MinQty       int    `json:"minQty"`
	MaxQty       int    `json:"maxQty"`
}

// ValidateQuantity rejects quantities outside [MinQuantity, MaxQuantity].
func ValidateQuantity(variantID string, quantity int) error {
	if quantity >= MinQuantity && quantity <= MaxQuantity {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be between %d and %d", MinQuantity, MaxQuantity)).WithDetails(map[string]any{
		"violations": []QuantityViolationDetail{{
			VariantID:    variantID,
			RequestedQty: quantity,
			MinQty:       MinQuantity,
			MaxQty:       MaxQuantity,
		}},
	})
}
