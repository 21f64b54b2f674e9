package dialogue

import (
	"fmt"
	"strings"

	"github.com/pharmacare/whatsapp-bot/internal/models"
)

// AddToCart merges a medicine into the cart: an existing line (matched by
// medicine id) gains quantity, otherwise a new line is appended with
// quantity 1.
func AddToCart(cart []models.CartItem, medicine models.Medicine) []models.CartItem {
	for i := range cart {
		if cart[i].MedicineID == medicine.ID {
			cart[i].Quantity++
			return cart
		}
	}
	return append(cart, models.CartItem{
		MedicineID:           medicine.ID,
		Name:                 medicine.Name,
		UnitPrice:            medicine.UnitPrice(),
		Quantity:             1,
		RequiresPrescription: medicine.RequiresPrescription(),
	})
}

// CartTotal is the sum of unit price times quantity over all lines.
func CartTotal(cart []models.CartItem) float64 {
	var total float64
	for _, item := range cart {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}

// RequiresPrescription reports whether any cart line is prescription-gated.
func RequiresPrescription(cart []models.CartItem) bool {
	for _, item := range cart {
		if item.RequiresPrescription {
			return true
		}
	}
	return false
}

// OrderItems maps cart lines to order lines, attaching the prescription
// file reference to every prescription-gated line.
func OrderItems(cart []models.CartItem, prescriptionFile string) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(cart))
	for _, item := range cart {
		line := models.OrderItem{
			MedicineID: item.MedicineID,
			Quantity:   item.Quantity,
		}
		if item.RequiresPrescription {
			line.PrescriptionFile = prescriptionFile
		}
		items = append(items, line)
	}
	return items
}

// RenderCart formats the cart as numbered lines with per-line and grand
// totals at two decimals.
func RenderCart(cart []models.CartItem) string {
	var b strings.Builder
	b.WriteString("🛒 *Your Cart*\n\n")
	for i, item := range cart {
		lineTotal := item.UnitPrice * float64(item.Quantity)
		fmt.Fprintf(&b, "%d. %s x%d = ₹%.2f\n", i+1, item.Name, item.Quantity, lineTotal)
	}
	fmt.Fprintf(&b, "\n💵 *Total: ₹%.2f*", CartTotal(cart))
	return b.String()
}
