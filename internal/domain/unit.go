package domain

import "strings"

type Unit string

const (
	UnitKilogram   Unit = "kg"
	UnitGram       Unit = "g"
	UnitLiter      Unit = "l"
	UnitMilliliter Unit = "ml"
	UnitPiece      Unit = "unit"
)

var Units = []Unit{UnitKilogram, UnitGram, UnitLiter, UnitMilliliter, UnitPiece}

var unitAliases = map[string]Unit{
	"kg":          UnitKilogram,
	"g":           UnitGram,
	"grams":       UnitGram,
	"l":           UnitLiter,
	"ml":          UnitMilliliter,
	"milliliters": UnitMilliliter,
	"unit":        UnitPiece,
}

// ParseUnit accepts the canonical symbols and the long spellings recipes were
// historically saved with ("grams", "milliliters").
func ParseUnit(s string) (Unit, bool) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]
	return u, ok
}

func (u Unit) Valid() bool {
	_, ok := ParseUnit(string(u))
	return ok
}

func (u Unit) Label() string {
	switch u {
	case UnitKilogram:
		return "kilogramos"
	case UnitGram:
		return "gramos"
	case UnitLiter:
		return "litros"
	case UnitMilliliter:
		return "mililitros"
	case UnitPiece:
		return "unidad"
	}
	return string(u)
}

func sameUnit(a, b string) bool {
	ua, ok := unitAliases[a]
	if !ok {
		return false
	}
	ub, ok := unitAliases[b]
	return ok && ua == ub
}

func isGram(s string) bool       { return s == "g" || s == "grams" }
func isMilliliter(s string) bool { return s == "ml" || s == "milliliters" }

// ConvertCost prices quantity (expressed in recipeUnit) using an ingredient
// priced at ingredientUnitCost per ingredientUnit.
func ConvertCost(quantity float64, recipeUnit, ingredientUnit string, ingredientUnitCost float64) float64 {
	cost, _ := Conversion(quantity, recipeUnit, ingredientUnit, ingredientUnitCost)
	return cost
}

// Conversion is ConvertCost plus a flag that is false when the units differ and
// no conversion is known. In that case the quantity is priced 1:1.
func Conversion(quantity float64, recipeUnit, ingredientUnit string, ingredientUnitCost float64) (float64, bool) {
	r := strings.ToLower(recipeUnit)
	i := strings.ToLower(ingredientUnit)

	switch {
	case r == i:
		return quantity * ingredientUnitCost, true
	case sameUnit(r, i):
		return quantity * ingredientUnitCost, true
	case i == "kg" && isGram(r), i == "l" && isMilliliter(r):
		return quantity * (ingredientUnitCost / 1000), true
	case isGram(i) && r == "kg":
		return quantity * (ingredientUnitCost * 1000), true
	}
	return quantity * ingredientUnitCost, false
}
