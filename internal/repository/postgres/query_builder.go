package postgres

import (
	"fmt"
	"strings"

	"property-search/internal/models"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildWhere renders the criteria as AND-ed predicates with positional arguments. It
// yields the same result set as search.Filter.
func buildWhere(c models.SearchCriteria) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if c.Purpose != nil {
		switch *c.Purpose {
		case models.SearchBuy:
			conds = append(conds, "purpose = "+arg(models.PurposeSale))
		case models.SearchRent:
			conds = append(conds, "purpose = "+arg(models.PurposeRent))
		case models.SearchCommercial:
			conds = append(conds, fmt.Sprintf("type IN (%s, %s, %s)",
				arg(string(models.TypeOffice)), arg(string(models.TypeShop)), arg(string(models.TypeWarehouse))))
		default:
			conds = append(conds, "FALSE")
		}
	}
	if c.PropertyType != nil {
		conds = append(conds, "LOWER(type) = LOWER("+arg(strings.TrimSpace(*c.PropertyType))+")")
	}
	if c.LocationText != nil {
		p := arg("%" + likeEscaper.Replace(strings.TrimSpace(*c.LocationText)) + "%")
		conds = append(conds, fmt.Sprintf("(location ILIKE %s OR neighborhood ILIKE %s)", p, p))
	}
	if c.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*c.MinPrice))
	}
	if c.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*c.MaxPrice))
	}
	// NULL comparisons are never true, so missing counts fail a populated minimum.
	// Counts are INTEGER columns; the cast keeps fractional minimums like 1.5 valid.
	if c.MinBedrooms != nil {
		conds = append(conds, "bedrooms >= "+arg(*c.MinBedrooms)+"::double precision")
	}
	if c.MinBathrooms != nil {
		conds = append(conds, "bathrooms >= "+arg(*c.MinBathrooms)+"::double precision")
	}
	if c.MinArea != nil {
		conds = append(conds, "area >= "+arg(*c.MinArea))
	}
	if c.MaxArea != nil {
		conds = append(conds, "area <= "+arg(*c.MaxArea))
	}

	return strings.Join(conds, " AND "), args
}
