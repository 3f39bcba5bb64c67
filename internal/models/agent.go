package models

type Agent struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone"`
	Agency        string   `json:"agency"`
	Bio           string   `json:"bio"`
	Specialty     string   `json:"specialty"`
	Rating        *float64 `json:"rating"`
	ListingsCount int      `json:"listingsCount"`
	ImageURL      string   `json:"imageUrl"`
}

type NewAgent struct {
	Name          string   `json:"name" validate:"required"`
	Email         string   `json:"email" validate:"required,email"`
	Phone         string   `json:"phone" validate:"required"`
	Agency        string   `json:"agency"`
	Bio           string   `json:"bio"`
	Specialty     string   `json:"specialty"`
	Rating        *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
	ListingsCount int      `json:"listingsCount" validate:"gte=0"`
	ImageURL      string   `json:"imageUrl"`
}

func (n NewAgent) Build(id int64) Agent {
	return Agent{
		ID:            id,
		Name:          n.Name,
		Email:         n.Email,
		Phone:         n.Phone,
		Agency:        n.Agency,
		Bio:           n.Bio,
		Specialty:     n.Specialty,
		Rating:        cloneFloat(n.Rating),
		ListingsCount: n.ListingsCount,
		ImageURL:      n.ImageURL,
	}
}

// Location is a named area shown as a search suggestion.
type Location struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	City            string `json:"city"`
	PropertiesCount int    `json:"propertiesCount"`
}

type NewLocation struct {
	Name            string `json:"name" validate:"required"`
	City            string `json:"city"`
	PropertiesCount int    `json:"propertiesCount" validate:"gte=0"`
}

func (n NewLocation) Build(id int64) Location {
	return Location{ID: id, Name: n.Name, City: n.City, PropertiesCount: n.PropertiesCount}
}
