package domain

type Address struct {
	ID         string `json:"id,omitempty"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Default    bool   `json:"default"`
}

// Complete reports whether every user-filled field is non-empty.
func (a Address) Complete() bool {
	return a.Street != "" && a.City != "" && a.Province != "" &&
		a.PostalCode != "" && a.Country != ""
}
