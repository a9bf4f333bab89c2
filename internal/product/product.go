package product

import (
	"strings"

	"github.com/wichananm65/storefront/internal/form"
)

// Product is one entry of the remote product list. JSON tags follow the
// remote API's field names.
type Product struct {
	ID          string   `json:"_id"`
	Name        string   `json:"p_name"`
	Description string   `json:"p_description"`
	Images      []string `json:"image"`
}

// Draft is the add/edit product form after parsing.
type Draft struct {
	Name        string
	Description string
	Images      []form.Attachment
}

// DraftSchema holds the add/edit product form rules.
var DraftSchema = form.Schema{
	{Name: "p_name", Rules: []form.Rule{
		form.Required(),
		{Tag: "min=3", Message: "Product name must be at least 3 characters"},
	}},
	{Name: "p_description", Rules: []form.Rule{form.Required()}},
}

// DraftFromValues builds a Draft from submitted text values.
func DraftFromValues(values map[string]string) Draft {
	return Draft{
		Name:        strings.TrimSpace(values["p_name"]),
		Description: strings.TrimSpace(values["p_description"]),
	}
}

// Values returns the form values of an existing product, for prefilling.
func (p Product) Values() map[string]string {
	return map[string]string{
		"p_name":        p.Name,
		"p_description": p.Description,
	}
}
