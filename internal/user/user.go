package user

import "github.com/wichananm65/storefront/internal/form"

// Registration is one submitted registration form.
type Registration struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
	ProfilePic      *form.Attachment
}

// RegistrationSchema holds the registration rules. Password and
// confirmPassword are not compared with each other.
var RegistrationSchema = form.Schema{
	{Name: "name", Rules: []form.Rule{
		form.Required(),
		{Tag: "min=3", Message: "Name must be at least 3 characters"},
	}},
	{Name: "email", Rules: []form.Rule{
		form.Required(),
		{Tag: "email", Message: "Email Pattern should be xyz@gmail.com"},
	}},
	{Name: "phone", Rules: []form.Rule{
		form.Required(),
		{Tag: "len=10", Message: "Phone must be 10 characters"},
	}},
	{Name: "password", Raw: true, Rules: []form.Rule{
		form.Required(),
		{Tag: "min=8", Message: "Password must be 8 characters"},
	}},
	{Name: "confirmPassword", Raw: true, Rules: []form.Rule{
		form.Required(),
		{Tag: "min=8", Message: "Confirm Password must be 8 characters"},
	}},
}

// Values returns the text fields keyed by form field name.
func (r Registration) Values() map[string]string {
	return map[string]string{
		"name":            r.Name,
		"email":           r.Email,
		"phone":           r.Phone,
		"password":        r.Password,
		"confirmPassword": r.ConfirmPassword,
	}
}

// Redisplay is Values without the secrets, for re-rendering the form.
func (r Registration) Redisplay() map[string]string {
	v := r.Values()
	delete(v, "password")
	delete(v, "confirmPassword")
	return v
}

// Credentials is one submitted login form.
type Credentials struct {
	Email    string
	Password string
}

var CredentialsSchema = form.Schema{
	{Name: "email", Rules: []form.Rule{
		form.Required(),
		{Tag: "email", Message: "Email Pattern should be xyz@gmail.com"},
	}},
	{Name: "password", Raw: true, Rules: []form.Rule{form.Required()}},
}

func (c Credentials) Values() map[string]string {
	return map[string]string{"email": c.Email, "password": c.Password}
}
