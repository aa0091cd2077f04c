package forms

// Genders accepted on registration and profile forms
var Genders = []string{"male", "female", "other", "prefer_not_to_say"}

// LoginForm is the sign-in form
type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RegisterForm is the sign-up form
type RegisterForm struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"min=8,strongpassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
	Username        string `json:"username" validate:"min=3,max=20,username"`
	FullName        string `json:"fullName" validate:"min=2"`
	PhoneNumber     string `json:"phoneNumber" validate:"min=10,phone"`
	Age             int    `json:"age" validate:"omitempty,min=13,max=120"`
	Gender          string `json:"gender" validate:"oneof=male female other prefer_not_to_say"`
	Location        string `json:"location" validate:"min=2"`
}

// ProfileForm is the editable part of the profile
type ProfileForm struct {
	Username    string `json:"username" validate:"min=3,max=20,username"`
	FullName    string `json:"fullName" validate:"min=2"`
	PhoneNumber string `json:"phoneNumber" validate:"min=10,phone"`
	Age         int    `json:"age" validate:"omitempty,min=13,max=120"`
	Gender      string `json:"gender" validate:"oneof=male female other prefer_not_to_say"`
	Location    string `json:"location" validate:"min=2"`
}

// PasswordChangeForm changes the account password
type PasswordChangeForm struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"min=8,strongpassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=NewPassword"`
}

func init() {
	RegisterMessages(map[string]string{
		"email.required":             "Email is required",
		"email.email":                "Please enter a valid email address",
		"password.required":          "Password is required",
		"LoginForm.password.min":     "Password must be at least 6 characters",
		"password.min":               "Password must be at least 8 characters",
		"password.strongpassword":    "Password must contain at least one uppercase letter, one lowercase letter, and one number",
		"confirmPassword.eqfield":    "Passwords don't match",
		"username.min":               "Username must be at least 3 characters",
		"username.max":               "Username must be less than 20 characters",
		"username.username":          "Username can only contain letters, numbers, and underscores",
		"fullName.min":               "Full name must be at least 2 characters",
		"phoneNumber.min":            "Please enter a valid phone number",
		"phoneNumber.phone":          "Please enter a valid phone number",
		"age.min":                    "You must be at least 13 years old",
		"age.max":                    "Please enter a valid age",
		"gender.oneof":               "Please select your gender",
		"location.min":               "Please enter your location",
		"currentPassword.required":   "Current password is required",
		"newPassword.min":            "Password must be at least 8 characters",
		"newPassword.strongpassword": "Password must contain at least one uppercase letter, one lowercase letter, and one number",
	})
}
