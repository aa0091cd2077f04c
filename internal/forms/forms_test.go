package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegister() RegisterForm {
	return RegisterForm{
		Email:           "ada@example.com",
		Password:        "Secret123",
		ConfirmPassword: "Secret123",
		Username:        "ada_obi",
		FullName:        "Ada Obi",
		PhoneNumber:     "+234 (803) 123-4567",
		Age:             29,
		Gender:          "female",
		Location:        "Lagos",
	}
}

func TestValidate_LoginForm(t *testing.T) {
	assert.NoError(t, Validate(&LoginForm{Email: "demo@healthpal.ng", Password: "demo123"}))

	err := Validate(&LoginForm{Email: "not-an-email", Password: "abc"})
	require.Error(t, err)

	verrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, "Please enter a valid email address", verrs.For("email"))
	assert.Equal(t, "Password must be at least 6 characters", verrs.For("password"))

	err = Validate(&LoginForm{})
	require.Error(t, err)
	assert.Equal(t, "Email is required", err.(ValidationErrors).For("email"))
}

func TestValidate_RegisterForm(t *testing.T) {
	form := validRegister()
	require.NoError(t, Validate(&form))

	// Age is optional
	form.Age = 0
	require.NoError(t, Validate(&form))

	// Twenty characters is the longest accepted username
	form.Username = "abcdefghijklmnopqrst"
	require.NoError(t, Validate(&form))

	tests := []struct {
		name    string
		mutate  func(*RegisterForm)
		field   string
		message string
	}{
		{"weak password", func(f *RegisterForm) { f.Password, f.ConfirmPassword = "alllowercase1", "alllowercase1" }, "password",
			"Password must contain at least one uppercase letter, one lowercase letter, and one number"},
		{"short password", func(f *RegisterForm) { f.Password, f.ConfirmPassword = "Ab1", "Ab1" }, "password",
			"Password must be at least 8 characters"},
		{"mismatch", func(f *RegisterForm) { f.ConfirmPassword = "Secret124" }, "confirmPassword", "Passwords don't match"},
		{"username chars", func(f *RegisterForm) { f.Username = "ada-obi" }, "username",
			"Username can only contain letters, numbers, and underscores"},
		{"username too long", func(f *RegisterForm) { f.Username = "abcdefghijklmnopqrstu" }, "username",
			"Username must be less than 20 characters"},
		{"phone letters", func(f *RegisterForm) { f.PhoneNumber = "0803-CALL-ME" }, "phoneNumber", "Please enter a valid phone number"},
		{"too young", func(f *RegisterForm) { f.Age = 12 }, "age", "You must be at least 13 years old"},
		{"bad gender", func(f *RegisterForm) { f.Gender = "unknown" }, "gender", "Please select your gender"},
		{"short location", func(f *RegisterForm) { f.Location = "L" }, "location", "Please enter your location"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validRegister()
			tt.mutate(&form)

			err := Validate(&form)
			require.Error(t, err)
			assert.Equal(t, tt.message, err.(ValidationErrors).For(tt.field))
		})
	}
}

func TestValidate_PasswordChange(t *testing.T) {
	assert.NoError(t, Validate(&PasswordChangeForm{
		CurrentPassword: "demo123",
		NewPassword:     "Better123",
		ConfirmPassword: "Better123",
	}))

	err := Validate(&PasswordChangeForm{NewPassword: "Better123", ConfirmPassword: "Better12"})
	require.Error(t, err)
	verrs := err.(ValidationErrors)
	assert.Equal(t, "Current password is required", verrs.For("currentPassword"))
	assert.Equal(t, "Passwords don't match", verrs.For("confirmPassword"))
}

func TestInRange(t *testing.T) {
	assert.True(t, inRange("1", "1-120"))
	assert.True(t, inRange(" 120 ", "1-120"))
	assert.False(t, inRange("0", "1-120"))
	assert.False(t, inRange("12.5", "0-10"))
	assert.False(t, inRange("abc", "0-10"))
	assert.False(t, inRange("5", "bad"))
}

func TestValidateField(t *testing.T) {
	assert.NoError(t, ValidateField(LoginForm{}, "email", "ada@example.com"))
	assert.EqualError(t, ValidateField(LoginForm{}, "email", "ada"), "Please enter a valid email address")
	assert.EqualError(t, ValidateField(LoginForm{}, "password", "12345"), "Password must be at least 6 characters")

	// Other fields keep the values already collected
	partial := RegisterForm{Password: "Secret123"}
	assert.NoError(t, ValidateField(partial, "confirmPassword", "Secret123"))
	assert.EqualError(t, ValidateField(partial, "confirmPassword", "Secret12"), "Passwords don't match")

	assert.NoError(t, ValidateField(RegisterForm{}, "age", ""))
	assert.EqualError(t, ValidateField(RegisterForm{}, "age", "12"), "You must be at least 13 years old")
	assert.EqualError(t, ValidateField(RegisterForm{}, "age", "twelve"), "age must be a number")

	assert.Error(t, ValidateField(LoginForm{}, "nope", "x"))
}
