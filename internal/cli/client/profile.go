package client

import "context"

// Profile is the account profile served by /auth/me
type Profile struct {
	ID          string `json:"id,omitempty"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Age         int    `json:"age,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Location    string `json:"location,omitempty"`
}

// ChangePasswordRequest represents the password change request body
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// GetProfile returns the profile of the signed-in user
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := c.Get(ctx, "/auth/me", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile saves the editable profile fields and returns the stored profile
func (c *Client) UpdateProfile(ctx context.Context, profile Profile) (*Profile, error) {
	var updated Profile
	if err := c.Put(ctx, "/auth/me", profile, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ChangePassword changes the password of the signed-in user
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	return c.Post(ctx, "/auth/change-password", ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	}, nil)
}
