package models

// Request bodies. Tags are checked by the validation package before a
// service is called.

type ShopRegisterRequest struct {
	StoreID   string   `json:"storeId" validate:"required,alphanum,max=64"`
	Name      string   `json:"name" validate:"required,max=120"`
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,strongpassword"`
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

type ShopLoginRequest struct {
	StoreID      string   `json:"storeId" validate:"required,max=64"`
	Code         string   `json:"code" validate:"required,max=128"`
	Password     string   `json:"password" validate:"required,max=72"`
	Latitude     *float64 `json:"latitude" validate:"required,latitude"`
	Longitude    *float64 `json:"longitude" validate:"required,longitude"`
	DeviceID     string   `json:"deviceId" validate:"required_without=BrowserToken,max=128"`
	BrowserToken string   `json:"browserToken" validate:"required_without=DeviceID,max=256"`
}

type ValidateOTPRequest struct {
	StoreID string `json:"storeId" validate:"required,max=64"`
	OTP     string `json:"otp" validate:"required,numeric,len=6"`
}

type StoreIDRequest struct {
	StoreID string `json:"storeId" validate:"required,max=64"`
}

type CustomerRegisterRequest struct {
	FirstName string `json:"firstName" validate:"required,max=80"`
	LastName  string `json:"lastName" validate:"max=80"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,phone"`
	Password  string `json:"password" validate:"required,strongpassword"`
}

type CustomerLoginRequest struct {
	Email    string `json:"email" validate:"required_without=Phone,omitempty,email"`
	Phone    string `json:"phone" validate:"required_without=Email,omitempty,phone"`
	Password string `json:"password" validate:"required,max=72"`
}

type GoogleAuthRequest struct {
	Credential string `json:"credential" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,strongpassword"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,strongpassword"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}
