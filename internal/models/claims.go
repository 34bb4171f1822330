package models

import "github.com/golang-jwt/jwt/v5"

// Principal is the kind of account a token belongs to.
type Principal string

const (
	PrincipalShopOwner Principal = "shop_owner"
	PrincipalCustomer  Principal = "customer"
)

// Purpose separates session tokens from single-use link tokens.
type Purpose string

const (
	PurposeAccess      Purpose = "access"
	PurposeRefresh     Purpose = "refresh"
	PurposeBlock       Purpose = "block"
	PurposeVerifyEmail Purpose = "verify_email"
)

// AuthClaims are carried by every JWT the service issues. Subject is the
// store id for shop owners and the numeric id for customers; ID is the jti.
type AuthClaims struct {
	jwt.RegisteredClaims
	Principal Principal `json:"principal"`
	Purpose   Purpose   `json:"purpose"`
	Name      string    `json:"name,omitempty"`
}
