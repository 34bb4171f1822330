package utils

// Session cookie names. Refresh cookies are scoped to the secure route
// groups so browsers only send them to the rotation and logout endpoints.
const (
	CookieAccess      = "accessToken"
	CookieRefresh     = "refreshToken"
	CookieUserName    = "userName"
	CookieCustAccess  = "custAccessToken"
	CookieCustRefresh = "custRefreshToken"

	ShopRefreshPath     = "/api/auth/secure"
	CustomerRefreshPath = "/api/custAuth/secure"
)
