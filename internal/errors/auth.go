package errors

// Shared failures. Callers add lock state with WithLock, which copies.
var (
	ErrInvalidBody = Validation("INVALID_BODY", "Invalid request body")

	ErrInvalidCredentials = Authentication("INVALID_CREDENTIALS", "Invalid email or password")
	ErrInvalidLogin       = Authentication("INVALID_LOGIN", "Invalid login details")
	ErrAccountLocked      = Authentication("ACCOUNT_LOCKED", "Too many failed attempts. Account locked.")

	ErrIPInvalid     = Authorization("IP_INVALID", "IP invalid, device blocked")
	ErrDeviceBlocked = Authorization("DEVICE_BLOCKED", "This device has been blocked")
	ErrDeviceLocked  = Authorization("DEVICE_LOCKED", "This device is temporarily locked")
	ErrLocked        = Authorization("LOCKED", "Account is temporarily locked")
	ErrBlocked       = Authorization("BLOCKED", "Account has been blocked")

	ErrOTPExpired    = Authentication("OTP_EXPIRED", "OTP has expired")
	ErrOTPInvalid    = Validation("OTP_INVALID", "Invalid OTP")
	ErrOTPExhausted  = Authentication("OTP_EXHAUSTED", "Too many invalid OTP attempts. Please log in again.")
	ErrNoOTPRequest  = Authentication("NO_OTP_REQUEST", "No active OTP request")
	ErrResendTooSoon = RateLimit("OTP_RESEND_COOLDOWN", "Please wait before requesting another OTP")

	ErrInvalidRefresh = Authentication("INVALID_REFRESH_TOKEN", "Invalid or expired refresh token")
	ErrNoRefresh      = Authentication("NO_REFRESH_TOKEN", "Refresh token not provided")
	ErrUnauthorized   = Authentication("UNAUTHORIZED", "Unauthorized")
	ErrInvalidLink    = Authentication("INVALID_LINK", "This link is invalid or has expired")

	ErrAccountExists     = Conflict("ACCOUNT_EXISTS", "An account with this email or phone already exists")
	ErrGoogleAccount     = Validation("GOOGLE_ACCOUNT", "This account uses Google sign-in. Please continue with Google.")
	ErrGoogleToken       = Authentication("INVALID_GOOGLE_TOKEN", "Google sign-in could not be verified")
	ErrEmailNotVerified  = Validation("EMAIL_NOT_VERIFIED", "Google account email is not verified")
	ErrWrongPassword     = Authentication("WRONG_PASSWORD", "Current password is incorrect")
	ErrPasswordUnchanged = Validation("PASSWORD_UNCHANGED", "New password must differ from the current one")
	ErrNoPassword        = Validation("NO_PASSWORD", "This account has no password")
	ErrChangeTooSoon     = RateLimit("PASSWORD_CHANGE_COOLDOWN", "Password was changed recently. Please try again later.")
)
