package notification

import "html/template"

// Kind names one notification email. It is also the metrics label.
type Kind string

const (
	KindShopVerification     Kind = "shop_verification"
	KindSecondaryCode        Kind = "secondary_code"
	KindOTP                  Kind = "otp"
	KindSecurityAlert        Kind = "security_alert"
	KindAccountBlocked       Kind = "account_blocked"
	KindCustomerVerification Kind = "customer_verification"
	KindPasswordReset        Kind = "password_reset"
	KindPasswordChanged      Kind = "password_changed"
)

type emailTemplate struct {
	subject string
	body    *template.Template
}

const layoutHead = `<!DOCTYPE html><html><body style="font-family:Arial,sans-serif;color:#222">`
const layoutFoot = `<p style="color:#888;font-size:12px">FreshCart</p></body></html>`

func mustParse(name, body string) *template.Template {
	return template.Must(template.New(name).Parse(layoutHead + body + layoutFoot))
}

var templates = map[Kind]emailTemplate{
	KindShopVerification: {
		subject: "Verify your FreshCart store account",
		body: mustParse("shop_verification", `
<p>Hi {{.Name}},</p>
<p>Confirm the email address for store <b>{{.StoreID}}</b> by opening the link below.</p>
<p><a href="{{.Link}}">Verify email</a></p>
<p>The link expires in 24 hours.</p>`),
	},
	KindSecondaryCode: {
		subject: "Your FreshCart store login code",
		body: mustParse("secondary_code", `
<p>Hi {{.Name}},</p>
<p>Your email is verified. Use this code together with your password to sign in to store <b>{{.StoreID}}</b>:</p>
<p style="font-size:20px;letter-spacing:2px"><b>{{.Code}}</b></p>
<p>Keep it private. It is shown only once.</p>`),
	},
	KindOTP: {
		subject: "Your FreshCart one-time password",
		body: mustParse("otp", `
<p>Hi {{.Name}},</p>
<p>Your one-time password is</p>
<p style="font-size:24px;letter-spacing:4px"><b>{{.OTP}}</b></p>
<p>It expires in 5 minutes.</p>
<p>If this wasn't you, <a href="{{.Link}}">block this account now</a>. The link is valid for 10 minutes.</p>`),
	},
	KindSecurityAlert: {
		subject: "Security alert: store account locked",
		body: mustParse("security_alert", `
<p>Store <b>{{.StoreID}}</b> was locked after repeated wrong passwords at {{.At}}.</p>
<p>If the attempts look hostile, <a href="{{.Link}}">block the account</a>. The link is valid for 10 minutes.</p>`),
	},
	KindAccountBlocked: {
		subject: "Your FreshCart store account has been blocked",
		body: mustParse("account_blocked", `
<p>Hi {{.Name}},</p>
<p>Store <b>{{.StoreID}}</b> has been blocked and all sessions were signed out.</p>
<p>Contact support to restore access.</p>`),
	},
	KindCustomerVerification: {
		subject: "Verify your FreshCart email",
		body: mustParse("customer_verification", `
<p>Hi {{.Name}},</p>
<p>Welcome to FreshCart. Please <a href="{{.Link}}">verify your email address</a>.</p>
<p>The link expires in 1 hour.</p>`),
	},
	KindPasswordReset: {
		subject: "Reset your FreshCart password",
		body: mustParse("password_reset", `
<p>Hi {{.Name}},</p>
<p>We received a request to reset your password. <a href="{{.Link}}">Choose a new password</a>.</p>
<p>The link expires in 1 hour. If you didn't ask for this you can ignore this email.</p>`),
	},
	KindPasswordChanged: {
		subject: "Your FreshCart password was changed",
		body: mustParse("password_changed", `
<p>Hi {{.Name}},</p>
<p>Your password was changed and you were signed out on all devices.</p>
<p>If this wasn't you, reset your password immediately.</p>`),
	},
}
