package handlers

import (
	"time"

	"freshcart/internal/services/auth"
	"freshcart/internal/services/customer"
	"freshcart/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// cookieJar writes the session cookies. Secure is set in production only
// so local development works over plain HTTP.
type cookieJar struct {
	secure bool
}

func (j cookieJar) set(c *fiber.Ctx, name, value, path string, expires time.Time, httpOnly bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expires,
		HTTPOnly: httpOnly,
		Secure:   j.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// clear expires a cookie. Path must match the one it was set with.
func (j cookieJar) clear(c *fiber.Ctx, name, path string, httpOnly bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: httpOnly,
		Secure:   j.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (j cookieJar) setShopSession(c *fiber.Ctx, s *auth.Session) {
	j.set(c, utils.CookieAccess, s.AccessToken, "/", s.AccessExpires, true)
	j.set(c, utils.CookieRefresh, s.RefreshToken, utils.ShopRefreshPath, s.RefreshExpires, true)
	// Read by the dashboard to greet the owner.
	j.set(c, utils.CookieUserName, s.Name, "/", s.RefreshExpires, false)
}

func (j cookieJar) clearShopSession(c *fiber.Ctx) {
	j.clear(c, utils.CookieAccess, "/", true)
	j.clear(c, utils.CookieRefresh, utils.ShopRefreshPath, true)
	j.clear(c, utils.CookieUserName, "/", false)
}

func (j cookieJar) setCustomerSession(c *fiber.Ctx, s *customer.Session) {
	j.set(c, utils.CookieCustAccess, s.AccessToken, "/", s.AccessExpires, true)
	j.set(c, utils.CookieCustRefresh, s.RefreshToken, utils.CustomerRefreshPath, s.RefreshExpires, true)
}

func (j cookieJar) clearCustomerSession(c *fiber.Ctx) {
	j.clear(c, utils.CookieCustAccess, "/", true)
	j.clear(c, utils.CookieCustRefresh, utils.CustomerRefreshPath, true)
}
