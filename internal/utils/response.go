package utils

import (
	apperrors "freshcart/internal/errors"

	"github.com/gofiber/fiber/v2"
)

// Respond sends a JSON response with the specified status code.
func Respond(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(data)
}

// Success sends a successful JSON response.
func Success(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusOK, data)
}

// Message sends {"message": msg} with status 200.
func Message(c *fiber.Ctx, msg string) error {
	return Success(c, fiber.Map{"message": msg})
}

// Created sends a JSON response with status 201.
func Created(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusCreated, data)
}

// AppError writes the client-safe form of e. Lock flags are included
// whenever the error carries lock state, even if nothing is locked yet.
func AppError(c *fiber.Ctx, e *apperrors.AppError) error {
	body := fiber.Map{
		"error": e.Message,
		"code":  e.Code,
	}
	if e.HasLockState() {
		body["locked"] = e.Locked
		body["blocked"] = e.Blocked
		body["lockUntil"] = e.LockUntil
	}
	if e.RetryAt != nil {
		body["retryAt"] = e.RetryAt
	}
	return Respond(c, e.Status(), body)
}
