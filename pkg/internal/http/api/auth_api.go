package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/luner-app/luner/pkg/internal/auth"
	"github.com/luner-app/luner/pkg/internal/http/exts"
)

func signUp(c *fiber.Ctx) error {
	var data struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	token, err := gateway.Auth.SignUp(c.UserContext(), data.Email, data.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(fiber.Map{
		"token": token,
	})
}

func signIn(c *fiber.Ctx) error {
	var data struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	token, err := gateway.Auth.SignIn(c.UserContext(), data.Email, data.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	}

	return c.JSON(fiber.Map{
		"token": token,
	})
}

func signOut(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	if err := gateway.Auth.SignOut(c.UserContext()); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	gateway.Hub.Drop(engines.Session.Email())

	return c.SendStatus(fiber.StatusOK)
}

func changePassword(c *fiber.Ctx) error {
	var data struct {
		NewPassword string `json:"newPassword" validate:"required,min=6"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	engines := sessionFrom(c)
	var err error
	if admin, ok := gateway.Auth.(auth.AccountAdmin); ok {
		err = admin.ChangePasswordFor(c.UserContext(), engines.Session.Email(), data.NewPassword)
	} else {
		err = gateway.Auth.ChangePassword(c.UserContext(), data.NewPassword)
	}
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.SendStatus(fiber.StatusOK)
}

func deleteAccount(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	var err error
	if admin, ok := gateway.Auth.(auth.AccountAdmin); ok {
		err = admin.DeleteAccountFor(c.UserContext(), engines.Session.Email())
	} else {
		err = gateway.Auth.DeleteAccount(c.UserContext())
	}
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	gateway.Hub.Drop(engines.Session.Email())

	return c.SendStatus(fiber.StatusOK)
}
