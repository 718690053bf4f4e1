package controllers

import (
	"net/http"

	"github.com/lacocina/comanda/app/services"
	"github.com/lacocina/comanda/pkg/bind"
	"github.com/lacocina/comanda/pkg/response"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// Register creates an account and returns a token pair.
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput
	if errs, err := bind.JSON(r, &input); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	pair, err := c.auth.Register(input)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Created(w, pair)
}

// Login checks credentials and returns a token pair. Bad credentials
// are always a 401, whatever the underlying cause.
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	if errs, err := bind.JSON(r, &input); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	pair, err := c.auth.Login(input)
	if err != nil {
		if services.KindOf(err) == services.KindInvalid {
			response.Unauthorized(w)
			return
		}
		fail(w, r, err)
		return
	}
	response.Success(w, pair)
}
