package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"salescore/internal/auth"
	"salescore/internal/domain/users"
	"salescore/internal/domainerrors"
)

type registerUserPayload struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

func (app *application) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var payload registerUserPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}

	if _, err := app.store.Users.GetByEmail(r.Context(), payload.Email); err == nil {
		app.writeError(w, r, domainerrors.New(domainerrors.Conflict, "a user with this email already exists"))
		return
	} else if err != users.ErrNotFound {
		app.writeError(w, r, err)
		return
	}

	user, err := app.store.Users.CreateAccount(r.Context(), payload.Email, payload.FirstName, payload.LastName, payload.Password)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusCreated, user)
}

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (app *application) issueTokenPair(ctx context.Context, user *users.User) (*tokenPair, error) {
	refreshJTI := uuid.NewString()
	access, refresh, err := app.authenticator.GenerateTokens(user.ID, adminRole(user), refreshJTI)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	expiresAt := time.Now().UTC().Add(app.config.Auth.RefreshTokenExpire)
	hash := auth.HashRefreshToken(refresh)
	if err := app.store.RefreshSessions.Upsert(ctx, user.ID, hash, refreshJTI, expiresAt); err != nil {
		return nil, fmt.Errorf("persist refresh session: %w", err)
	}
	return &tokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func adminRole(user *users.User) string {
	if user.IsAdmin {
		return "admin"
	}
	return "customer"
}

func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}

	user, err := app.store.Users.GetByEmail(r.Context(), payload.Email)
	if err != nil {
		app.writeError(w, r, domainerrors.New(domainerrors.Unauthorized, "invalid email or password"))
		return
	}
	if !app.store.Users.VerifyPassword(user, payload.Password) {
		app.writeError(w, r, domainerrors.New(domainerrors.Unauthorized, "invalid email or password"))
		return
	}

	pair, err := app.issueTokenPair(r.Context(), user)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, pair)
}

// refreshHandler expects the refresh token itself as a bearer token (per
// the spec's "bearer refresh" auth column), not the access token.
func (app *application) refreshHandler(w http.ResponseWriter, r *http.Request) {
	presented := app.getAccessToken(r)
	if presented == "" {
		app.writeError(w, r, errUnauthorized("missing bearer refresh token"))
		return
	}

	jwtToken, err := app.authenticator.ValidateRefreshToken(presented)
	if err != nil {
		app.writeError(w, r, errUnauthorized("invalid refresh token"))
		return
	}
	claims, ok := jwtToken.Claims.(jwt.MapClaims)
	if !ok {
		app.writeError(w, r, errUnauthorized("invalid claims"))
		return
	}
	if typ, _ := claims["typ"].(string); typ != "refresh" {
		app.writeError(w, r, errUnauthorized("token is not a refresh token"))
		return
	}
	userID, err := subjectUserID(claims)
	if err != nil {
		app.writeError(w, r, errUnauthorized("invalid subject"))
		return
	}

	session, err := app.store.RefreshSessions.GetByUserID(r.Context(), userID)
	if err != nil {
		app.writeError(w, r, errUnauthorized("refresh session not found"))
		return
	}
	if !auth.TokensMatch(presented, session.TokenHash) {
		app.writeError(w, r, errUnauthorized("refresh token does not match active session"))
		return
	}
	if time.Now().UTC().After(session.ExpiresAt) {
		app.writeError(w, r, errUnauthorized("refresh token expired"))
		return
	}

	user, err := app.store.Users.GetByID(r.Context(), userID)
	if err != nil {
		app.writeError(w, r, errUnauthorized("user not found"))
		return
	}

	pair, err := app.issueTokenPair(r.Context(), user)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, pair)
}

func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	presented := app.getAccessToken(r)
	if presented == "" {
		app.writeError(w, r, errUnauthorized("missing bearer refresh token"))
		return
	}
	jwtToken, err := app.authenticator.ValidateRefreshToken(presented)
	if err != nil {
		app.writeError(w, r, errUnauthorized("invalid refresh token"))
		return
	}
	claims, ok := jwtToken.Claims.(jwt.MapClaims)
	if !ok {
		app.writeError(w, r, errUnauthorized("invalid claims"))
		return
	}
	userID, err := subjectUserID(claims)
	if err != nil {
		app.writeError(w, r, errUnauthorized("invalid subject"))
		return
	}

	if err := app.store.RefreshSessions.DeleteByUserID(r.Context(), userID); err != nil {
		app.writeError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, map[string]bool{"logged_out": true})
}
