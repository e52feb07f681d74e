package http

import (
	"github.com/go-identity-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-identity-api/internal/infrastructure/jwt"
	"github.com/go-identity-api/internal/notify"
	"github.com/go-identity-api/internal/pkg/token"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    *dynamo.UserRepo
	SessionRepo *dynamo.SessionRepo
	Dispatcher  *notify.Dispatcher
	Tokens      *token.Generator
	JWTProvider *jwtinfra.Provider
}
