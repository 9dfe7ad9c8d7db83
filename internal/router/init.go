package router

import (
	appuser "github.com/clearsolutions/users-api/internal/application"
	"github.com/clearsolutions/users-api/internal/container"
	repouser "github.com/clearsolutions/users-api/internal/domain/repository"
	pginfra "github.com/clearsolutions/users-api/internal/infrastructure/postgres"
	handlers "github.com/clearsolutions/users-api/internal/interface/http"
	usermodule "github.com/clearsolutions/users-api/internal/router/modules"
	"github.com/clearsolutions/users-api/pkg/validation"
)

type UserModuleDeps struct {
	Repo    repouser.UserRepository
	Service *appuser.Service
	Handler *handlers.UserHandler
}

func buildUserDeps() UserModuleDeps {
	repo := pginfra.NewUserRepository(container.GetPGPool())

	validator := validation.New(container.GetConfig().MinUserAge, container.GetClock())

	service := appuser.NewService(
		repo,
		validator,
		container.GetLogger(),
	)

	handler := handlers.NewUserHandler(
		service,
		container.GetLogger(),
		container.GetClock(),
	)

	return UserModuleDeps{
		Repo:    repo,
		Service: service,
		Handler: handler,
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	userDeps := buildUserDeps()
	r.Add(usermodule.New(userDeps.Handler))
}
