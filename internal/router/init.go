package router

import (
	appuser "github.com/oksasatya/go-ddd-users-api/internal/application"
	"github.com/oksasatya/go-ddd-users-api/internal/container"
	repouser "github.com/oksasatya/go-ddd-users-api/internal/domain/repository"
	esinfra "github.com/oksasatya/go-ddd-users-api/internal/infrastructure/elasticsearch"
	handlers "github.com/oksasatya/go-ddd-users-api/internal/interface/http"
	"github.com/oksasatya/go-ddd-users-api/internal/router/modules"
)

type UserModuleDeps struct {
	Repo    repouser.UserRepository
	Service *appuser.Service
	Handler *handlers.UserHandler
}

func buildUserDeps() UserModuleDeps {
	cfg := container.GetConfig()
	repo := container.GetUserRepository()

	// Only non-nil side channels go into the interfaces, a typed nil would not compare equal to nil.
	var pub appuser.EventPublisher
	if p := container.GetRabbitPub(); p != nil {
		pub = p
	}
	var idx appuser.SearchIndex
	if es := container.GetES(); es != nil {
		idx = esinfra.NewUserIndex(es, cfg.ESUsersIndex)
	}

	service := appuser.NewService(
		repo,
		container.GetLogger(),
		pub,
		idx,
		appuser.ParsePatchMode(cfg.UserPatchMode),
	)

	handler := handlers.NewUserHandler(service, container.GetLogger())

	return UserModuleDeps{
		Repo:    repo,
		Service: service,
		Handler: handler,
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	userDeps := buildUserDeps()
	r.Add(modules.NewUserModule(userDeps.Handler, cfg.RateLimitPerMinute, cfg.RateLimitBypassPrivate))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(container.GetMetrics()))
	}
}
