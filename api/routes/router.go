package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/commission-engine/api/controllers"
	depositcontrollers "github.com/angelmondragon/commission-engine/api/controllers/deposits"
	ratecontrollers "github.com/angelmondragon/commission-engine/api/controllers/rates"
	usercontrollers "github.com/angelmondragon/commission-engine/api/controllers/users"
	"github.com/angelmondragon/commission-engine/api/middleware"
	internaldeposits "github.com/angelmondragon/commission-engine/internal/deposits"
	"github.com/angelmondragon/commission-engine/internal/distributions"
	"github.com/angelmondragon/commission-engine/pkg/config"
	"github.com/angelmondragon/commission-engine/pkg/db"
	"github.com/angelmondragon/commission-engine/pkg/logger"
	"github.com/angelmondragon/commission-engine/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	metricsHandler http.Handler,
	depositFinder depositcontrollers.DepositFinder,
	engine internaldeposits.Distributor,
	distributionService distributions.Service,
	directory usercontrollers.Directory,
	resolver usercontrollers.UplineResolver,
	assetReader usercontrollers.AssetReader,
	rateSource ratecontrollers.Source,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": dbP,
			"redis":    redisP,
		}))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/deposits/{depositId}", func(r chi.Router) {
			r.Post("/distribute", depositcontrollers.Distribute(depositFinder, engine, cfg.Commission.DistributeTimeout, logg))
			r.Get("/distributions", depositcontrollers.Distributions(distributionService, logg))
		})

		r.Route("/users/{userId}", func(r chi.Router) {
			r.Get("/distributions", usercontrollers.Distributions(distributionService, logg))
			r.Get("/distributions/summary", usercontrollers.Summary(distributionService, logg))
			r.Get("/upline", usercontrollers.Upline(directory, resolver, logg))
			r.Get("/assets", usercontrollers.Assets(directory, assetReader, logg))
		})

		r.Route("/commission/rates", func(r chi.Router) {
			r.Get("/", ratecontrollers.List(rateSource, logg))
			r.Post("/reload", ratecontrollers.Reload(rateSource, logg))
		})
	})

	return r
}
