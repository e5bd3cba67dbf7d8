package router

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/sanjiv-madhavan/go-natours/constants"
	"github.com/sanjiv-madhavan/go-natours/controllers"
	"github.com/sanjiv-madhavan/go-natours/middleware"
)

type Options struct {
	Development     bool
	PhotoDir        string
	RateLimitMax    int64
	RateLimitWindow time.Duration
	// TrustProxy takes the client address from forwarding headers. Without
	// it the limiter keys on the socket address.
	TrustProxy      bool
}

type adapter func(http.Handler) http.Handler

// chain wraps h so that the first adapter runs first.
func chain(h http.Handler, adapters ...adapter) http.Handler {
	for i := len(adapters) - 1; i >= 0; i-- {
		h = adapters[i](h)
	}
	return h
}

// CreateMuxRouter wires every route. API routes live under one rate limited
// subrouter; view routes render HTML and share the session cookie.
func CreateMuxRouter(c *controllers.Controller, mw *middleware.Middleware, opts Options) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = mw.Instrument(mw.NotFoundHandler())
	r.MethodNotAllowedHandler = mw.Instrument(mw.NotFoundHandler())
	r.Use(mw.Instrument)

	r.HandleFunc("/v1/healthz", c.HealthCheckHandler).Methods(http.MethodGet)
	r.Handle("/metrics", mw.Metrics().Handler()).Methods(http.MethodGet)
	if opts.PhotoDir != "" {
		r.PathPrefix("/img/users/").Handler(http.StripPrefix("/img/users/", http.FileServer(http.Dir(opts.PhotoDir))))
	}

	api := r.PathPrefix("/api").Subrouter()
	if opts.RateLimitMax > 0 {
		api.Use(mw.RateLimit(opts.RateLimitMax, opts.RateLimitWindow))
	}
	tourRoutes(api, c, mw)
	userRoutes(api, c, mw)
	reviewRoutes(api, "/v1/reviews", c, mw)
	reviewRoutes(api, "/v1/tours/{"+constants.ParamTourID+"}/reviews", c, mw)

	viewRoutes(r, c, mw)

	var h http.Handler = r
	if opts.Development {
		h = handlers.LoggingHandler(os.Stdout, h)
	}
	h = mw.PanicRecoveryHandler(h)
	h = mw.RequestContext(h)
	h = handlers.CompressHandler(h)
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Request-Id"}),
	)(h)
	if opts.TrustProxy {
		h = handlers.ProxyHeaders(h)
	}
	return h
}

func tourRoutes(api *mux.Router, c *controllers.Controller, mw *middleware.Middleware) {
	const base = "/v1/tours"
	staff := []adapter{mw.Protect, mw.RestrictTo(constants.RoleAdmin, constants.RoleLeadGuide)}
	planners := []adapter{mw.Protect, mw.RestrictTo(constants.RoleAdmin, constants.RoleLeadGuide, constants.RoleGuide)}

	api.Handle(base+"/top-5-cheap", chain(c.Handle(c.GetAllTours), c.AliasTopTours)).Methods(http.MethodGet)
	api.Handle(base+"/tour-stats", c.Handle(c.GetTourStats)).Methods(http.MethodGet)
	api.Handle(base+"/monthly-plan/{"+constants.ParamYear+"}", chain(c.Handle(c.GetMonthlyPlan), planners...)).Methods(http.MethodGet)
	api.Handle(base+"/tours-within/{distance}/center/{latlng}/unit/{unit}", c.Handle(c.GetToursWithin)).Methods(http.MethodGet)
	api.Handle(base+"/distances/{latlng}/unit/{unit}", c.Handle(c.GetDistances)).Methods(http.MethodGet)

	api.Handle(base, c.Handle(c.GetAllTours)).Methods(http.MethodGet)
	api.Handle(base, chain(c.Handle(c.CreateTour), staff...)).Methods(http.MethodPost)
	api.Handle(base+"/{id}", c.Handle(c.GetTour)).Methods(http.MethodGet)
	api.Handle(base+"/{id}", chain(c.Handle(c.UpdateTour), staff...)).Methods(http.MethodPatch)
	api.Handle(base+"/{id}", chain(c.Handle(c.DeleteTour), staff...)).Methods(http.MethodDelete)
}

func userRoutes(api *mux.Router, c *controllers.Controller, mw *middleware.Middleware) {
	const base = "/v1/users"
	admin := []adapter{mw.Protect, mw.RestrictTo(constants.RoleAdmin)}

	api.Handle(base+"/signup", c.Handle(c.Signup)).Methods(http.MethodPost)
	api.Handle(base+"/login", c.Handle(c.Login)).Methods(http.MethodPost)
	api.Handle(base+"/logout", c.Handle(c.Logout)).Methods(http.MethodGet)
	api.Handle(base+"/forgotPassword", c.Handle(c.ForgotPassword)).Methods(http.MethodPost)
	api.Handle(base+"/resetPassword/{"+constants.ParamToken+"}", c.Handle(c.ResetPassword)).Methods(http.MethodPatch)

	api.Handle(base+"/updateMyPassword", mw.Protect(c.Handle(c.UpdateMyPassword))).Methods(http.MethodPatch)
	api.Handle(base+"/me", mw.Protect(c.Handle(c.GetMe))).Methods(http.MethodGet)
	api.Handle(base+"/updateMe", mw.Protect(c.Handle(c.UpdateMe))).Methods(http.MethodPatch)
	api.Handle(base+"/deleteMe", mw.Protect(c.Handle(c.DeleteMe))).Methods(http.MethodDelete)

	api.Handle(base+"/revokeSessions", chain(c.Handle(c.RevokeSessions), admin...)).Methods(http.MethodPost)
	api.Handle(base, chain(c.Handle(c.GetAllUsers), admin...)).Methods(http.MethodGet)
	api.Handle(base, chain(c.Handle(c.CreateUser), admin...)).Methods(http.MethodPost)
	api.Handle(base+"/{id}", chain(c.Handle(c.GetUser), admin...)).Methods(http.MethodGet)
	api.Handle(base+"/{id}", chain(c.Handle(c.UpdateUser), admin...)).Methods(http.MethodPatch)
	api.Handle(base+"/{id}", chain(c.Handle(c.DeleteUser), admin...)).Methods(http.MethodDelete)
}

// reviewRoutes is mounted both at the top level and under a tour.
func reviewRoutes(api *mux.Router, base string, c *controllers.Controller, mw *middleware.Middleware) {
	authors := []adapter{mw.Protect, mw.RestrictTo(constants.RoleUser)}
	owners := []adapter{mw.Protect, mw.RestrictTo(constants.RoleUser, constants.RoleAdmin)}

	api.Handle(base, mw.Protect(c.Handle(c.GetAllReviews))).Methods(http.MethodGet)
	api.Handle(base, chain(c.Handle(c.CreateReview), authors...)).Methods(http.MethodPost)
	api.Handle(base+"/{id}", mw.Protect(c.Handle(c.GetReview))).Methods(http.MethodGet)
	api.Handle(base+"/{id}", chain(c.Handle(c.UpdateReview), owners...)).Methods(http.MethodPatch)
	api.Handle(base+"/{id}", chain(c.Handle(c.DeleteReview), owners...)).Methods(http.MethodDelete)
}

func viewRoutes(r *mux.Router, c *controllers.Controller, mw *middleware.Middleware) {
	r.Handle("/", mw.IsLoggedIn(c.Handle(c.GetOverview))).Methods(http.MethodGet)
	r.Handle("/tour/{"+constants.ParamSlug+"}", mw.IsLoggedIn(c.Handle(c.GetTourPage))).Methods(http.MethodGet)
	r.Handle("/login", mw.IsLoggedIn(c.Handle(c.GetLoginForm))).Methods(http.MethodGet)
	r.Handle("/me", mw.Protect(c.Handle(c.GetAccount))).Methods(http.MethodGet)
}
