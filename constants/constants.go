package constants

type ContextKey string

const (
	CurrentUser ContextKey = "current_user"
	IssuedAt    ContextKey = "iat"
	ExpiresAt   ContextKey = "exp"
	RequestID   ContextKey = "request_id"
	RequestTime ContextKey = "request_time"
)

const (
	ParamID     = "id"
	ParamTourID = "tourId"
	ParamSlug   = "slug"
	ParamToken  = "token"
	ParamYear   = "year"
)

const (
	GlobalInvalidationKey = "global_invalidation"
	UserInvalidation      = "user_invalidation"
	RateLimitPrefix       = "rate_limit"
)

const (
	TourCollection   = "tours"
	UserCollection   = "users"
	ReviewCollection = "reviews"
)

const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

const JWTCookie = "jwt"
