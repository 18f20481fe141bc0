package middlewares

// gin context keys
const (
	CtxRequestID = "request_id"
	ctxUserIDKey = "auth.userID"
	ctxUsername  = "auth.username"
	ctxRoleKey   = "auth.role"
)
