package server

// Route path constants
const (
	RouteAuthLogin = "/auth/login"
	RouteAuthToken = "/auth/token"
	RouteHealth    = "/healthz"
)
