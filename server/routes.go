package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware(s.NoStoreMiddleware)...))
	s.RegisterRouteFunc("POST "+RouteAuthToken, ChainMiddleware(s.TokenHandler(), s.APIMiddleware(s.NoStoreMiddleware)...))
	s.RegisterRouteFunc("OPTIONS "+RouteAuthLogin, ChainMiddleware(preflightHandler, s.APIMiddleware()...))
	s.RegisterRouteFunc("OPTIONS "+RouteAuthToken, ChainMiddleware(preflightHandler, s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))
}
