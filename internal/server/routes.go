package server

// setupRoutes configures all routes.
// Anything not matched below, including a known path with another method,
// is a generic request answered by the host.
func (s *Server) setupRoutes() {
	r := s.router

	r.Options("/*", s.preflight)

	r.Get("/sse", s.subscribeSSE)
	r.Post("/message", s.postMessage)
	r.Get("/", s.probe)

	r.NotFound(s.forwardRequest)
	r.MethodNotAllowed(s.forwardRequest)
}
