package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"

	// RouteHealth is the health check route.
	RouteHealth = "/health"
	// RouteLive is the liveness suffix under RouteHealth.
	RouteLive = "/live"
	// RouteReady is the readiness suffix under RouteHealth.
	RouteReady = "/ready"
	// RouteMetrics is the Prometheus scrape route.
	RouteMetrics = "/metrics"

	// RouteAPI is the prefix of all JSON routes.
	RouteAPI = "/api"

	// RouteAuth is the authentication route group.
	RouteAuth = "/auth"
	// RouteSignup is the signup route.
	RouteSignup = "/signup"
	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteMe is the current-account route.
	RouteMe = "/me"

	// RoutePosts is the posts route.
	RoutePosts = "/posts"
	// RouteGallery is the gallery route.
	RouteGallery = "/gallery"
	// RouteContact is the contact form route.
	RouteContact = "/contact"
	// RoutePassage is the Bible passage lookup route.
	RoutePassage = "/bible/passage"

	// RouteChatSessions is the chat sessions route.
	RouteChatSessions = "/chat/sessions"
	// RouteSuffixMessages is the suffix for chat messages.
	RouteSuffixMessages = "/messages"

	// RouteAdmin is the admin route group.
	RouteAdmin = "/admin"
	// RouteMessages is the contact messages admin route.
	RouteMessages = "/messages"
	// RouteUsers is the users admin route.
	RouteUsers = "/users"
	// RouteAIReflection is the reflection generation route.
	RouteAIReflection = "/ai/reflection"
	// RouteAIImage is the image generation route.
	RouteAIImage = "/ai/image"
)

// maxBodyBytes bounds JSON request bodies. Images arrive as data URIs.
const maxBodyBytes = 8 << 20
