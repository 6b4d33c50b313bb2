package server

// Route paths served by the proxy boundary.
const (
	RouteHealthz = "/healthz"
	RouteMetrics = "/metrics"

	RouteCommunities   = "/api/communities"
	RoutePosts         = "/api/community/{communityID}/posts"
	RouteArtists       = "/api/community/{communityID}/artists"
	RoutePost          = "/api/post/{postID}"
	RouteMedia         = "/api/post/{postID}/media"
	RouteComments      = "/api/post/{postID}/comments"
	RouteNotifications = "/api/notifications"

	RouteFeedRSS  = "/feed/community/{communityID}.rss"
	RouteFeedICal = "/feed/community/{communityID}.ics"
	RouteWidget   = "/widget/community/{communityID}"
	RouteExport   = "/export/community/{communityID}.json"

	RouteAdminCacheStats = "/admin/cache/stats"
	RouteAdminCacheFlush = "/admin/cache"
)
