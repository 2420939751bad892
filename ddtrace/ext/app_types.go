package ext

// Application types for services.
const (
	AppTypeWeb   = "web"
	AppTypeDB    = "db"
	AppTypeCache = "cache"
	AppTypeRPC   = "rpc"
)
