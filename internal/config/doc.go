// Package config loads sessionkeeper's configuration.
//
// Configuration lives in a single directory, ~/.config/sessionkeeper by
// default or the directory given with --config-path. The directory holds
// config.yaml and, unless storage.stateDir says otherwise, the state/
// directory used by the file storage backend:
//
//	state/
//	  tabs/<tab>/   tab-scoped records (session, pending authorization)
//	  shared/       origin-shared records (handoff mailbox)
//
// A missing config.yaml is not an error; defaults apply. A small set of
// environment variables override the file:
//
//	SESSIONKEEPER_CLIENT_ID     clientID
//	SESSIONKEEPER_REDIRECT_URI  redirectURI
//	SESSIONKEEPER_REDIS_ADDR    storage.redis.address (and selects the redis backend)
//
// # Example
//
//	clientID: my-public-client
//	redirectURI: http://127.0.0.1:8765/callback
//	authorizationEndpoint: https://accounts.example.com/authorize
//	tokenEndpoint: https://accounts.example.com/api/token
//	identityEndpoint: https://api.example.com/v1/me
//	scopes: [user-read-private, user-read-email]
//	storage:
//	  shared: redis
//	  redis:
//	    address: localhost:6379
//
// The client id and redirect URI are not required here: the login flow
// reports them as configuration errors when it needs them.
package config
