package common

// AuthorizationHeaderName is the HTTP header carrying the bearer token.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the authentication scheme advertised in WWW-Authenticate
// and expected as the Authorization header prefix.
const BearerScheme = "Bearer"
