package api

import "errors"

var errNilDashboard = errors.New("nil dashboard")
var errNilGeneralHandler = errors.New("nil http handler")
var errEmptyAdminPassword = errors.New("empty admin password")
var errInvalidMaxLoginAttempts = errors.New("invalid max login attempts")
var errInvalidLoginCooldown = errors.New("invalid login cooldown")
var errInvalidTokenLifetime = errors.New("invalid token lifetime")
var errInvalidToken = errors.New("invalid token")
var errInvalidTokenSign = errors.New("invalid token sign")
var errUnauthorized = errors.New("unauthorized")
var errTokenExpired = errors.New("token expired")
