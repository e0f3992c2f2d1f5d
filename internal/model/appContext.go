package model

import "context"

type contextKey string

const (
	ContextAppName       contextKey = "appName"
	ContextAppVersion    contextKey = "appVersion"
	ContextAppAuthor     contextKey = "appAuthor"
	ContextConfigFile    contextKey = "configFile"
	ContextCustomersFile contextKey = "customersFile"
)

// ContextString returns the string stored under key, or "" when the key is
// missing or holds another type.
func ContextString(ctx context.Context, key contextKey) string {
	value, _ := ctx.Value(key).(string)
	return value
}
