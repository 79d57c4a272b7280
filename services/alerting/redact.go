package alerting

import "strings"

// secretFieldFragments are matched case-insensitively against context keys;
// matching values are replaced before the event is stored or logged.
var secretFieldFragments = []string{
	"password", "secret", "token", "apikey", "api_key", "credential", "authorization", "card",
}

const redactedPlaceholder = "[REDACTED]"

// redactContext returns a copy of ctx with secret-looking fields masked.
func redactContext(ctx map[string]any) map[string]any {
	if ctx == nil {
		return nil
	}
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		if isSecretField(k) {
			out[k] = redactedPlaceholder
			continue
		}
		out[k] = v
	}
	return out
}

func isSecretField(key string) bool {
	lower := strings.ToLower(key)
	for _, fragment := range secretFieldFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
