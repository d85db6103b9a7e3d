package ecode

// Business codes carried in API error responses
const (
	OK                 = 0
	RequestErr         = -400
	ParamErr           = -401
	NothingFound       = -404
	ServerErr          = -500
	ServiceUnavailable = -503
)

var messages = map[int]string{
	OK:                 "ok",
	RequestErr:         "Invalid request",
	ParamErr:           "Invalid parameters",
	NothingFound:       "Resource not found",
	ServerErr:          "Internal server error",
	ServiceUnavailable: "Service unavailable",
}

// Text returns the message of code
func Text(code int) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[ServerErr]
}
