package server

import "net/http"

const (
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	cyan   = "\033[36m"
	gray   = "\033[90m" // Bright black, often appears as gray

	resetColor = "\033[0m" // Reset to default color
)

// methodColors maps HTTP methods to the color used in DEV route logging.
var methodColors = map[string]string{
	http.MethodGet:    green,
	http.MethodPost:   blue,
	http.MethodPut:    yellow,
	http.MethodDelete: red,
	http.MethodPatch:  cyan,
}
