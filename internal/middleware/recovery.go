package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"dress-rental/pkg/utils"
)

func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC RECOVERED: %s %s req=%s: %v\n%s",
					r.Method, r.URL.Path, RequestID(r.Context()), err, debug.Stack())
				utils.Message(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
