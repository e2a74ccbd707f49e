// Package httputil provides HTTP utilities for envelope responses, JSON
// request decoding and the common middleware stack.
//
// # Response Helpers
//
// Every response body is an envelope: success, an optional message and any
// payload fields at the top level.
//
//	httputil.WriteSuccess(w, "Login successful", httputil.Payload{"token": tok})
//	httputil.WriteCreated(w, "Todo created successfully", httputil.Payload{"todo": t})
//	httputil.WriteNotFound(w, "Todo not found")
//
// # Request Parsing
//
//	var req createTodoRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// An empty body decodes as an empty object.
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RecoveryMiddleware,
//		httputil.RequestLoggingMiddleware(logger),
//		httputil.CORSMiddleware(httputil.DefaultCORSConfig()),
//		httputil.MaxBytesMiddleware(1<<20),
//	)(router)
package httputil
