// Package errors provides structured error types for better observability
// and programmatic error handling across the application.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeTimeout,
//	    "failed to fetch stage metrics",
//	    ctx.Err(),
//	    map[string]interface{}{
//	        "server": serverName,
//	        "app_id": appID,
//	    },
//	)
package errors
