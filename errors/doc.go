// Package errors provides a structured error taxonomy for taskman.
// It defines the error codes and categories that the tool boundary uses
// to turn failures into concise textual results for the calling agent.
//
// # Error Categories
//
// Errors are classified into three categories:
//
//   - Transient: Temporary failures where retry may succeed (flush failures, etc.)
//   - Permanent: Failures where retry will not help (invalid input, not found, etc.)
//   - Internal: Unexpected errors indicating bugs or corrupted state
//
// # Usage
//
// Create a new error:
//
//	err := errors.InvalidInput("title must not be empty")
//
// Wrap an existing error with context:
//
//	wrapped := errors.Wrap(err, "flushing task store")
//
// Check an error at the tool boundary:
//
//	if errors.IsNotFound(err) {
//	    // render a not-found result instead of failing the request
//	}
//
// # JSON Serialization
//
// All errors support JSON serialization so they can be embedded in
// structured tool results:
//
//	data, err := json.Marshal(taskErr)
package errors
