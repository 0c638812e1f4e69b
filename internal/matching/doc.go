// Package matching compares stored stub requests with incoming requests.
//
// Each dimension lives in its own file and can be used on its own:
//
//   - Method: set intersection, case-insensitive
//   - URL: literal equality, or a full regular expression match
//   - Query: subset check with bracketed-array normalization
//   - Headers: subset check, authorization properties compared to Authorization
//   - Body: JSON or XML equivalence by content type, else regex or literal
//
// Every function here is pure. Compiled patterns are cached process-wide, so
// matchers can run concurrently without locking.
package matching
