// Package errors provides structured, actionable error messages for viewdiff.
//
// Each error carries a registered code (e.g. "E306") that maps to a short
// message, a longer explanation and a documentation URL. Errors raised while
// reading tree documents can point at the offending line.
//
// # Error Categories
//
//   - config: viewdiff.json problems
//   - cli: command line usage and diff verification
//   - document: malformed tree documents
//   - storage: file and S3 access
//   - protocol: transaction frames that cannot be decoded
//   - mounting: mutations that cannot be applied to a mounted view tree
//
// # Usage
//
//	err := errors.New("E201").
//	    WithLocation("trees/home.yaml", 12, 5).
//	    WithSuggestion("Add a tag field to the node")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E201: Missing node tag
//	//
//	//   trees/home.yaml:12:5
//	//   ...
package errors
