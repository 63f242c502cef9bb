// Package server exposes mounting surfaces over HTTP.
//
// Routes:
//
//	GET    /healthz                 liveness and surface count
//	GET    /metrics                 Prometheus metrics (when a Gatherer is set)
//	GET    /surfaces                running surfaces
//	PUT    /surfaces/{id}           start a surface with its initial tree
//	DELETE /surfaces/{id}           stop a surface
//	GET    /surfaces/{id}/tree      committed tree as JSON or YAML (?format=)
//	POST   /surfaces/{id}/commits   commit a tree, respond with its mutations
//	GET    /surfaces/{id}/stream    WebSocket transaction stream
//
// Trees are posted as JSON or YAML tree documents, or referenced with
// ?source= (an s3:// object, or a file under Config.SourceDir).
//
// A stream speaks the binary protocol of package protocol: a Hello frame
// carrying the root view, a mount transaction, then every transaction the
// surface commits. Clients may ping, acknowledge transaction numbers and
// request a resync, which repeats the Hello and the mount transaction.
// Errors are JSON objects under an "error" key with the error code.
package server
