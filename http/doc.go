// Package http provides the HTTP API for the filedock metadata service.
//
// The package exposes a JSON REST surface for the two-phase upload protocol
// and for file metadata operations, plus an optional blob surface used when
// the local object store backend holds the bytes.
//
// # Routes
//
//   - POST   /files/upload     reserve an upload (returns a presigned write URL)
//   - POST   /files/confirm    confirm a completed upload
//   - GET    /files            list visible files (folder, limit, cursor params)
//   - GET    /files/{fileID}   fetch a presigned download URL
//   - PUT    /files/{fileID}   rename and/or move a file
//   - DELETE /files/{fileID}   soft-delete a file
//   - GET    /healthz          liveness probe
//   - PUT    /blob/*           write object bytes (presigned, local backend only)
//   - GET    /blob/*           read object bytes (presigned, local backend only)
//
// # Identity
//
// Authentication terminates upstream; IdentityMiddleware reads the caller
// from the X-Filedock-User and X-Filedock-Role headers and rejects requests
// without a valid identity. Blob routes are instead authenticated with AWS
// Signature V4 query parameters carried in the presigned URL.
//
// # Errors
//
// All errors are JSON bodies with machine-readable codes:
//
//	{"error": "not_found", "message": "File not found"}
//
// Sentinel errors from the core package map to 400, 401, 403, 404, 409 and
// 503 responses; everything else is a 500.
//
// # Usage
//
//	handlerCfg := http.HandlerConfig{CORS: corsCfg}
//	handler := http.NewHandler(&handlerCfg, coordinator, service)
//	srv := &nethttp.Server{Addr: ":8080", Handler: handler.Router()}
package http
