// Package api provides the shared request/response types for the ShapeFlow API.
//
// This package contains the canonical response envelope and the DTOs exchanged
// over the ShapeFlow HTTP API.
//
// # API Overview
//
// ShapeFlow provides a RESTful API for:
//   - Text-to-3D generation with multi-strategy fallback
//   - Generation progress streaming over WebSocket
//   - Result cache administration
//   - Health monitoring and metrics
//
// # Authentication
//
// Authenticated endpoints accept a JWT bearer token:
//
//	Authorization: Bearer <token>
//
// Requests without a token are served as anonymous principals with a reduced
// daily quota and no remote inference access.
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
//
// # Generating Documentation
//
// To regenerate Swagger documentation using swag:
//
//	swag init -g cmd/shapeflow/main.go -o api --parseDependency --parseInternal
package api
