// Package http implements the read-only gold layer API.
//
// Handlers render JSON through go-chi/render and report failures as RFC 7807
// problem details through errors.ErrorHandler.
package http
