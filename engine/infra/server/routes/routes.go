package routes

import "fmt"

// APIVersion is the version segment of every API route.
const APIVersion = "v0"

// Version returns the current API version string used in routing (e.g., "v0").
func Version() string {
	return APIVersion
}

// Base returns the versioned API base path (e.g., "/api/v0").
func Base() string {
	return fmt.Sprintf("/api/%s", Version())
}

// Library returns the spec library base path (e.g., "/api/v0/library").
func Library() string {
	return Base() + "/library"
}

// LibraryDocuments returns the upload path (e.g., "/api/v0/library/documents").
func LibraryDocuments() string {
	return Library() + "/documents"
}

// Analyze returns the infraction analysis path (e.g., "/api/v0/analyze").
func Analyze() string {
	return Base() + "/analyze"
}

// HealthVersioned returns the versioned health path (e.g., "/api/v0/health").
func HealthVersioned() string {
	return Base() + "/health"
}
