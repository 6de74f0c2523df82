// Package domain defines the core business entities for Logos.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested source document identified by its content
//   - Chunk: A page-bound passage, the unit indexed and retrieved
//   - PatientRequest: The structured record a medical analysis starts from
//   - ConfidenceValidationResult: A trust verdict over token log-probabilities
//   - AugmentationResult: The validated context bundle handed to generation
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
