// Package mcp exposes the knowledge base and the confidence-checked
// pipeline to AI assistants over the Model Context Protocol.
package mcp

import "errors"

// ErrMissingAugmentationService is returned when the augmentation service is not provided.
var ErrMissingAugmentationService = errors.New("mcp: augmentation service is required")
