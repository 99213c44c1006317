// Package detector talks to the external face detection/embedding service.
// The service receives raw image bytes and returns bounding boxes plus
// fixed-length embedding vectors; the models behind it are not our concern.
package detector

import (
	"context"

	"facematch/internal/core/models"
)

// Detector produces embeddings for the faces found in an image.
type Detector interface {
	// Detect returns the detected faces in order, or an error when the
	// service is unreachable or rejects the image.
	Detect(ctx context.Context, image []byte) ([]models.Detection, error)
	// Ping reports whether the service is currently reachable.
	Ping(ctx context.Context) bool
}
