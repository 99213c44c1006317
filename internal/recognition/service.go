// Package recognition ties the detection service, the matcher and the
// gallery store together into one identity decision per request.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"facematch/internal/config"
	"facematch/internal/core/models"
	"facematch/internal/detector"
	"facematch/internal/matcher"
	"facematch/internal/storage"

	log "github.com/sirupsen/logrus"
)

var logFields = log.Fields{
	"component": "recognition",
}

// Notifier publishes recognition events to interested parties. Publishing is
// best-effort; failures are logged, never surfaced.
type Notifier interface {
	PublishRecognition(resp *models.RecognitionResponse)
}

// Service is the recognition orchestrator.
type Service struct {
	store    *storage.Manager
	detector detector.Detector
	notifier Notifier

	defaultThreshold float64
	detectTimeout    time.Duration
}

// NewService wires the orchestrator. notifier may be nil.
func NewService(store *storage.Manager, det detector.Detector, notifier Notifier, matcherCfg config.MatcherConfig, detectorCfg config.DetectorConfig) *Service {
	timeout := time.Duration(detectorCfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		store:            store,
		detector:         det,
		notifier:         notifier,
		defaultThreshold: matcherCfg.DefaultThreshold,
		detectTimeout:    timeout,
	}
}

// Recognize matches every face detected in the image against one consistent
// gallery snapshot and appends a single log entry for the request.
//
// When the detection service is unavailable the request does not fail:
// the response degrades to an explicitly flagged synthetic one
// (Method=fallback) so callers can always tell the two apart.
func (s *Service) Recognize(ctx context.Context, image []byte, threshold *float64) (*models.RecognitionResponse, error) {
	th := s.defaultThreshold
	if threshold != nil {
		th = *threshold
	}
	if th < -1 || th > 1 {
		return nil, models.NewValidationError("threshold", "must be in [-1, 1], got %v", th)
	}

	method := models.MethodReal
	var faces []models.FaceMatch

	detectCtx, cancel := context.WithTimeout(ctx, s.detectTimeout)
	detections, err := s.detector.Detect(detectCtx, image)
	cancel()

	// One snapshot per request: every face in this image is matched
	// against the same gallery state.
	snapshot, snapErr := s.store.ListFaces(ctx)
	if snapErr != nil {
		return nil, fmt.Errorf("reading gallery snapshot: %w", snapErr)
	}

	if err != nil {
		log.WithFields(logFields).WithError(err).Warn("Detection pipeline unavailable, returning simulated response")
		method = models.MethodFallback
		faces = simulateFaces(snapshot)
	} else {
		faces, err = s.matchAll(detections, snapshot, th)
		if err != nil {
			s.appendLog(ctx, models.OutcomeError, method, nil, nil)
			return nil, err
		}
	}

	resp := &models.RecognitionResponse{
		FacesDetected:   len(faces),
		RecognizedFaces: faces,
		Method:          method,
	}

	outcome := models.OutcomeUnmatched
	var matchedName *string
	var confidence *float64
	if best := bestMatch(faces); best != nil {
		if best.Matched {
			outcome = models.OutcomeMatched
			name := best.Name
			matchedName = &name
		}
		conf := best.Confidence
		confidence = &conf
	}
	s.appendLog(ctx, outcome, method, matchedName, confidence)

	if s.notifier != nil {
		s.notifier.PublishRecognition(resp)
	}

	return resp, nil
}

// matchAll runs the matcher for every detection concurrently over the shared
// snapshot. The snapshot is read-only, so the workers need no coordination
// beyond the wait.
func (s *Service) matchAll(detections []models.Detection, snapshot []models.FaceRecord, threshold float64) ([]models.FaceMatch, error) {
	faces := make([]models.FaceMatch, len(detections))
	errs := make([]error, len(detections))

	var wg sync.WaitGroup
	for i := range detections {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := matcher.Match(detections[i].Embedding, snapshot, threshold)
			if err != nil {
				errs[i] = err
				return
			}
			faces[i] = models.FaceMatch{
				Name:        result.Name,
				Confidence:  result.Confidence,
				Matched:     result.Matched,
				BoundingBox: detections[i].BoundingBox,
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return faces, nil
}

// bestMatch picks the face backing the log entry: the highest-confidence
// matched face, or the highest-confidence face overall when nothing matched.
func bestMatch(faces []models.FaceMatch) *models.FaceMatch {
	var best *models.FaceMatch
	for i := range faces {
		f := &faces[i]
		if best == nil {
			best = f
			continue
		}
		if f.Matched != best.Matched {
			if f.Matched {
				best = f
			}
			continue
		}
		if f.Confidence > best.Confidence {
			best = f
		}
	}
	return best
}

// appendLog writes the request's log entry. Log entries describe attempts,
// not caller presence, so the write survives caller cancellation.
func (s *Service) appendLog(ctx context.Context, outcome, method string, matchedName *string, confidence *float64) {
	entry := &models.RecognitionLogEntry{
		Outcome:     outcome,
		Method:      method,
		MatchedName: matchedName,
		Confidence:  confidence,
	}
	if _, err := s.store.AppendLog(context.WithoutCancel(ctx), entry); err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to append recognition log entry")
	}
}

// Enroll adds one face to the gallery. The image must contain exactly one
// detectable face; anything else is ambiguous and performs no mutation.
// Unlike Recognize there is no simulation fallback here: enrolling a
// synthetic embedding would poison the gallery.
func (s *Service) Enroll(ctx context.Context, name string, image []byte) (*models.FaceRecord, error) {
	if name == "" {
		return nil, models.NewValidationError("name", "must not be empty")
	}

	detectCtx, cancel := context.WithTimeout(ctx, s.detectTimeout)
	detections, err := s.detector.Detect(detectCtx, image)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("enrollment needs the detection pipeline: %w", err)
	}
	if len(detections) != 1 {
		return nil, &models.AmbiguousInputError{FacesDetected: len(detections)}
	}

	rec, err := s.store.AddFace(ctx, name, detections[0].Embedding)
	if err != nil {
		return nil, err
	}
	log.WithFields(logFields).Infof("Enrolled face %s for %q", rec.ID, name)
	return rec, nil
}

// ListFaces returns the current gallery snapshot.
func (s *Service) ListFaces(ctx context.Context) ([]models.FaceRecord, error) {
	return s.store.ListFaces(ctx)
}

// GetFace looks up one enrolled face.
func (s *Service) GetFace(ctx context.Context, id string) (*models.FaceRecord, error) {
	return s.store.GetFace(ctx, id)
}

// DeleteFace removes one enrolled face, reporting whether it existed.
func (s *Service) DeleteFace(ctx context.Context, id string) (bool, error) {
	return s.store.DeleteFace(ctx, id)
}

// ListLogs returns recognition log entries newest-first.
func (s *Service) ListLogs(ctx context.Context, filter storage.LogFilter) ([]models.RecognitionLogEntry, error) {
	return s.store.ListLogs(ctx, filter)
}

// Health reports the current storage and pipeline modes.
func (s *Service) Health(ctx context.Context) models.HealthStatus {
	status := models.HealthStatus{
		Storage:  s.store.Mode(),
		Pipeline: models.MethodFallback,
	}

	pingCtx, cancel := context.WithTimeout(ctx, s.detectTimeout)
	defer cancel()
	if s.detector.Ping(pingCtx) {
		status.Pipeline = models.MethodReal
	}
	return status
}

// Reconcile pushes degraded-mode data into the persistent store on explicit
// operator request.
func (s *Service) Reconcile(ctx context.Context) (facesCopied, logsCopied int, err error) {
	facesCopied, logsCopied, err = s.store.Reconcile(ctx)
	if errors.Is(err, models.ErrBackendUnavailable) {
		err = fmt.Errorf("reconciliation requires a connected persistent store: %w", err)
	}
	return facesCopied, logsCopied, err
}
