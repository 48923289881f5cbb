package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"alcyxob/fitflow/internal/domain"
	"alcyxob/fitflow/internal/storage"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Export describes an uploaded calendar export.
type Export struct {
	ObjectKey   string    `json:"objectKey"`
	DownloadURL string    `json:"downloadUrl"`
	Workouts    int       `json:"workouts"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type exportDocument struct {
	Owner      string                    `json:"owner"`
	ExportedAt time.Time                 `json:"exportedAt"`
	Workouts   map[string]domain.Workout `json:"workouts"`
	Templates  []domain.ExerciseTemplate `json:"templates"`
}

type ExportService interface {
	Export(ctx context.Context, owner primitive.ObjectID) (*Export, error)
}

type exportService struct {
	workouts  WorkoutService
	storage   storage.FileStorage
	urlExpiry time.Duration
	now       func() time.Time
}

// NewExportService returns an export service. A nil store disables exports.
func NewExportService(workouts WorkoutService, store storage.FileStorage, urlExpiry time.Duration) ExportService {
	if urlExpiry <= 0 {
		urlExpiry = storage.DefaultPresignedURLExpiry
	}
	return &exportService{
		workouts:  workouts,
		storage:   store,
		urlExpiry: urlExpiry,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *exportService) Export(ctx context.Context, owner primitive.ObjectID) (*Export, error) {
	if s.storage == nil {
		return nil, storage.ErrStorageDisabled
	}

	byDate, err := s.workouts.ListWorkouts(ctx, owner)
	if err != nil {
		return nil, err
	}
	tmpl, err := s.workouts.Templates(ctx, owner)
	if err != nil {
		return nil, err
	}

	now := s.now()
	body, err := json.Marshal(exportDocument{
		Owner:      owner.Hex(),
		ExportedAt: now,
		Workouts:   byDate,
		Templates:  tmpl,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}

	key := fmt.Sprintf("exports/%s/%s.json", owner.Hex(), uuid.NewString())
	if err := s.storage.PutObject(ctx, key, "application/json", body); err != nil {
		return nil, err
	}
	url, err := s.storage.GeneratePresignedDownloadURL(ctx, key, s.urlExpiry)
	if err != nil {
		// nobody can fetch the object without a link
		if delErr := s.storage.DeleteObject(ctx, key); delErr != nil {
			log.WithError(delErr).Warnf("failed to remove orphaned export %s", key)
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"owner":    owner.Hex(),
		"key":      key,
		"workouts": len(byDate),
	}).Info("workouts exported")

	return &Export{
		ObjectKey:   key,
		DownloadURL: url,
		Workouts:    len(byDate),
		ExpiresAt:   now.Add(s.urlExpiry),
	}, nil
}
