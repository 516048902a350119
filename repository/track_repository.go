package repository

import (
	"context"
	"fmt"

	"orpheus/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TrackRepository persists track metadata rows.
type TrackRepository interface {
	SaveTrack(ctx context.Context, track *model.Track) error
	DeleteTrack(ctx context.Context, trackID string) error
	LoadTracks(ctx context.Context) ([]*model.Track, error)
}

// gormTrackRepository implements TrackRepository on MySQL via GORM.
type gormTrackRepository struct {
	db *gorm.DB
}

// NewGormTrackRepository creates a new instance of gormTrackRepository.
func NewGormTrackRepository(db *gorm.DB) TrackRepository {
	return &gormTrackRepository{db: db}
}

// SaveTrack inserts or updates a track row.
func (r *gormTrackRepository) SaveTrack(ctx context.Context, track *model.Track) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(track).Error
	if err != nil {
		return fmt.Errorf("failed to save track %s: %w", track.ID, err)
	}
	return nil
}

// DeleteTrack removes a track row.
func (r *gormTrackRepository) DeleteTrack(ctx context.Context, trackID string) error {
	if err := r.db.WithContext(ctx).Delete(&model.Track{}, "id = ?", trackID).Error; err != nil {
		return fmt.Errorf("failed to delete track %s: %w", trackID, err)
	}
	return nil
}

// LoadTracks loads all tracks in upload order.
func (r *gormTrackRepository) LoadTracks(ctx context.Context) ([]*model.Track, error) {
	var tracks []*model.Track
	if err := r.db.WithContext(ctx).Order("seq ASC").Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}
	return tracks, nil
}
