package service

import (
	"context"
	"log/slog"

	"github.com/example/voyya/internal/fare"
	"github.com/example/voyya/internal/models"
	"github.com/example/voyya/internal/storage"
)

type Ratings struct {
	store storage.Store
	log   *slog.Logger
}

type RatingInput struct {
	RideID      int64
	RatedUserID int64
	RatingType  models.RatingType
	Score       int
	Comment     *string
}

// Create records the caller's rating of a ride and refreshes the rated user's average.
// A ride holds at most one rating.
func (s *Ratings) Create(ctx context.Context, ratedByID int64, in RatingInput) (*models.Rating, error) {
	if in.Score < 1 || in.Score > 5 {
		return nil, invalid("score must be between 1 and 5")
	}
	if !in.RatingType.Valid() {
		return nil, invalid("ratingType must be driver_rating or rider_rating")
	}
	if _, err := s.store.GetRide(ctx, in.RideID); err != nil {
		return nil, err
	}
	r := &models.Rating{
		RideID:      in.RideID,
		RatedByID:   ratedByID,
		RatedUserID: in.RatedUserID,
		RatingType:  in.RatingType,
		Score:       in.Score,
		Comment:     in.Comment,
	}
	if err := s.store.CreateRating(ctx, r); err != nil {
		return nil, err
	}
	if err := s.refreshAverage(ctx, in.RatedUserID); err != nil {
		s.log.WarnContext(ctx, "rating_average_failed", "user_id", in.RatedUserID, "err", err)
	}
	return r, nil
}

func (s *Ratings) refreshAverage(ctx context.Context, userID int64) error {
	all, err := s.store.UserRatings(ctx, userID)
	if err != nil || len(all) == 0 {
		return err
	}
	sum := 0
	for _, r := range all {
		sum += r.Score
	}
	avg := fare.Round2(float64(sum) / float64(len(all)))
	return ignoreMissing(s.store.UpdateUserProfile(ctx, userID, models.ProfileUpdate{Rating: &avg}))
}

func (s *Ratings) Get(ctx context.Context, rideID int64) (*models.Rating, error) {
	return s.store.GetRating(ctx, rideID)
}

func (s *Ratings) UserRatings(ctx context.Context, userID int64) ([]models.Rating, error) {
	return s.store.UserRatings(ctx, userID)
}
