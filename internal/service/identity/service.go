package identity

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Mihirdhami7/hms-api/internal/model"
	"github.com/Mihirdhami7/hms-api/internal/repository"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

// Service fronts the user directory with a short-lived in-process cache.
// Directory records change rarely next to how often bookings read them, and
// embedded snapshots are frozen at booking time anyway, so brief staleness
// is acceptable.
type Service struct {
	repo  repository.UserRepository
	cache *gocache.Cache
}

func NewService(repo repository.UserRepository) *Service {
	return &Service{
		repo:  repo,
		cache: gocache.New(cacheTTL, cacheCleanup),
	}
}

// FindUser resolves any directory record by email.
func (s *Service) FindUser(ctx context.Context, email string) (*model.User, error) {
	key := "user:" + strings.ToLower(email)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.User), nil
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, user, gocache.DefaultExpiration)
	return user, nil
}

// FindDoctor resolves a doctor record scoped to a hospital.
func (s *Service) FindDoctor(ctx context.Context, email, hospitalName string) (*model.User, error) {
	key := "doctor:" + strings.ToLower(hospitalName) + ":" + strings.ToLower(email)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.User), nil
	}

	user, err := s.repo.FindDoctorInHospital(ctx, email, hospitalName)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, user, gocache.DefaultExpiration)
	return user, nil
}

// FindAdmin resolves the administrator record for a hospital.
func (s *Service) FindAdmin(ctx context.Context, hospitalName string) (*model.User, error) {
	key := "admin:" + strings.ToLower(hospitalName)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.User), nil
	}

	user, err := s.repo.FindAdminForHospital(ctx, hospitalName)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, user, gocache.DefaultExpiration)
	return user, nil
}
