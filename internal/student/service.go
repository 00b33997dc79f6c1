package student

import (
	"context"

	"github.com/shrimpsizemoose/trekker/logger"

	"schoolattend/internal/config"
)

// ExportLimit caps the rows returned by an export.
const ExportLimit = 10000

// Store is the persistence the service needs.
type Store interface {
	List(ctx context.Context, f Filter) ([]Student, error)
	Get(ctx context.Context, id int64) (Student, error)
	Create(ctx context.Context, rec Record) (Student, *Parent, error)
	Update(ctx context.Context, id int64, p Patch) (Student, error)
	Delete(ctx context.Context, id int64) error
}

// Service validates requests and applies them to the store.
type Service struct {
	repo     Store
	defaults config.Defaults
}

func NewService(repo Store, defaults config.Defaults) *Service {
	return &Service{repo: repo, defaults: defaults}
}

// Create validates p and inserts it, recording the caller's address.
func (s *Service) Create(ctx context.Context, p Payload, ip string) (Student, *Parent, error) {
	if err := ValidateCreate(p); err != nil {
		return Student{}, nil, err
	}
	st, parent, err := s.repo.Create(ctx, p.Record(s.defaults, ip))
	if err != nil {
		return Student{}, nil, err
	}
	logger.Info.Printf("student %d created by %s", st.ID, deref(st.CreatedBy))
	return st, parent, nil
}

// Update validates the supplied members of p and applies them.
func (s *Service) Update(ctx context.Context, id int64, p Payload) (Student, error) {
	if err := ValidateUpdate(p); err != nil {
		return Student{}, err
	}
	return s.repo.Update(ctx, id, p.Patch())
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info.Printf("student %d deleted", id)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (Student, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Student, error) {
	return s.repo.List(ctx, f)
}

// Export lists up to ExportLimit students matching f.
func (s *Service) Export(ctx context.Context, f Filter) ([]Student, error) {
	f.Limit = ExportLimit
	f.Offset = 0
	return s.repo.List(ctx, f)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
