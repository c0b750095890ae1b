package room

import (
	"context"
	"errors"
	"strings"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/pkg/validator"
	"hotelbooking/internal/repository"
)

type Repository interface {
	Create(ctx context.Context, room *domain.Room) error
	Update(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id int64) (*domain.Room, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Room, error)
	Delete(ctx context.Context, id int64) error
}

// CalendarInvalidator drops cached calendars when unit totals change.
type CalendarInvalidator interface {
	InvalidateAll(ctx context.Context)
}

type Service struct {
	rooms   Repository
	cache   CalendarInvalidator
	loggerf func(format string, args ...interface{})
}

func NewService(rooms Repository, cache CalendarInvalidator, loggerf func(format string, args ...interface{})) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{rooms: rooms, cache: cache, loggerf: loggerf}
}

func (s *Service) Create(ctx context.Context, req RoomRequest) (*domain.Room, error) {
	room := &domain.Room{IsActive: true, TotalUnits: 1, Source: domain.SourceLocal}
	apply(room, req)
	if errs := validator.Validate(room); errs != nil {
		return nil, FieldErrors(errs)
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, mapRepoError(err)
	}
	s.loggerf("level=info msg=\"room created\" room_id=%d type=%s units=%d", room.ID, room.TypeKey, room.TotalUnits)
	s.cache.InvalidateAll(ctx)
	return room, nil
}

func (s *Service) Update(ctx context.Context, id int64, req RoomRequest) (*domain.Room, error) {
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(room, req)
	if errs := validator.Validate(room); errs != nil {
		return nil, FieldErrors(errs)
	}
	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, mapRepoError(err)
	}
	s.loggerf("level=info msg=\"room updated\" room_id=%d active=%t", room.ID, room.IsActive)
	s.cache.InvalidateAll(ctx)
	return room, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Room, error) {
	room, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return room, nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]domain.Room, error) {
	return s.rooms.List(ctx, activeOnly)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.rooms.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	s.loggerf("level=info msg=\"room deleted\" room_id=%d", id)
	s.cache.InvalidateAll(ctx)
	return nil
}

// apply copies the request onto room. Zero values leave Create defaults in
// place; IsActive and ExternalRoomID change only when sent.
func apply(room *domain.Room, req RoomRequest) {
	if v := strings.TrimSpace(req.Name); v != "" {
		room.Name = v
	}
	if v := strings.TrimSpace(req.TypeKey); v != "" {
		room.TypeKey = strings.ToLower(v)
	}
	if req.Description != "" {
		room.Description = req.Description
	}
	if req.Capacity != 0 {
		room.Capacity = req.Capacity
	}
	if req.Price != nil {
		room.Price = *req.Price
	}
	if req.TotalUnits != 0 {
		room.TotalUnits = req.TotalUnits
	}
	if req.Source != "" {
		room.Source = domain.RoomSource(strings.ToLower(req.Source))
	}
	if req.ExternalRoomID != nil {
		if v := strings.TrimSpace(*req.ExternalRoomID); v != "" {
			room.ExternalRoomID = &v
		} else {
			room.ExternalRoomID = nil
		}
	}
	if req.IsActive != nil {
		room.IsActive = *req.IsActive
	}
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrRoomNotFound
	case errors.Is(err, repository.ErrRoomInUse):
		return ErrRoomInUse
	case errors.Is(err, repository.ErrDuplicateExternalRef):
		return ErrExternalRoomTaken
	}
	return err
}
