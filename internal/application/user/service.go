package user

import (
	"context"
	"errors"
	"fmt"

	"streammap-backend/internal/domain"
	"streammap-backend/internal/middleware"
	"streammap-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound             = errors.New("User not found")
	ErrInvalidRole              = errors.New("Role must be one of admin, contributor, viewer")
	ErrCannotModifyOwnRole      = errors.New("Users cannot modify their own role")
	ErrMustKeepOneAdministrator = errors.New("At least one admin must remain")
)

// Service manages accounts and their roles.
type Service struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

// List returns every account ordered by name; password hashes never leave the domain type.
func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := s.DB.WithContext(ctx).Order("fullname ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateRoleInput names who is changing whose role.
type UpdateRoleInput struct {
	ActorID  uuid.UUID
	TargetID uuid.UUID
	Role     string
}

// UpdateRole applies the role governance rules, saves the new role and logs the target out
// of every session so the new permissions apply on their next login.
func (s *Service) UpdateRole(ctx context.Context, in UpdateRoleInput) (*domain.User, error) {
	if !constants.IsValidRole(in.Role) {
		return nil, ErrInvalidRole
	}
	if in.ActorID == in.TargetID {
		return nil, ErrCannotModifyOwnRole
	}

	var target domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", in.TargetID).First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if target.Role == constants.Admin && in.Role != constants.Admin {
			var admins int64
			if err := tx.Model(&domain.User{}).Where("role = ?", constants.Admin).Count(&admins).Error; err != nil {
				return err
			}
			if admins <= 1 {
				return ErrMustKeepOneAdministrator
			}
		}
		return tx.Model(&target).Update("role", in.Role).Error
	})
	if err != nil {
		return nil, err
	}

	if err := middleware.DestroyUserSessions(ctx, s.Rdb, target.UserID.String()); err != nil {
		log.Warn().Err(err).Str("user_id", target.UserID.String()).Msg("users: session invalidation failed")
	}
	log.Info().Str("user_id", target.UserID.String()).Str("actor_id", in.ActorID.String()).
		Str("role", in.Role).Msg("users: role updated")
	return &target, nil
}
