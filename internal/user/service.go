// Package user はユーザー情報の参照を提供する。
package user

import (
	"context"
	"fmt"

	"github.com/hitoshi/mangashelf/internal/model"
	"github.com/hitoshi/mangashelf/internal/repository"
)

// Service はユーザー参照のサービス層。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// Profile はログイン中ユーザー自身の情報を返す。
func (s *Service) Profile(ctx context.Context, userID string) (*model.User, error) {
	return s.find(ctx, userID)
}

// Get は指定ユーザーの情報を返す。本人または管理者以外はFORBIDDENを返す。
func (s *Service) Get(ctx context.Context, actor model.Actor, id string) (*model.User, error) {
	if actor.UserID != id && !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}
	return s.find(ctx, id)
}

// List は全ユーザーを返す。管理者のみ。
func (s *Service) List(ctx context.Context, actor model.Actor) ([]*model.User, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}
	users, _, err := s.userRepo.List(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	if users == nil {
		users = []*model.User{}
	}
	return users, nil
}

func (s *Service) find(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}
	return u, nil
}
