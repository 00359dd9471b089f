// Package auth はアカウント登録、ログイン、アクセストークンの発行・検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/mangashelf/internal/model"
	"github.com/hitoshi/mangashelf/internal/repository"
)

// パスワードの最小文字数
const minPasswordLength = 6

// ログイン結果のメトリクスラベル
const (
	LoginResultSuccess = "success"
	LoginResultFailure = "failure"
)

// LoginRecorder はログイン結果を記録するメトリクスのインターフェース。
type LoginRecorder interface {
	RecordLogin(result string)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BcryptCost int
}

// RegisterInput はアカウント登録の入力。
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     model.Role // 空の場合はuser
}

// AuthResult は登録・ログイン成功時の結果。
type AuthResult struct {
	AccessToken string
	User        *model.User
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	tokens   *TokenIssuer
	config   ServiceConfig
	metrics  LoginRecorder
	logger   *slog.Logger
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	tokens *TokenIssuer,
	config ServiceConfig,
	metrics LoginRecorder,
	logger *slog.Logger,
) *Service {
	if config.BcryptCost < bcrypt.MinCost || config.BcryptCost > bcrypt.MaxCost {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		userRepo: userRepo,
		tokens:   tokens,
		config:   config,
		metrics:  metrics,
		logger:   logger,
	}
}

// Register はアカウントを作成し、アクセストークンを発行する。
// ユーザー名またはメールアドレスが既に使われている場合はUSER_ALREADY_EXISTSを返す。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if err := validateRegisterInput(&input); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByUsernameOrEmail(ctx, input.Username, input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, model.NewUserAlreadyExistsError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         input.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// 存在確認後に別リクエストが同じ値で登録した場合
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewUserAlreadyExistsError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("ユーザーを登録しました",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return &AuthResult{AccessToken: token, User: user}, nil
}

// Login はメールアドレスとパスワードを検証し、アクセストークンを発行する。
// メールアドレス不明・パスワード不一致・無効化済みアカウントは区別せずINVALID_CREDENTIALSを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.IsActive {
		s.recordLogin(LoginResultFailure)
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordLogin(LoginResultFailure)
		return nil, model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.recordLogin(LoginResultSuccess)
	return &AuthResult{AccessToken: token, User: user}, nil
}

// ValidateToken はアクセストークンを検証してクレームを返す。
func (s *Service) ValidateToken(token string) (*Claims, error) {
	return s.tokens.ValidateToken(token)
}

// Profile はログイン中ユーザーのプロフィールを返す。
func (s *Service) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

func (s *Service) recordLogin(result string) {
	if s.metrics != nil {
		s.metrics.RecordLogin(result)
	}
}

func validateRegisterInput(input *RegisterInput) error {
	if input.Username == "" {
		return model.NewValidationError("usernameは必須です")
	}
	if len(input.Username) > 100 {
		return model.NewValidationError("usernameは100文字以内で指定してください")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil || !strings.Contains(input.Email, "@") {
		return model.NewValidationError("emailの形式が正しくありません")
	}
	if len(input.Password) < minPasswordLength {
		return model.NewValidationError(fmt.Sprintf("passwordは%d文字以上で指定してください", minPasswordLength))
	}
	// bcryptは72バイトを超える入力を扱えない
	if len(input.Password) > 72 {
		return model.NewValidationError("passwordは72バイト以内で指定してください")
	}

	if input.Role == "" {
		input.Role = model.RoleUser
	}
	// 管理者アカウントは自己登録できない
	if input.Role != model.RoleUser && input.Role != model.RoleContributor {
		return model.NewValidationError("roleにはuserまたはcontributorを指定してください")
	}
	return nil
}
