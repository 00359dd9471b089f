// Package seed はYAMLフィクスチャからジャンルとアカウントを投入する。
// 既存のジャンルとアカウントはそのまま残すため、何度実行してもよい。
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/hitoshi/mangashelf/internal/model"
	"github.com/hitoshi/mangashelf/internal/repository"
)

// Fixture はシードファイルの内容。
type Fixture struct {
	Genres []string      `yaml:"genres"`
	Users  []UserFixture `yaml:"users"`
}

// UserFixture はシードで作成するアカウント。
type UserFixture struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// Result は投入結果の件数。
type Result struct {
	Genres       int
	UsersCreated int
	UsersSkipped int
}

// GenreStore はジャンルの取得または作成のインターフェース。
type GenreStore interface {
	FindOrCreate(ctx context.Context, name string) (*model.Genre, error)
}

// Loader はフィクスチャをデータベースに投入する。
type Loader struct {
	genres     GenreStore
	users      repository.UserRepository
	bcryptCost int
	logger     *slog.Logger
}

// NewLoader はLoaderを生成する。
func NewLoader(genres GenreStore, users repository.UserRepository, bcryptCost int, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Loader{genres: genres, users: users, bcryptCost: bcryptCost, logger: logger}
}

// Parse はYAMLを読み込んでFixtureを検証する。
func Parse(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("シードファイルのパースに失敗しました: %w", err)
	}

	for i, u := range f.Users {
		if strings.TrimSpace(u.Username) == "" || strings.TrimSpace(u.Email) == "" || u.Password == "" {
			return nil, fmt.Errorf("users[%d]: username, email, passwordは必須です", i)
		}
		if u.Role == "" {
			f.Users[i].Role = string(model.RoleUser)
		} else if !model.Role(u.Role).Valid() {
			return nil, fmt.Errorf("users[%d]: 不正なロールです: %s", i, u.Role)
		}
	}
	return &f, nil
}

// LoadFile はファイルを読み込んで投入する。
func (l *Loader) LoadFile(ctx context.Context, path string) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("シードファイルを開けません: %w", err)
	}
	defer file.Close()

	f, err := Parse(file)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, f)
}

// Load はフィクスチャを投入する。
func (l *Loader) Load(ctx context.Context, f *Fixture) (*Result, error) {
	res := &Result{}

	for _, name := range f.Genres {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, err := l.genres.FindOrCreate(ctx, name); err != nil {
			return res, fmt.Errorf("ジャンル %q の投入に失敗しました: %w", name, err)
		}
		res.Genres++
	}

	for _, u := range f.Users {
		created, err := l.createUser(ctx, u)
		if err != nil {
			return res, fmt.Errorf("アカウント %q の投入に失敗しました: %w", u.Email, err)
		}
		if created {
			res.UsersCreated++
		} else {
			res.UsersSkipped++
		}
	}

	l.logger.Info("シードデータを投入しました",
		slog.Int("genres", res.Genres),
		slog.Int("users_created", res.UsersCreated),
		slog.Int("users_skipped", res.UsersSkipped),
	)
	return res, nil
}

func (l *Loader) createUser(ctx context.Context, u UserFixture) (bool, error) {
	username := strings.TrimSpace(u.Username)
	email := strings.ToLower(strings.TrimSpace(u.Email))

	exists, err := l.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), l.bcryptCost)
	if err != nil {
		return false, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := time.Now()
	err = l.users.Create(ctx, &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.Role(u.Role),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
