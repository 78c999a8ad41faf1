package postgres

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// dummyHash is compared against when the email is unknown so both paths cost one bcrypt round.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("authcore-timing-equalizer"), bcrypt.DefaultCost)

// UserRepoImpl serves users, roles and permissions from the relational store.
type UserRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

var (
	_ service.PermissionSource   = (*UserRepoImpl)(nil)
	_ service.UserDirectory      = (*UserRepoImpl)(nil)
	_ service.UsernameChecker    = (*UserRepoImpl)(nil)
	_ service.CredentialVerifier = (*UserRepoImpl)(nil)
)

// NewUserRepository creates a repository over db.
func NewUserRepository(db *gorm.DB, log logger.Logger) *UserRepoImpl {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &UserRepoImpl{db: db, logger: log.WithComponent("user_repository")}
}

// Migrate creates or updates the schema.
func (r *UserRepoImpl) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&PermissionRecord{}, &RoleRecord{}, &UserRecord{}); err != nil {
		return errors.ErrInfrastructure("schema migration", err)
	}
	return nil
}

// ================================================================================
// Reads
// ================================================================================

// FindByEmail returns found=false for an unknown address. email must already be normalized.
func (r *UserRepoImpl) FindByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	record, err := r.findBy(ctx, "email = ?", email)
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return record.toModel(), true, nil
}

// FindByID returns found=false for an unknown id.
func (r *UserRepoImpl) FindByID(ctx context.Context, userID string) (*models.User, bool, error) {
	record, err := r.findBy(ctx, "id = ?", userID)
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return record.toModel(), true, nil
}

// UsersWithRole lists the holders of roleName.
func (r *UserRepoImpl) UsersWithRole(ctx context.Context, roleName string) ([]models.User, error) {
	var records []UserRecord
	err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name = ?", roleName).
		Find(&records).Error
	if err != nil {
		r.logger.Error(ctx, "Role holder lookup failed", err, logger.String("role", roleName))
		return nil, errors.ErrInfrastructure("role holder lookup", err)
	}
	users := make([]models.User, 0, len(records))
	for _, rec := range records {
		users = append(users, *rec.toModel())
	}
	return users, nil
}

// Exists reports whether username is assigned.
func (r *UserRepoImpl) Exists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&UserRecord{}).Where("username = ?", username).Count(&count).Error
	if err != nil {
		r.logger.Error(ctx, "Username existence check failed", err, logger.String("username", username))
		return false, errors.ErrInfrastructure("username lookup", err)
	}
	return count > 0, nil
}

// EffectivePermissions returns the union of the permissions held through the user's roles.
// An unknown user is NotFound. A disabled user holds nothing.
func (r *UserRepoImpl) EffectivePermissions(ctx context.Context, userID string) ([]models.Permission, error) {
	start := time.Now()
	record, err := r.findBy(ctx, "id = ?", userID)
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrNotFound("user")
	}
	if err != nil {
		return nil, err
	}
	if !record.Enabled {
		return []models.Permission{}, nil
	}

	roles := make([]models.Role, 0, len(record.Roles))
	for _, role := range record.Roles {
		roles = append(roles, role.toModel())
	}
	perms := models.EffectivePermissions(roles)

	r.logger.Debug(ctx, "Effective permissions resolved",
		logger.String("user_id", userID),
		logger.Int("roles", len(roles)),
		logger.Int("permissions", len(perms)),
		logger.Int64("latency_ms", time.Since(start).Milliseconds()))
	return perms, nil
}

// VerifyCredentials compares password against the stored bcrypt hash. Unknown emails and wrong
// passwords both return ok=false with a nil error.
func (r *UserRepoImpl) VerifyCredentials(ctx context.Context, email, password string) (*models.User, bool, error) {
	record, err := r.findBy(ctx, "email = ?", email)
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)); err != nil {
		return nil, false, nil
	}
	return record.toModel(), true, nil
}

func (r *UserRepoImpl) findBy(ctx context.Context, query string, arg interface{}) (*UserRecord, error) {
	var record UserRecord
	err := r.db.WithContext(ctx).Preload("Roles.Permissions").Where(query, arg).First(&record).Error
	if err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound) {
		r.logger.Error(ctx, "User lookup failed", err)
		return nil, errors.ErrInfrastructure("user lookup", err)
	}
	return &record, err
}

// ================================================================================
// Writes
// ================================================================================

// NewUser is the input of CreateUser.
type NewUser struct {
	Email    string
	Username string
	Password string
	Enabled  bool
	Roles    []string
}

// CreateUser hashes the password and stores the user with the named roles, which must exist.
func (r *UserRepoImpl) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	email, err := models.NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	username := models.NormalizeUsername(in.Username)
	if err := models.ValidateUsername(username); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Password) == "" {
		return nil, errors.ErrInvalidArgument("password", "must not be blank")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.ErrInvalidArgument("password", err.Error())
	}

	record := UserRecord{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Enabled:      in.Enabled,
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(in.Roles) > 0 {
			if err := tx.Where("name IN ?", in.Roles).Find(&record.Roles).Error; err != nil {
				return err
			}
			if len(record.Roles) != len(in.Roles) {
				return errors.ErrNotFound("role")
			}
		}
		return tx.Create(&record).Error
	})
	if errors.IsNotFoundError(err) {
		return nil, err
	}
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, errors.NewError(errors.KindConflict, "user_exists", "email or username already registered")
	}
	if err != nil {
		r.logger.Error(ctx, "Failed to create user", err, logger.String("email", email))
		return nil, errors.ErrInfrastructure("user insert", err)
	}
	r.logger.Info(ctx, "User created", logger.String("user_id", record.ID))
	return record.toModel(), nil
}

// UpsertRole creates or replaces a role and its permissions.
func (r *UserRepoImpl) UpsertRole(ctx context.Context, role models.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := RoleRecord{Name: role.Name}
		if err := tx.Where(RoleRecord{Name: role.Name}).FirstOrCreate(&record).Error; err != nil {
			return errors.ErrInfrastructure("role upsert", err)
		}

		perms := make([]PermissionRecord, 0, len(role.Permissions))
		for _, p := range role.Permissions {
			var pr PermissionRecord
			identity := PermissionRecord{Resource: p.Resource, Action: p.Action, Name: p.Name}
			if err := tx.Where(identity).FirstOrCreate(&pr).Error; err != nil {
				return errors.ErrInfrastructure("permission upsert", err)
			}
			perms = append(perms, pr)
		}
		if err := tx.Model(&record).Association("Permissions").Replace(perms); err != nil {
			return errors.ErrInfrastructure("role permissions", err)
		}
		return nil
	})
}

// SetEnabled enables or disables a user.
func (r *UserRepoImpl) SetEnabled(ctx context.Context, userID string, enabled bool) error {
	res := r.db.WithContext(ctx).Model(&UserRecord{}).Where("id = ?", userID).Update("enabled", enabled)
	if res.Error != nil {
		return errors.ErrInfrastructure("user update", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.ErrNotFound("user")
	}
	return nil
}

//Personal.AI order the ending
