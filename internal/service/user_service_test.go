package service_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/nutq-platform/nutq-api/internal/dto"
	"github.com/nutq-platform/nutq-api/internal/models"
	"github.com/nutq-platform/nutq-api/internal/repository"
	"github.com/nutq-platform/nutq-api/internal/service"
)

func setupUserService(t *testing.T, cache *redis.Client) (service.UserService, *gorm.DB) {
	t.Helper()

	db := openTestDB(t)
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := service.NewUserService(
		repository.NewUserRepository(db),
		repository.NewExamRepository(db),
		validate,
		cache,
		time.Minute,
		testLogger(),
	)

	return svc, db
}

func TestUserServiceStatsServedFromCache(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	cache := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer cache.Close()

	svc, db := setupUserService(t, cache)

	student := seedStudent(t, db, "aisha")
	student.AverageScore = 75
	require.NoError(t, db.Save(&student).Error)

	template := seedTemplate(t, db)
	now := time.Now()
	evaluatedAt := now
	require.NoError(t, db.Create(&models.Exam{StudentID: student.ID, TemplateID: template.ID, Status: models.ExamStatusEvaluated, TotalScore: 75, SubmittedAt: now, EvaluatedAt: &evaluatedAt}).Error)
	require.NoError(t, db.Create(&models.Exam{StudentID: student.ID, TemplateID: template.ID, Status: models.ExamStatusSubmitted, SubmittedAt: now}).Error)

	stats, err := svc.Stats(context.Background(), student.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stats.ExamsTaken)
	require.Equal(t, 1, stats.Evaluated)
	require.Equal(t, 75.0, stats.AverageScore)

	// Remove the exams; a cached copy keeps serving the previous counts.
	require.NoError(t, db.Where("student_id = ?", student.ID).Delete(&models.Exam{}).Error)

	cached, err := svc.Stats(context.Background(), student.ID)
	require.NoError(t, err)
	require.Equal(t, 2, cached.ExamsTaken)
	require.Equal(t, 1, cached.Evaluated)
}

func TestUserServiceStatsWithoutCache(t *testing.T) {
	svc, db := setupUserService(t, nil)

	student := seedStudent(t, db, "aisha")

	stats, err := svc.Stats(context.Background(), student.ID)
	require.NoError(t, err)
	require.Zero(t, stats.ExamsTaken)
	require.Zero(t, stats.Evaluated)

	_, err = svc.Stats(context.Background(), student.ID+99)
	require.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestUserServiceUpdateRejectsTakenUsername(t *testing.T) {
	svc, db := setupUserService(t, nil)

	seedStudent(t, db, "aisha")
	other := seedStudent(t, db, "bilal")

	username := "aisha"
	_, err := svc.Update(context.Background(), other.ID, dto.UserUpdateRequest{Username: &username})
	require.ErrorIs(t, err, service.ErrUsernameTaken)

	firstName := "Bilal"
	updated, err := svc.Update(context.Background(), other.ID, dto.UserUpdateRequest{FirstName: &firstName})
	require.NoError(t, err)
	require.Equal(t, "Bilal", updated.FirstName)
}

func TestUserServiceResetPassword(t *testing.T) {
	svc, db := setupUserService(t, nil)

	student := seedStudent(t, db, "aisha")

	err := svc.ResetPassword(context.Background(), student.ID, dto.ResetPasswordRequest{Password: "abc"})
	require.Error(t, err)

	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)

	require.NoError(t, svc.ResetPassword(context.Background(), student.ID, dto.ResetPasswordRequest{Password: "n3w-secret"}))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, student.ID).Error)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(reloaded.PasswordHash), []byte("n3w-secret")))
}

func TestUserServiceDeleteProtectsAdmins(t *testing.T) {
	svc, db := setupUserService(t, nil)

	admin := models.User{FirstName: "Noor", LastName: "Haddad", Username: "noor", PasswordHash: "x", Role: models.RoleAdmin}
	require.NoError(t, db.Create(&admin).Error)
	student := seedStudent(t, db, "aisha")

	require.ErrorIs(t, svc.Delete(context.Background(), admin.ID), service.ErrCannotDeleteAdmin)

	require.NoError(t, svc.Delete(context.Background(), student.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), student.ID), service.ErrUserNotFound)
}

func TestUserServiceList(t *testing.T) {
	svc, db := setupUserService(t, nil)

	seedStudent(t, db, "aisha")
	seedStudent(t, db, "bilal")

	users, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
}
