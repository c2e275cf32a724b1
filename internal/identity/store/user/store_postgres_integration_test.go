//go:build integration

package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"storefront/internal/identity/models"
	"storefront/internal/identity/store/user"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/testutil/containers"
)

type PostgresUserStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *user.PostgresStore
}

func TestPostgresUserStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresUserStoreSuite))
}

func (s *PostgresUserStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = user.NewPostgres(s.postgres.DB)
}

func (s *PostgresUserStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "users"))
}

func (s *PostgresUserStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	u := &models.User{ID: id.NewUserID(), Email: "ana@example.com", PasswordHash: "hash", CreatedAt: time.Now().UTC()}
	s.Require().NoError(s.store.Create(ctx, u))

	byEmail, err := s.store.FindByEmail(ctx, "ANA@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)

	byID, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("hash", byID.PasswordHash)
}

func (s *PostgresUserStoreSuite) TestDuplicateEmailIsAlreadyUsed() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, &models.User{ID: id.NewUserID(), Email: "ana@example.com", PasswordHash: "h", CreatedAt: time.Now()}))

	err := s.store.Create(ctx, &models.User{ID: id.NewUserID(), Email: "Ana@Example.com", PasswordHash: "h", CreatedAt: time.Now()})
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresUserStoreSuite) TestMissing() {
	_, err := s.store.FindByID(context.Background(), id.NewUserID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
