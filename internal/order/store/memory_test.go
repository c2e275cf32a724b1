package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"storefront/internal/order/models"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	clock time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = New()
	s.clock = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.store.now = func() time.Time {
		s.clock = s.clock.Add(time.Minute)
		return s.clock
	}
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) order(owner id.UserID) *models.Order {
	o, err := models.NewOrder(owner, []models.Line{
		{ProductID: id.NewProductID(), Name: "Lamp", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2},
	})
	s.Require().NoError(err)
	return o
}

func (s *InMemoryStoreSuite) TestInsertAssignsID() {
	o := s.order(id.NewUserID())
	orderID, err := s.store.Insert(s.ctx, o)
	s.Require().NoError(err)
	s.False(orderID.IsNil())
	s.Equal(orderID, o.ID)
	s.False(o.CreatedAt.IsZero())

	found, err := s.store.FindByID(s.ctx, orderID)
	s.Require().NoError(err)
	s.True(found.Total.Equal(decimal.RequireFromString("20.00")))
	s.Require().Len(found.Lines, 1)
}

func (s *InMemoryStoreSuite) TestStoredOrderIsImmutable() {
	o := s.order(id.NewUserID())
	orderID, err := s.store.Insert(s.ctx, o)
	s.Require().NoError(err)

	o.Lines[0].Quantity = 7
	found, err := s.store.FindByID(s.ctx, orderID)
	s.Require().NoError(err)
	s.Equal(2, found.Lines[0].Quantity)

	found.Lines[0].Quantity = 9
	again, err := s.store.FindByID(s.ctx, orderID)
	s.Require().NoError(err)
	s.Equal(2, again.Lines[0].Quantity)
}

func (s *InMemoryStoreSuite) TestListByOwnerNewestFirst() {
	owner := id.NewUserID()
	first, err := s.store.Insert(s.ctx, s.order(owner))
	s.Require().NoError(err)
	second, err := s.store.Insert(s.ctx, s.order(owner))
	s.Require().NoError(err)
	_, err = s.store.Insert(s.ctx, s.order(id.NewUserID()))
	s.Require().NoError(err)

	list, err := s.store.ListByOwner(s.ctx, owner)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(second, list[0].ID)
	s.Equal(first, list[1].ID)
}

func (s *InMemoryStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(s.ctx, id.NewOrderID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
