package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"storefront/internal/cart/models"
	"storefront/internal/cart/slot"
	"storefront/internal/money"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
)

type StoreSuite struct {
	suite.Suite
	ctx    context.Context
	slots  *slot.Memory
	cartID id.CartID
	store  *Store
	lamp   models.Product
	mug    models.Product
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.slots = slot.NewMemory()
	s.cartID = id.NewCartID()
	s.store = Load(s.ctx, s.cartID, s.slots.Slot(s.cartID), WithLogger(discardLogger()))
	s.lamp = models.Product{ID: id.NewProductID(), Name: "Lamp", Price: decimal.RequireFromString("10.00")}
	s.mug = models.Product{ID: id.NewProductID(), Name: "Mug", Price: decimal.RequireFromString("5.50")}
}

func (s *StoreSuite) reload() *Store {
	return Load(s.ctx, s.cartID, s.slots.Slot(s.cartID), WithLogger(discardLogger()))
}

func (s *StoreSuite) line(pid id.ProductID) (models.Line, bool) {
	for _, l := range s.store.Lines() {
		if l.ProductID == pid {
			return l, true
		}
	}
	return models.Line{}, false
}

func (s *StoreSuite) TestAddItem() {
	s.Run("adding the same product twice yields one line with quantity 2", func() {
		s.store.AddItem(s.ctx, s.lamp)
		s.store.AddItem(s.ctx, s.lamp)

		lines := s.store.Lines()
		s.Require().Len(lines, 1)
		s.Equal(2, lines[0].Quantity)
	})

	s.Run("existing line keeps its captured price", func() {
		repriced := s.lamp
		repriced.Price = decimal.RequireFromString("99.00")
		s.store.AddItem(s.ctx, repriced)

		l, ok := s.line(s.lamp.ID)
		s.Require().True(ok)
		s.Equal(3, l.Quantity)
		s.Equal("10.00", money.Format(l.UnitPrice))
	})

	s.Run("lines keep insertion order", func() {
		s.store.AddItem(s.ctx, s.mug)
		lines := s.store.Lines()
		s.Require().Len(lines, 2)
		s.Equal(s.lamp.ID, lines[0].ProductID)
		s.Equal(s.mug.ID, lines[1].ProductID)
	})
}

func (s *StoreSuite) TestTotal() {
	s.True(s.store.Total().IsZero())

	s.store.AddItem(s.ctx, s.lamp)
	s.store.AddItem(s.ctx, s.lamp)
	s.store.AddItem(s.ctx, s.mug)

	s.Equal("25.50", money.Format(s.store.Total()))
}

func (s *StoreSuite) TestRemoveItem() {
	s.store.AddItem(s.ctx, s.lamp)
	s.store.AddItem(s.ctx, s.lamp)
	s.store.AddItem(s.ctx, s.mug)

	s.store.RemoveItem(s.ctx, s.lamp.ID)
	_, ok := s.line(s.lamp.ID)
	s.False(ok)
	s.Equal("5.50", money.Format(s.store.Total()))

	s.store.RemoveItem(s.ctx, id.NewProductID())
	s.Len(s.store.Lines(), 1)
}

func (s *StoreSuite) TestDecrementQuantity() {
	s.Run("quantity above one drops by one and total by the unit price", func() {
		s.store.AddItem(s.ctx, s.lamp)
		s.store.AddItem(s.ctx, s.lamp)
		s.store.AddItem(s.ctx, s.lamp)
		before := s.store.Total()

		s.store.DecrementQuantity(s.ctx, s.lamp.ID)

		l, ok := s.line(s.lamp.ID)
		s.Require().True(ok)
		s.Equal(2, l.Quantity)
		s.True(before.Sub(s.store.Total()).Equal(s.lamp.Price))
	})

	s.Run("quantity one removes the line", func() {
		s.store.AddItem(s.ctx, s.mug)
		s.store.DecrementQuantity(s.ctx, s.mug.ID)

		_, ok := s.line(s.mug.ID)
		s.False(ok)
	})

	s.Run("absent product is a no-op", func() {
		s.store.DecrementQuantity(s.ctx, id.NewProductID())
		s.Len(s.store.Lines(), 1)
	})
}

func (s *StoreSuite) TestSetQuantity() {
	s.store.AddItem(s.ctx, s.lamp)

	s.Run("valid quantity replaces", func() {
		s.Require().NoError(s.store.SetQuantity(s.ctx, s.lamp.ID, "4"))
		l, _ := s.line(s.lamp.ID)
		s.Equal(4, l.Quantity)
	})

	for _, bad := range []string{"0", "abc", "-2", "1.5", ""} {
		s.Run("rejects "+bad, func() {
			err := s.store.SetQuantity(s.ctx, s.lamp.ID, bad)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidQuantity))

			l, ok := s.line(s.lamp.ID)
			s.Require().True(ok)
			s.Equal(4, l.Quantity)
		})
	}

	s.Run("absent product is ignored", func() {
		s.NoError(s.store.SetQuantity(s.ctx, id.NewProductID(), "3"))
		s.Len(s.store.Lines(), 1)
	})
}

func (s *StoreSuite) TestClear() {
	s.store.AddItem(s.ctx, s.lamp)

	s.store.Clear(s.ctx)
	s.Empty(s.store.Lines())
	s.True(s.store.Total().IsZero())

	s.store.Clear(s.ctx)
	s.Empty(s.store.Lines())
	s.Empty(s.reload().Lines())
}

func (s *StoreSuite) TestWriteThrough() {
	s.store.AddItem(s.ctx, s.lamp)
	s.store.AddItem(s.ctx, s.lamp)
	s.store.AddItem(s.ctx, s.mug)
	s.store.DecrementQuantity(s.ctx, s.mug.ID)

	restored := s.reload()
	lines := restored.Lines()
	s.Require().Len(lines, 1)
	s.Equal(s.lamp.ID, lines[0].ProductID)
	s.Equal(2, lines[0].Quantity)
	s.Equal("20.00", money.Format(restored.Total()))

	raw, ok := s.slots.Get(slot.Key(s.cartID))
	s.Require().True(ok)
	s.Contains(string(raw), `"items"`)
}

func (s *StoreSuite) TestMalformedSlotIsDiscarded() {
	for name, payload := range map[string]string{
		"garbage":        `not json at all`,
		"zero quantity":  `{"items":[{"productId":"550e8400-e29b-41d4-a716-446655440000","name":"x","unitPrice":1,"quantity":0}]}`,
		"negative price": `{"items":[{"productId":"550e8400-e29b-41d4-a716-446655440000","name":"x","unitPrice":-3,"quantity":1}]}`,
	} {
		s.Run(name, func() {
			s.slots.Put(slot.Key(s.cartID), []byte(payload))

			restored := s.reload()

			s.Empty(restored.Lines())
			raw, _ := s.slots.Get(slot.Key(s.cartID))
			s.JSONEq(`{"items":[]}`, string(raw))
		})
	}
}

type failingSlot struct{ saves int }

func (f *failingSlot) Load(context.Context) ([]byte, error) { return nil, errors.New("offline") }
func (f *failingSlot) Save(context.Context, []byte) error {
	f.saves++
	return errors.New("disk full")
}

func (s *StoreSuite) TestPersistFailureIsNotSurfaced() {
	fs := &failingSlot{}
	store := Load(s.ctx, id.NewCartID(), fs, WithLogger(discardLogger()))

	store.AddItem(s.ctx, s.lamp)
	s.Require().NoError(store.SetQuantity(s.ctx, s.lamp.ID, "3"))

	s.Equal(2, fs.saves)
	s.Equal("30.00", money.Format(store.Total()))
}

func (s *StoreSuite) TestSnapshotIsIsolated() {
	s.store.AddItem(s.ctx, s.lamp)
	snap := s.store.Snapshot()

	s.store.AddItem(s.ctx, s.lamp)
	snap.Lines[0].Quantity = 50

	s.Equal(50, snap.ItemCount())
	l, _ := s.line(s.lamp.ID)
	s.Equal(2, l.Quantity)
}

func (s *StoreSuite) TestSettle() {
	s.Run("unchanged cart ends empty", func() {
		s.store.AddItem(s.ctx, s.lamp)
		s.store.AddItem(s.ctx, s.mug)
		snap := s.store.Snapshot()

		s.store.Settle(s.ctx, snap)

		s.Empty(s.store.Lines())
		s.Empty(s.reload().Lines())
	})

	s.Run("items added after the snapshot survive", func() {
		s.store.AddItem(s.ctx, s.lamp)
		snap := s.store.Snapshot()
		s.store.AddItem(s.ctx, s.lamp)
		s.store.AddItem(s.ctx, s.mug)

		s.store.Settle(s.ctx, snap)

		lines := s.store.Lines()
		s.Require().Len(lines, 2)
		s.Equal(1, lines[0].Quantity)
		s.Equal(s.mug.ID, lines[1].ProductID)
	})
}

func (s *StoreSuite) TestConcurrentAdds() {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.store.AddItem(s.ctx, s.lamp)
		}()
	}
	wg.Wait()

	lines := s.store.Lines()
	s.Require().Len(lines, 1)
	s.Equal(50, lines[0].Quantity)
	s.Equal(50, s.reload().Lines()[0].Quantity)
}
