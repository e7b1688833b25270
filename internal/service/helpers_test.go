package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seller-rotation/internal/database"
	"github.com/iliyamo/seller-rotation/internal/model"
)

// testNow renders as 14/03/2025 10:30:00 on the display clock.
var testNow = time.Date(2025, 3, 14, 8, 30, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("client-test-%d", n.Add(1)) }
}

// recordingSink collects published exports.
type recordingSink struct {
	mu      sync.Mutex
	exports []model.DayExport
	err     error
}

func (s *recordingSink) PublishDayClosed(_ context.Context, export model.DayExport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports = append(s.exports, export)
	return s.err
}

// blockingSink waits for its context to end and keeps the reason.
type blockingSink struct {
	err error
}

func (s *blockingSink) PublishDayClosed(ctx context.Context, _ model.DayExport) error {
	<-ctx.Done()
	s.err = ctx.Err()
	return s.err
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	db, err := database.Open(context.Background(), database.Settings{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "rotation.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	base := []Option{
		WithClock(fixedClock{testNow}),
		WithIDGenerator(sequentialIDs()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return NewEngine(db, append(base, opts...)...)
}

func sellerByName(t *testing.T, sellers []model.Seller, name string) model.Seller {
	t.Helper()
	for _, s := range sellers {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("seller %q not in roster", name)
	return model.Seller{}
}

func names(sellers []model.Seller) []string {
	out := make([]string, len(sellers))
	for i, s := range sellers {
		out[i] = s.Name
	}
	return out
}
