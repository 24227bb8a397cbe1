package app

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/woifh/tcz-server-sub001/internal/clock"
	"github.com/woifh/tcz-server-sub001/internal/domain"
	"github.com/woifh/tcz-server-sub001/internal/notify"
)

func TestBlockService_CreateBlock(t *testing.T) {
	t.Parallel()

	admin := uuid.New()
	blockDate := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	now := testZone.At(2025, time.June, 1, 12)

	t.Run("cascades cancellation with reason text", func(t *testing.T) {
		reason := domain.BlockReason{ID: uuid.New(), Name: "Vereinsmeisterschaft"}
		alice, aliceBooker := uuid.New(), uuid.New()
		bob := uuid.New()

		inRange := activeReservation(t, 1, testZone.At(2025, time.June, 2, 10), alice, false)
		inRange.BookedBy = aliceBooker
		alsoInRange := activeReservation(t, 1, testZone.At(2025, time.June, 2, 11), bob, false)
		outside := activeReservation(t, 1, testZone.At(2025, time.June, 2, 14), bob, false)
		otherCourt := activeReservation(t, 3, testZone.At(2025, time.June, 2, 10), bob, false)

		repo := newFakeBlockRepo([]domain.BlockReason{reason}, []domain.Reservation{inRange, alsoInRange, outside, otherCourt})
		audit := &fakeAudit{}
		dispatcher := &fakeDispatcher{}
		svc := NewBlockService(repo, audit, dispatcher, clock.NewFixed(now), testZone)

		result, err := svc.CreateBlock(context.Background(), CreateBlockInput{
			Courts:    []int{1, 2},
			Date:      blockDate,
			StartHour: 10,
			EndHour:   12,
			ReasonID:  reason.ID,
			Actor:     admin,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(result.Blocks) != 2 {
			t.Fatalf("expected one block per court, got %d", len(result.Blocks))
		}
		if len(result.Cancelled) != 2 {
			t.Fatalf("expected 2 cancelled reservations, got %d", len(result.Cancelled))
		}
		for _, res := range result.Cancelled {
			if res.CancelReason != reason.Name {
				t.Fatalf("expected cancel reason %q, got %q", reason.Name, res.CancelReason)
			}
		}
		if repo.reservations[outside.ID].Status != domain.ReservationStatusActive {
			t.Fatalf("reservation outside the range must survive")
		}
		if repo.reservations[otherCourt.ID].Status != domain.ReservationStatusActive {
			t.Fatalf("reservation on another court must survive")
		}

		// inRange has distinct booked-for and booked-by: 3 events total.
		if len(dispatcher.events) != 3 {
			t.Fatalf("expected 3 displacement events, got %d", len(dispatcher.events))
		}
		for _, ev := range dispatcher.events {
			if ev.Type != notify.EventReservationDisplaced {
				t.Fatalf("expected displaced event, got %s", ev.Type)
			}
			if ev.Reason != reason.Name {
				t.Fatalf("expected event reason %q, got %q", reason.Name, ev.Reason)
			}
		}

		if len(audit.entries) != 2 {
			t.Fatalf("expected one audit entry per block, got %d", len(audit.entries))
		}
		for _, entry := range audit.entries {
			if entry.Operation != "block.create" || entry.Actor != admin {
				t.Fatalf("unexpected audit entry: %+v", entry)
			}
		}
	})

	t.Run("unknown reason creates nothing", func(t *testing.T) {
		repo := newFakeBlockRepo(nil, nil)
		svc := NewBlockService(repo, &fakeAudit{}, &fakeDispatcher{}, clock.NewFixed(now), testZone)

		_, err := svc.CreateBlock(context.Background(), CreateBlockInput{
			Courts:    []int{1},
			Date:      blockDate,
			StartHour: 10,
			EndHour:   12,
			ReasonID:  uuid.New(),
			Actor:     admin,
		})
		if err != domain.ErrReasonNotFound {
			t.Fatalf("expected ErrReasonNotFound, got %v", err)
		}
		if len(repo.blocks) != 0 {
			t.Fatalf("expected no blocks, got %d", len(repo.blocks))
		}
	})

	t.Run("audit failure rolls the block back", func(t *testing.T) {
		reason := domain.BlockReason{ID: uuid.New(), Name: "Platzpflege"}
		victim := activeReservation(t, 1, testZone.At(2025, time.June, 2, 10), uuid.New(), false)
		repo := newFakeBlockRepo([]domain.BlockReason{reason}, []domain.Reservation{victim})
		dispatcher := &fakeDispatcher{}
		svc := NewBlockService(repo, &fakeAudit{err: errors.New("audit store down")}, dispatcher, clock.NewFixed(now), testZone)

		_, err := svc.CreateBlock(context.Background(), CreateBlockInput{
			Courts:    []int{1},
			Date:      blockDate,
			StartHour: 10,
			EndHour:   12,
			ReasonID:  reason.ID,
			Actor:     admin,
		})
		if err == nil {
			t.Fatalf("expected audit failure to propagate")
		}
		if len(repo.blocks) != 0 {
			t.Fatalf("block must roll back with the audit failure")
		}
		if repo.reservations[victim.ID].Status != domain.ReservationStatusActive {
			t.Fatalf("cascade must roll back with the audit failure")
		}
		if len(dispatcher.events) != 0 {
			t.Fatalf("no notifications for a rolled back block")
		}
	})

	t.Run("input validation", func(t *testing.T) {
		repo := newFakeBlockRepo(nil, nil)
		svc := NewBlockService(repo, &fakeAudit{}, &fakeDispatcher{}, clock.NewFixed(now), testZone)

		if _, err := svc.CreateBlock(context.Background(), CreateBlockInput{Courts: nil, Date: blockDate, StartHour: 10, EndHour: 12}); err != domain.ErrInvalidCourt {
			t.Fatalf("expected ErrInvalidCourt for empty courts, got %v", err)
		}
		if _, err := svc.CreateBlock(context.Background(), CreateBlockInput{Courts: []int{7}, Date: blockDate, StartHour: 10, EndHour: 12}); err != domain.ErrInvalidCourt {
			t.Fatalf("expected ErrInvalidCourt for court 7, got %v", err)
		}
		if _, err := svc.CreateBlock(context.Background(), CreateBlockInput{Courts: []int{1}, Date: blockDate, StartHour: 12, EndHour: 10}); err != domain.ErrInvalidTime {
			t.Fatalf("expected ErrInvalidTime for inverted hours, got %v", err)
		}
	})
}

func TestBlockService_CreateSeries(t *testing.T) {
	t.Parallel()

	admin := uuid.New()
	now := testZone.At(2025, time.June, 1, 12)
	reason := domain.BlockReason{ID: uuid.New(), Name: "Training"}

	t.Run("weekly expansion links all instances", func(t *testing.T) {
		repo := newFakeBlockRepo([]domain.BlockReason{reason}, nil)
		svc := NewBlockService(repo, &fakeAudit{}, &fakeDispatcher{}, clock.NewFixed(now), testZone)

		result, err := svc.CreateSeries(context.Background(), CreateSeriesInput{
			Pattern:   domain.RecurrenceWeekly,
			Weekdays:  []time.Weekday{time.Tuesday, time.Thursday},
			StartDate: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			Courts:    []int{1, 2},
			StartHour: 17,
			EndHour:   19,
			ReasonID:  reason.ID,
			Actor:     admin,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		// 4 dates x 2 courts.
		if len(result.Blocks) != 8 {
			t.Fatalf("expected 8 blocks, got %d", len(result.Blocks))
		}
		for _, b := range result.Blocks {
			if b.SeriesID == nil || *b.SeriesID != result.Series.ID {
				t.Fatalf("block not linked to series: %+v", b)
			}
			if b.ReasonName != reason.Name {
				t.Fatalf("expected snapshotted reason name, got %q", b.ReasonName)
			}
			wd := testZone.ToDisplay(b.Starts).Weekday()
			if wd != time.Tuesday && wd != time.Thursday {
				t.Fatalf("unexpected weekday %s", wd)
			}
		}
		if result.Series.ReasonName != reason.Name {
			t.Fatalf("series must snapshot the reason name")
		}
	})

	t.Run("missing end date creates zero rows", func(t *testing.T) {
		repo := newFakeBlockRepo([]domain.BlockReason{reason}, nil)
		svc := NewBlockService(repo, &fakeAudit{}, &fakeDispatcher{}, clock.NewFixed(now), testZone)

		_, err := svc.CreateSeries(context.Background(), CreateSeriesInput{
			Pattern:   domain.RecurrenceDaily,
			StartDate: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
			Courts:    []int{1},
			StartHour: 17,
			EndHour:   19,
			ReasonID:  reason.ID,
			Actor:     admin,
		})
		if err != domain.ErrSeriesMissingEndDate {
			t.Fatalf("expected ErrSeriesMissingEndDate, got %v", err)
		}
		if len(repo.blocks) != 0 || len(repo.series) != 0 {
			t.Fatalf("expected zero rows, got %d blocks %d series", len(repo.blocks), len(repo.series))
		}
	})

	t.Run("series cascade cancels conflicting reservations", func(t *testing.T) {
		victim := activeReservation(t, 1, testZone.At(2025, time.June, 3, 17), uuid.New(), false)
		repo := newFakeBlockRepo([]domain.BlockReason{reason}, []domain.Reservation{victim})
		dispatcher := &fakeDispatcher{}
		svc := NewBlockService(repo, &fakeAudit{}, dispatcher, clock.NewFixed(now), testZone)

		result, err := svc.CreateSeries(context.Background(), CreateSeriesInput{
			Pattern:   domain.RecurrenceWeekly,
			Weekdays:  []time.Weekday{time.Tuesday},
			StartDate: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC),
			Courts:    []int{1},
			StartHour: 17,
			EndHour:   19,
			ReasonID:  reason.ID,
			Actor:     admin,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(result.Cancelled) != 1 || result.Cancelled[0].ID != victim.ID {
			t.Fatalf("expected the Tuesday reservation cancelled, got %+v", result.Cancelled)
		}
		if len(dispatcher.events) != 1 || dispatcher.events[0].Reason != reason.Name {
			t.Fatalf("expected one displacement event with reason, got %+v", dispatcher.events)
		}
	})
}

func TestBlockService_EditSeries(t *testing.T) {
	t.Parallel()

	admin := uuid.New()
	now := testZone.At(2025, time.June, 1, 12)
	reason := domain.BlockReason{ID: uuid.New(), Name: "Training"}
	newReason := domain.BlockReason{ID: uuid.New(), Name: "Jugendtraining"}

	seedSeries := func(t *testing.T, repo *fakeBlockRepo) (domain.BlockSeries, []domain.Block) {
		t.Helper()
		svc := NewBlockService(repo, &fakeAudit{}, &fakeDispatcher{}, clock.NewFixed(now), testZone)
		result, err := svc.CreateSeries(context.Background(), CreateSeriesInput{
			Pattern:   domain.RecurrenceDaily,
			StartDate: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
			Courts:    []int{1},
			StartHour: 17,
			EndHour:   19,
			ReasonID:  reason.ID,
			Actor:     admin,
		})
		if err != nil {
			t.Fatalf("seed series: %v", err)
		}
		return result.Series, result.Blocks
	}

	t.Run("single edit detaches the instance from bulk edits", func(t *testing.T) {
		repo := newFakeBlockRepo([]domain.BlockReason{reason, newReason}, nil)
		series, blocks := seedSeries(t, repo)
		svc := NewBlockService(repo, &fakeAudit{}, &fakeDispatcher{}, clock.NewFixed(now), testZone)

		sub := "nur Platz 1"
		single, err := svc.EditSeries(context.Background(), series.ID, EditSeriesInput{
			Scope:   domain.ScopeSingle,
			BlockID: blocks[1].ID,
			Changes: BlockChanges{SubReason: &sub},
			Actor:   admin,
		})
		if err != nil {
			t.Fatalf("single edit: %v", err)
		}
		if len(single.Updated) != 1 || !repo.blocks[blocks[1].ID].ModifiedFromSeries {
			t.Fatalf("single edit must flag the instance")
		}

		// A series-wide reason change now skips the detached instance.
		bulk, err := svc.EditSeries(context.Background(), series.ID, EditSeriesInput{
			Scope:   domain.ScopeEntire,
			Changes: BlockChanges{ReasonID: &newReason.ID},
			Actor:   admin,
		})
		if err != nil {
			t.Fatalf("entire edit: %v", err)
		}
		if len(bulk.Updated) != len(blocks)-1 {
			t.Fatalf("expected %d updated instances, got %d", len(blocks)-1, len(bulk.Updated))
		}
		if got := repo.blocks[blocks[1].ID]; got.ReasonName != reason.Name || got.SubReason != sub {
			t.Fatalf("detached instance must keep its own fields, got %+v", got)
		}
		if got := repo.blocks[blocks[0].ID]; got.ReasonName != newReason.Name {
			t.Fatalf("bulk edit must rewrite unmodified instances, got %+v", got)
		}
	})

	t.Run("from date edits only later instances", func(t *testing.T) {
		repo := newFakeBlockRepo([]domain.BlockReason{reason, newReason}, nil)
		series, blocks := seedSeries(t, repo)
		svc := NewBlockService(repo, &fakeAudit{}, &fakeDispatcher{}, clock.NewFixed(now), testZone)

		result, err := svc.EditSeries(context.Background(), series.ID, EditSeriesInput{
			Scope:    domain.ScopeFromDate,
			FromDate: time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
			Changes:  BlockChanges{ReasonID: &newReason.ID},
			Actor:    admin,
		})
		if err != nil {
			t.Fatalf("from date edit: %v", err)
		}
		if len(result.Updated) != 2 {
			t.Fatalf("expected 2 updated instances, got %d", len(result.Updated))
		}
		if repo.blocks[blocks[0].ID].ReasonName != reason.Name {
			t.Fatalf("earlier instance must be untouched")
		}
		if repo.blocks[blocks[3].ID].ReasonName != newReason.Name {
			t.Fatalf("later instance must be rewritten")
		}
	})

	t.Run("time change re-runs the cascade", func(t *testing.T) {
		victim := activeReservation(t, 1, testZone.At(2025, time.June, 3, 15), uuid.New(), false)
		repo := newFakeBlockRepo([]domain.BlockReason{reason}, []domain.Reservation{victim})
		series, _ := seedSeries(t, repo)
		dispatcher := &fakeDispatcher{}
		svc := NewBlockService(repo, &fakeAudit{}, dispatcher, clock.NewFixed(now), testZone)

		startHour, endHour := 15, 17
		result, err := svc.EditSeries(context.Background(), series.ID, EditSeriesInput{
			Scope:   domain.ScopeEntire,
			Changes: BlockChanges{StartHour: &startHour, EndHour: &endHour},
			Actor:   admin,
		})
		if err != nil {
			t.Fatalf("time edit: %v", err)
		}
		if len(result.Cancelled) != 1 || result.Cancelled[0].ID != victim.ID {
			t.Fatalf("expected the newly covered reservation cancelled, got %+v", result.Cancelled)
		}
		if len(dispatcher.events) != 1 {
			t.Fatalf("expected one displacement event, got %d", len(dispatcher.events))
		}
	})

	t.Run("half-set hour change is rejected", func(t *testing.T) {
		repo := newFakeBlockRepo([]domain.BlockReason{reason}, nil)
		series, _ := seedSeries(t, repo)
		svc := NewBlockService(repo, &fakeAudit{}, &fakeDispatcher{}, clock.NewFixed(now), testZone)

		startHour := 15
		_, err := svc.EditSeries(context.Background(), series.ID, EditSeriesInput{
			Scope:   domain.ScopeEntire,
			Changes: BlockChanges{StartHour: &startHour},
			Actor:   admin,
		})
		if err != domain.ErrInvalidTime {
			t.Fatalf("expected ErrInvalidTime, got %v", err)
		}
	})

	t.Run("unknown scope", func(t *testing.T) {
		repo := newFakeBlockRepo([]domain.BlockReason{reason}, nil)
		series, _ := seedSeries(t, repo)
		svc := NewBlockService(repo, &fakeAudit{}, &fakeDispatcher{}, clock.NewFixed(now), testZone)

		_, err := svc.EditSeries(context.Background(), series.ID, EditSeriesInput{
			Scope: domain.SeriesScope("everything"),
			Actor: admin,
		})
		if err != domain.ErrInvalidSeriesScope {
			t.Fatalf("expected ErrInvalidSeriesScope, got %v", err)
		}
	})

	t.Run("unknown series", func(t *testing.T) {
		repo := newFakeBlockRepo([]domain.BlockReason{reason}, nil)
		svc := NewBlockService(repo, &fakeAudit{}, &fakeDispatcher{}, clock.NewFixed(now), testZone)

		_, err := svc.EditSeries(context.Background(), uuid.New(), EditSeriesInput{
			Scope: domain.ScopeEntire,
			Actor: admin,
		})
		if err != domain.ErrSeriesNotFound {
			t.Fatalf("expected ErrSeriesNotFound, got %v", err)
		}
	})
}

func TestBlockService_DeleteSeries(t *testing.T) {
	t.Parallel()

	admin := uuid.New()
	now := testZone.At(2025, time.June, 1, 12)
	reason := domain.BlockReason{ID: uuid.New(), Name: "Training"}

	seed := func(t *testing.T) (*fakeBlockRepo, *BlockService, domain.BlockSeries, []domain.Block) {
		t.Helper()
		repo := newFakeBlockRepo([]domain.BlockReason{reason}, nil)
		svc := NewBlockService(repo, &fakeAudit{}, &fakeDispatcher{}, clock.NewFixed(now), testZone)
		result, err := svc.CreateSeries(context.Background(), CreateSeriesInput{
			Pattern:   domain.RecurrenceDaily,
			StartDate: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
			Courts:    []int{1},
			StartHour: 17,
			EndHour:   19,
			ReasonID:  reason.ID,
			Actor:     admin,
		})
		if err != nil {
			t.Fatalf("seed series: %v", err)
		}
		return repo, svc, result.Series, result.Blocks
	}

	t.Run("entire removes blocks and series row", func(t *testing.T) {
		repo, svc, series, blocks := seed(t)

		result, err := svc.DeleteSeries(context.Background(), series.ID, DeleteSeriesInput{
			Scope: domain.ScopeEntire,
			Actor: admin,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(result.Deleted) != len(blocks) {
			t.Fatalf("expected %d deleted, got %d", len(blocks), len(result.Deleted))
		}
		if len(repo.blocks) != 0 || len(repo.series) != 0 {
			t.Fatalf("expected empty store, got %d blocks %d series", len(repo.blocks), len(repo.series))
		}
	})

	t.Run("future removes instances from the date on", func(t *testing.T) {
		repo, svc, series, _ := seed(t)

		result, err := svc.DeleteSeries(context.Background(), series.ID, DeleteSeriesInput{
			Scope:    domain.ScopeFromDate,
			FromDate: time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
			Actor:    admin,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(result.Deleted) != 2 {
			t.Fatalf("expected 2 deleted, got %d", len(result.Deleted))
		}
		if len(repo.blocks) != 2 {
			t.Fatalf("expected 2 remaining, got %d", len(repo.blocks))
		}
	})

	t.Run("single removes exactly one instance", func(t *testing.T) {
		repo, svc, series, blocks := seed(t)

		result, err := svc.DeleteSeries(context.Background(), series.ID, DeleteSeriesInput{
			Scope:   domain.ScopeSingle,
			BlockID: blocks[2].ID,
			Actor:   admin,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(result.Deleted) != 1 || result.Deleted[0].ID != blocks[2].ID {
			t.Fatalf("unexpected deletion: %+v", result.Deleted)
		}
		if len(repo.blocks) != len(blocks)-1 {
			t.Fatalf("expected %d remaining, got %d", len(blocks)-1, len(repo.blocks))
		}
	})

	t.Run("single rejects a block from another series", func(t *testing.T) {
		repo, svc, series, _ := seed(t)

		stray := domain.Block{ID: uuid.New(), Court: 2, Starts: now, Ends: now.Add(time.Hour)}
		repo.blocks[stray.ID] = stray

		_, err := svc.DeleteSeries(context.Background(), series.ID, DeleteSeriesInput{
			Scope:   domain.ScopeSingle,
			BlockID: stray.ID,
			Actor:   admin,
		})
		if err != domain.ErrBlockNotFound {
			t.Fatalf("expected ErrBlockNotFound, got %v", err)
		}
	})
}

type fakeBlockRepo struct {
	reasons      map[uuid.UUID]domain.BlockReason
	blocks       map[uuid.UUID]domain.Block
	series       map[uuid.UUID]domain.BlockSeries
	reservations map[uuid.UUID]domain.Reservation
	lockedKeys   []string
}

func newFakeBlockRepo(reasons []domain.BlockReason, reservations []domain.Reservation) *fakeBlockRepo {
	f := &fakeBlockRepo{
		reasons:      make(map[uuid.UUID]domain.BlockReason),
		blocks:       make(map[uuid.UUID]domain.Block),
		series:       make(map[uuid.UUID]domain.BlockSeries),
		reservations: make(map[uuid.UUID]domain.Reservation),
	}
	for _, r := range reasons {
		f.reasons[r.ID] = r
	}
	for _, r := range reservations {
		f.reservations[r.ID] = r
	}
	return f
}

func (f *fakeBlockRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	blocksBackup := make(map[uuid.UUID]domain.Block, len(f.blocks))
	for id, b := range f.blocks {
		blocksBackup[id] = b
	}
	seriesBackup := make(map[uuid.UUID]domain.BlockSeries, len(f.series))
	for id, s := range f.series {
		seriesBackup[id] = s
	}
	resBackup := make(map[uuid.UUID]domain.Reservation, len(f.reservations))
	for id, r := range f.reservations {
		resBackup[id] = r
	}
	if err := fn(ctx); err != nil {
		f.blocks = blocksBackup
		f.series = seriesBackup
		f.reservations = resBackup
		return err
	}
	return nil
}

func (f *fakeBlockRepo) LockHour(_ context.Context, court int, start time.Time) error {
	f.lockedKeys = append(f.lockedKeys, domain.Slot{Court: court, Start: start}.Key())
	return nil
}

func (f *fakeBlockRepo) GetReason(_ context.Context, id uuid.UUID) (domain.BlockReason, error) {
	r, ok := f.reasons[id]
	if !ok {
		return domain.BlockReason{}, domain.ErrReasonNotFound
	}
	return r, nil
}

func (f *fakeBlockRepo) CreateBlock(_ context.Context, block domain.Block) error {
	f.blocks[block.ID] = block
	return nil
}

func (f *fakeBlockRepo) CreateSeries(_ context.Context, series domain.BlockSeries) error {
	f.series[series.ID] = series
	return nil
}

func (f *fakeBlockRepo) GetSeries(_ context.Context, id uuid.UUID) (domain.BlockSeries, error) {
	s, ok := f.series[id]
	if !ok {
		return domain.BlockSeries{}, domain.ErrSeriesNotFound
	}
	return s, nil
}

func (f *fakeBlockRepo) GetBlockForUpdate(_ context.Context, id uuid.UUID) (domain.Block, error) {
	b, ok := f.blocks[id]
	if !ok {
		return domain.Block{}, domain.ErrBlockNotFound
	}
	return b, nil
}

func (f *fakeBlockRepo) ListSeriesBlocksForUpdate(_ context.Context, seriesID uuid.UUID, from *time.Time, includeModified bool) ([]domain.Block, error) {
	var out []domain.Block
	for _, b := range f.blocks {
		if b.SeriesID == nil || *b.SeriesID != seriesID {
			continue
		}
		if from != nil && b.Starts.Before(*from) {
			continue
		}
		if !includeModified && b.ModifiedFromSeries {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Starts.Before(out[j].Starts) })
	return out, nil
}

func (f *fakeBlockRepo) UpdateBlock(_ context.Context, block domain.Block) error {
	if _, ok := f.blocks[block.ID]; !ok {
		return domain.ErrBlockNotFound
	}
	f.blocks[block.ID] = block
	return nil
}

func (f *fakeBlockRepo) DeleteBlock(_ context.Context, id uuid.UUID) error {
	if _, ok := f.blocks[id]; !ok {
		return domain.ErrBlockNotFound
	}
	delete(f.blocks, id)
	return nil
}

func (f *fakeBlockRepo) DeleteSeriesBlocks(_ context.Context, seriesID uuid.UUID, from *time.Time) ([]domain.Block, error) {
	var out []domain.Block
	for id, b := range f.blocks {
		if b.SeriesID == nil || *b.SeriesID != seriesID {
			continue
		}
		if from != nil && b.Starts.Before(*from) {
			continue
		}
		out = append(out, b)
		delete(f.blocks, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Starts.Before(out[j].Starts) })
	return out, nil
}

func (f *fakeBlockRepo) DeleteSeries(_ context.Context, seriesID uuid.UUID) error {
	if _, ok := f.series[seriesID]; !ok {
		return domain.ErrSeriesNotFound
	}
	delete(f.series, seriesID)
	return nil
}

func (f *fakeBlockRepo) CancelActiveInRange(_ context.Context, court int, starts, ends time.Time, reason string, at time.Time) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for id, r := range f.reservations {
		if r.Slot.Court != court || r.Status != domain.ReservationStatusActive {
			continue
		}
		if !r.Slot.Start.Before(ends) || !starts.Before(r.Slot.End()) {
			continue
		}
		r.Status = domain.ReservationStatusCancelled
		r.CancelReason = reason
		r.CancelledAt = &at
		f.reservations[id] = r
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeBlockRepo) ListBlocksInRange(_ context.Context, from, to time.Time) ([]domain.Block, error) {
	var out []domain.Block
	for _, b := range f.blocks {
		if b.Starts.Before(to) && from.Before(b.Ends) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Starts.Before(out[j].Starts) })
	return out, nil
}
