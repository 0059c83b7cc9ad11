package service_test

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chestnut/internal/lock"
	"chestnut/internal/model"
	"chestnut/internal/repository"
	"chestnut/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory stores standing in for the gorm repositories.

type fakeCardStore struct {
	mu    sync.Mutex
	cards map[uuid.UUID]model.Card

	moveDelay   time.Duration
	activeMoves atomic.Int32
	overlapped  atomic.Bool
}

func newFakeCardStore() *fakeCardStore {
	return &fakeCardStore{cards: make(map[uuid.UUID]model.Card)}
}

func (f *fakeCardStore) Create(ctx context.Context, card *model.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	f.cards[card.ID] = *card
	return nil
}

func (f *fakeCardStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	card, ok := f.cards[id]
	if !ok {
		return nil, repository.ErrCardNotFound
	}
	return &card, nil
}

func (f *fakeCardStore) GetByColumnID(ctx context.Context, columnID uuid.UUID) ([]model.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var cards []model.Card
	for _, c := range f.cards {
		if c.ColumnID == columnID {
			cards = append(cards, c)
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Position < cards[j].Position })
	return cards, nil
}

func (f *fakeCardStore) Update(ctx context.Context, card *model.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.cards[card.ID]; !ok {
		return repository.ErrCardNotFound
	}
	f.cards[card.ID] = *card
	return nil
}

func (f *fakeCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.cards[id]; !ok {
		return repository.ErrCardNotFound
	}
	delete(f.cards, id)
	return nil
}

func (f *fakeCardStore) Move(ctx context.Context, cardID, columnID uuid.UUID, position int) (*model.Card, error) {
	// Track concurrent movers so tests can assert critical sections are
	// disjoint.
	if n := f.activeMoves.Add(1); n > 1 {
		f.overlapped.Store(true)
	}
	if f.moveDelay > 0 {
		time.Sleep(f.moveDelay)
	}
	defer f.activeMoves.Add(-1)

	f.mu.Lock()
	defer f.mu.Unlock()
	card, ok := f.cards[cardID]
	if !ok {
		return nil, repository.ErrCardNotFound
	}
	card.ColumnID = columnID
	card.Position = position
	f.cards[cardID] = card
	return &card, nil
}

type fakeWorkerStore struct {
	mu   sync.Mutex
	rows []model.Worker
}

func (f *fakeWorkerStore) Create(ctx context.Context, worker *model.Worker) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := *worker
	w.ID = uuid.New()
	f.rows = append(f.rows, w)
	return nil
}

func (f *fakeWorkerStore) GetByCardID(ctx context.Context, cardID uuid.UUID) ([]model.Worker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var workers []model.Worker
	for _, w := range f.rows {
		if w.CardID == cardID {
			workers = append(workers, w)
		}
	}
	sort.Slice(workers, func(i, j int) bool {
		return workers[i].MemberID.String() < workers[j].MemberID.String()
	})
	return workers, nil
}

func (f *fakeWorkerStore) MemberIDs(ctx context.Context, cardID uuid.UUID) ([]uuid.UUID, error) {
	workers, _ := f.GetByCardID(ctx, cardID)
	ids := make([]uuid.UUID, len(workers))
	for i, w := range workers {
		ids[i] = w.MemberID
	}
	return ids, nil
}

func (f *fakeWorkerStore) DeleteByCardID(ctx context.Context, cardID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []model.Worker
	for _, w := range f.rows {
		if w.CardID != cardID {
			kept = append(kept, w)
		}
	}
	f.rows = kept
	return nil
}

func (f *fakeWorkerStore) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var kept []model.Worker
	for _, w := range f.rows {
		if !drop[w.ID] {
			kept = append(kept, w)
		}
	}
	f.rows = kept
	return nil
}

type fakeColumnStore struct {
	columns map[uuid.UUID]model.Column
}

func (f *fakeColumnStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Column, error) {
	col, ok := f.columns[id]
	if !ok {
		return nil, repository.ErrColumnNotFound
	}
	return &col, nil
}

// busyLocker simulates a guard that is always held elsewhere.
type busyLocker struct{}

func (busyLocker) Acquire(ctx context.Context, name string, wait, lease time.Duration) (lock.Handle, error) {
	return nil, lock.ErrNotAcquired
}

type fixture struct {
	svc     *service.CardService
	cards   *fakeCardStore
	workers *fakeWorkerStore
	column  model.Column
}

func setup(t *testing.T) *fixture {
	t.Helper()
	cards := newFakeCardStore()
	workers := &fakeWorkerStore{}
	column := model.Column{ID: uuid.New(), BoardID: uuid.New(), Title: "To Do"}
	columns := &fakeColumnStore{columns: map[uuid.UUID]model.Column{column.ID: column}}

	svc := service.NewCardService(cards, workers, columns, lock.NewLocalLocker(), time.Second, time.Minute)
	return &fixture{svc: svc, cards: cards, workers: workers, column: column}
}

func (f *fixture) createCard(t *testing.T, title string) *model.Card {
	t.Helper()
	detail, err := f.svc.CreateCard(context.Background(), f.column.ID, service.CardCreate{Title: title})
	require.NoError(t, err)
	return detail.Card
}

func strptr(s string) *string { return &s }

func TestCreateCard_AppendsToEndOfColumn(t *testing.T) {
	f := setup(t)

	first := f.createCard(t, "first")
	second := f.createCard(t, "second")

	assert.Equal(t, 0, first.Position)
	assert.Equal(t, 1, second.Position)
}

func TestCreateCard_UnknownColumn(t *testing.T) {
	f := setup(t)

	_, err := f.svc.CreateCard(context.Background(), uuid.New(), service.CardCreate{Title: "orphan"})
	assert.ErrorIs(t, err, repository.ErrColumnNotFound)
}

func TestUpdateCard_EmptyPatchIsNoOp(t *testing.T) {
	f := setup(t)
	deadline := time.Now().Add(24 * time.Hour)
	detail, err := f.svc.CreateCard(context.Background(), f.column.ID, service.CardCreate{
		Title:           "write report",
		Description:     "quarterly numbers",
		BackgroundColor: "#ff0000",
		Deadline:        &deadline,
	})
	require.NoError(t, err)
	before := *detail.Card

	updated, err := f.svc.UpdateCard(context.Background(), before.ID, service.CardPatch{})
	require.NoError(t, err)

	assert.Equal(t, before.Title, updated.Card.Title)
	assert.Equal(t, before.Description, updated.Card.Description)
	assert.Equal(t, before.BackgroundColor, updated.Card.BackgroundColor)
	assert.Equal(t, before.Deadline, updated.Card.Deadline)
	assert.Equal(t, before.StartAt, updated.Card.StartAt)
}

func TestUpdateCard_PatchOverwritesOnlyPresentFields(t *testing.T) {
	f := setup(t)
	card := f.createCard(t, "old title")

	detail, err := f.svc.UpdateCard(context.Background(), card.ID, service.CardPatch{
		Title:           strptr("new title"),
		BackgroundColor: strptr("#00ff00"),
	})
	require.NoError(t, err)

	assert.Equal(t, "new title", detail.Card.Title)
	assert.Equal(t, "#00ff00", detail.Card.BackgroundColor)
	assert.Equal(t, card.Description, detail.Card.Description)
	assert.Equal(t, card.ColumnID, detail.Card.ColumnID)
}

func TestOperations_MissingCardReturnsNotFound(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	missing := uuid.New()

	_, err := f.svc.GetCard(ctx, missing)
	assert.ErrorIs(t, err, repository.ErrCardNotFound)

	_, err = f.svc.UpdateCard(ctx, missing, service.CardPatch{Title: strptr("x")})
	assert.ErrorIs(t, err, repository.ErrCardNotFound)

	err = f.svc.DeleteCard(ctx, missing)
	assert.ErrorIs(t, err, repository.ErrCardNotFound)

	_, err = f.svc.MoveCard(ctx, missing, service.MoveTo{ColumnID: f.column.ID, Position: 0})
	assert.ErrorIs(t, err, repository.ErrCardNotFound)

	_, err = f.svc.UpdateWorkers(ctx, missing, []uuid.UUID{uuid.New()}, nil)
	assert.ErrorIs(t, err, repository.ErrCardNotFound)
}

func TestDeleteCard_CascadesAssignments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	card := f.createCard(t, "doomed")

	_, err := f.svc.UpdateWorkers(ctx, card.ID, []uuid.UUID{uuid.New(), uuid.New()}, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteCard(ctx, card.ID))

	_, err = f.svc.GetCard(ctx, card.ID)
	assert.ErrorIs(t, err, repository.ErrCardNotFound)

	ids, err := f.workers.MemberIDs(ctx, card.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDeleteCard_AlreadyDeletedReturnsNotFound(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	card := f.createCard(t, "doomed")

	require.NoError(t, f.svc.DeleteCard(ctx, card.ID))
	assert.ErrorIs(t, f.svc.DeleteCard(ctx, card.ID), repository.ErrCardNotFound)
}

func TestUpdateWorkers_AddToEmptySet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	card := f.createCard(t, "card")
	a, b := uuid.New(), uuid.New()

	detail, err := f.svc.UpdateWorkers(ctx, card.ID, []uuid.UUID{a, b}, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []uuid.UUID{a, b}, detail.WorkerIDs)
}

func TestUpdateWorkers_FullyDuplicateAddRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	card := f.createCard(t, "card")
	a, b := uuid.New(), uuid.New()

	_, err := f.svc.UpdateWorkers(ctx, card.ID, []uuid.UUID{a, b}, nil)
	require.NoError(t, err)

	// Same add set again: every member already assigned
	_, err = f.svc.UpdateWorkers(ctx, card.ID, []uuid.UUID{a, b}, nil)
	assert.ErrorIs(t, err, service.ErrWorkerAlreadyAssigned)

	ids, err := f.workers.MemberIDs(ctx, card.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestUpdateWorkers_PartialOverlapInsertsDuplicates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	card := f.createCard(t, "card")
	a, b := uuid.New(), uuid.New()

	_, err := f.svc.UpdateWorkers(ctx, card.ID, []uuid.UUID{a}, nil)
	require.NoError(t, err)

	// Overlapping set {a, b}: only a fully-duplicate set is rejected, so
	// this passes validation and writes a second row for a.
	detail, err := f.svc.UpdateWorkers(ctx, card.ID, []uuid.UUID{a, b}, nil)
	require.NoError(t, err)

	assert.Len(t, detail.WorkerIDs, 3)
	counts := map[uuid.UUID]int{}
	for _, id := range detail.WorkerIDs {
		counts[id]++
	}
	assert.Equal(t, 2, counts[a])
	assert.Equal(t, 1, counts[b])
}

func TestUpdateWorkers_RemoveMissingRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	card := f.createCard(t, "card")
	a := uuid.New()

	_, err := f.svc.UpdateWorkers(ctx, card.ID, []uuid.UUID{a}, nil)
	require.NoError(t, err)

	_, err = f.svc.UpdateWorkers(ctx, card.ID, nil, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, service.ErrWorkerNotAssigned)

	ids, err := f.workers.MemberIDs(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a}, ids)
}

func TestUpdateWorkers_RemoveExisting(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	card := f.createCard(t, "card")
	a, b := uuid.New(), uuid.New()

	_, err := f.svc.UpdateWorkers(ctx, card.ID, []uuid.UUID{a, b}, nil)
	require.NoError(t, err)

	detail, err := f.svc.UpdateWorkers(ctx, card.ID, nil, []uuid.UUID{a})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b}, detail.WorkerIDs)
}

func TestUpdateWorkers_RemoveDropsDuplicateRows(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	card := f.createCard(t, "card")
	a, b := uuid.New(), uuid.New()

	_, err := f.svc.UpdateWorkers(ctx, card.ID, []uuid.UUID{a}, nil)
	require.NoError(t, err)
	_, err = f.svc.UpdateWorkers(ctx, card.ID, []uuid.UUID{a, b}, nil)
	require.NoError(t, err)

	// Both rows for a are in the snapshot, so removing a drops both
	detail, err := f.svc.UpdateWorkers(ctx, card.ID, nil, []uuid.UUID{a})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b}, detail.WorkerIDs)
}

func TestUpdateWorkers_BothPhasesUseSnapshot(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	card := f.createCard(t, "card")
	a, c := uuid.New(), uuid.New()

	_, err := f.svc.UpdateWorkers(ctx, card.ID, []uuid.UUID{a}, nil)
	require.NoError(t, err)

	// add={c}, remove={c} in one call: the remove phase validates against
	// the snapshot taken before the add phase ran, where c is absent. The
	// add phase has already written by then, so its insert survives the
	// failed call.
	_, err = f.svc.UpdateWorkers(ctx, card.ID, []uuid.UUID{c}, []uuid.UUID{c})
	assert.ErrorIs(t, err, service.ErrWorkerNotAssigned)

	ids, err := f.workers.MemberIDs(ctx, card.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a, c}, ids)
}

func TestMoveCard_AppliesTarget(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	card := f.createCard(t, "card")
	target := uuid.New()

	detail, err := f.svc.MoveCard(ctx, card.ID, service.MoveTo{ColumnID: target, Position: 3})
	require.NoError(t, err)

	assert.Equal(t, target, detail.Card.ColumnID)
	assert.Equal(t, 3, detail.Card.Position)
}

func TestMoveCard_BusyGuardFailsAndLeavesCardUnchanged(t *testing.T) {
	cards := newFakeCardStore()
	workers := &fakeWorkerStore{}
	column := model.Column{ID: uuid.New(), Title: "To Do"}
	columns := &fakeColumnStore{columns: map[uuid.UUID]model.Column{column.ID: column}}
	svc := service.NewCardService(cards, workers, columns, busyLocker{}, 10*time.Millisecond, time.Minute)

	detail, err := svc.CreateCard(context.Background(), column.ID, service.CardCreate{Title: "stuck"})
	require.NoError(t, err)
	card := detail.Card

	_, err = svc.MoveCard(context.Background(), card.ID, service.MoveTo{ColumnID: uuid.New(), Position: 5})
	assert.ErrorIs(t, err, service.ErrMoveLocked)

	after, err := cards.GetByID(context.Background(), card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.ColumnID, after.ColumnID)
	assert.Equal(t, card.Position, after.Position)
}

func TestMoveCard_CriticalSectionsAreDisjoint(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.cards.moveDelay = 5 * time.Millisecond

	// Moves on different cards still serialize on the one global guard
	var cards []*model.Card
	for i := 0; i < 6; i++ {
		cards = append(cards, f.createCard(t, "card"))
	}

	var wg sync.WaitGroup
	for _, card := range cards {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.MoveCard(ctx, id, service.MoveTo{ColumnID: f.column.ID, Position: 0})
			assert.NoError(t, err)
		}(card.ID)
	}
	wg.Wait()

	assert.False(t, f.cards.overlapped.Load(), "movement critical sections overlapped")
}
