package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/backoffice/internal/domain"
	"github.com/josh-kwaku/backoffice/internal/logging"
)

const testKey = "sk_test_0123456789abcdef"

var now = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindStuckCardOperations(ctx context.Context, since time.Time) ([]domain.StoredOperation, error) {
	args := m.Called(ctx, since)
	ops, _ := args.Get(0).([]domain.StoredOperation)
	return ops, args.Error(1)
}

func (m *mockStore) ApplyStatusCorrections(ctx context.Context, batch []domain.StatusCorrection) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

type stubChecker struct {
	statuses map[string]string
	errs     map[string]error
	calls    int
}

func (c *stubChecker) LiveStatus(_ context.Context, _ string, _ domain.OperationSource, id string) (string, error) {
	c.calls++
	if err, ok := c.errs[id]; ok {
		return "", err
	}
	return c.statuses[id], nil
}

func stuck(id string, age time.Duration) domain.StoredOperation {
	return domain.StoredOperation{BalanceOperation: domain.BalanceOperation{
		ID:            id,
		Source:        domain.SourcePayables,
		Status:        domain.StatusWaitingFunds,
		PaymentMethod: domain.MethodCreditCard,
		Amount:        1000,
		CreatedAt:     now.Add(-age),
	}}
}

type sleepRecorder struct{ waits []time.Duration }

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func newService(store Store, checker StatusChecker, rec *sleepRecorder, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return now }), WithSleep(rec.sleep)}, opts...)
	return NewService(store, checker, DefaultConfig(), logging.Discard(), opts...)
}

func TestRuleConfidence(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want int
	}{
		{50 * time.Hour, 90},
		{48 * time.Hour, 85},
		{30 * time.Hour, 85},
		{24 * time.Hour, 75},
		{7 * time.Hour, 75},
		{6 * time.Hour, 0},
		{time.Hour, 0},
	}
	for _, tc := range tests {
		t.Run(tc.age.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, RuleConfidence(tc.age))
		})
	}
}

func TestScan_RuleOnly(t *testing.T) {
	store := &mockStore{}
	store.On("FindStuckCardOperations", mock.Anything, now.AddDate(0, 0, -30)).
		Return([]domain.StoredOperation{stuck("py_50h", 50*time.Hour), stuck("py_2h", 2*time.Hour)}, nil)

	svc := newService(store, nil, &sleepRecorder{})
	diags, err := svc.Scan(context.Background(), ScanOptions{})
	require.NoError(t, err)
	require.Len(t, diags, 1)

	d := diags[0]
	assert.Equal(t, "py_50h", d.ExternalID)
	assert.Equal(t, 90, d.Confidence)
	assert.True(t, d.IsAnomaly)
	assert.Equal(t, domain.StatusPaid, d.SuggestedStatus)
	assert.Nil(t, d.APIStatus)
	assert.Equal(t, domain.DiagnosticSuggested, d.State)
	assert.InDelta(t, 50.0, d.HoursSinceCreation, 0.001)
	assert.Len(t, svc.Pending(), 1)
	store.AssertExpectations(t)
}

func TestScan_LiveCheck(t *testing.T) {
	store := &mockStore{}
	store.On("FindStuckCardOperations", mock.Anything, mock.Anything).Return([]domain.StoredOperation{
		stuck("py_changed", 2*time.Hour),
		stuck("py_same", 30*time.Hour),
		stuck("py_error", 30*time.Hour),
	}, nil)

	checker := &stubChecker{
		statuses: map[string]string{"py_changed": "paid", "py_same": domain.StatusWaitingFunds},
		errs:     map[string]error{"py_error": &domain.ProviderError{Kind: domain.ErrUpstreamUnavailable, Status: 503}},
	}

	svc := newService(store, checker, &sleepRecorder{})
	diags, err := svc.Scan(context.Background(), ScanOptions{Credential: testKey, LiveCheck: true})
	require.NoError(t, err)
	require.Len(t, diags, 2)

	assert.Equal(t, "py_changed", diags[0].ExternalID)
	assert.Equal(t, LiveCheckConfidence, diags[0].Confidence)
	require.NotNil(t, diags[0].APIStatus)
	assert.Equal(t, "paid", *diags[0].APIStatus)
	assert.Equal(t, "paid", diags[0].SuggestedStatus)

	assert.Equal(t, "py_error", diags[1].ExternalID)
	assert.Equal(t, 85, diags[1].Confidence, "failed live check falls back to the age rule")
	assert.Nil(t, diags[1].APIStatus)
}

func TestScan_RejectedCredentialStopsLiveChecks(t *testing.T) {
	store := &mockStore{}
	store.On("FindStuckCardOperations", mock.Anything, mock.Anything).Return([]domain.StoredOperation{
		stuck("py_1", 30*time.Hour),
		stuck("py_2", 30*time.Hour),
	}, nil)
	checker := &stubChecker{errs: map[string]error{
		"py_1": &domain.ProviderError{Kind: domain.ErrCredentialRejected, Status: 401},
	}}

	svc := newService(store, checker, &sleepRecorder{})
	diags, err := svc.Scan(context.Background(), ScanOptions{Credential: testKey, LiveCheck: true})
	require.NoError(t, err)
	assert.Len(t, diags, 2)
	assert.Equal(t, 1, checker.calls)
}

func TestScan_StoreError(t *testing.T) {
	store := &mockStore{}
	store.On("FindStuckCardOperations", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := newService(store, nil, &sleepRecorder{}).Scan(context.Background(), ScanOptions{})
	require.Error(t, err)
}

func scanned(t *testing.T, store *mockStore, n int, rec *sleepRecorder, opts ...Option) *Service {
	t.Helper()
	ops := make([]domain.StoredOperation, n)
	for i := range ops {
		age := 50 * time.Hour
		if i%2 == 1 {
			age = 10 * time.Hour
		}
		ops[i] = stuck(fmt.Sprintf("py_%02d", i), age)
	}
	store.On("FindStuckCardOperations", mock.Anything, mock.Anything).Return(ops, nil)

	svc := newService(store, nil, rec, opts...)
	_, err := svc.Scan(context.Background(), ScanOptions{})
	require.NoError(t, err)
	return svc
}

func TestApply_BatchesWithPause(t *testing.T) {
	store := &mockStore{}
	store.On("ApplyStatusCorrections", mock.Anything, mock.Anything).Return(nil)
	rec := &sleepRecorder{}
	invalidated := 0

	svc := scanned(t, store, 25, rec, OnApplied(func() { invalidated++ }))
	res, err := svc.Apply(context.Background(), ApplyOptions{})
	require.NoError(t, err)

	assert.Equal(t, 25, res.Selected)
	assert.Equal(t, 25, res.Applied)
	assert.Equal(t, 3, res.Batches)
	assert.Zero(t, res.Failed)
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 1500 * time.Millisecond}, rec.waits)
	assert.Equal(t, 1, invalidated)
	assert.Empty(t, svc.Pending(), "list is cleared after a clean apply")

	store.AssertNumberOfCalls(t, "ApplyStatusCorrections", 3)
	first := store.Calls[1].Arguments.Get(1).([]domain.StatusCorrection)
	assert.Len(t, first, 10)
	assert.Equal(t, domain.StatusCorrection{Source: domain.SourcePayables, ExternalID: "py_00", Status: domain.StatusPaid}, first[0])

	for _, d := range res.Diagnostics {
		assert.Equal(t, domain.DiagnosticApplied, d.State)
	}
}

func TestApply_FailedBatchDoesNotStopOthers(t *testing.T) {
	store := &mockStore{}
	store.On("ApplyStatusCorrections", mock.Anything, mock.MatchedBy(func(b []domain.StatusCorrection) bool {
		return b[0].ExternalID == "py_10"
	})).Return(errors.New("deadlock detected")).Once()
	store.On("ApplyStatusCorrections", mock.Anything, mock.Anything).Return(nil)

	invalidated := 0
	svc := scanned(t, store, 25, &sleepRecorder{}, OnApplied(func() { invalidated++ }))
	res, err := svc.Apply(context.Background(), ApplyOptions{})
	require.NoError(t, err)

	assert.Equal(t, 15, res.Applied)
	assert.Equal(t, 10, res.Failed)
	assert.Equal(t, 3, res.Batches)
	assert.Equal(t, 1, invalidated)

	pending := svc.Pending()
	require.Len(t, pending, 25, "list is kept when a batch failed")
	suggested := 0
	for _, d := range pending {
		if d.State == domain.DiagnosticSuggested {
			suggested++
		}
	}
	assert.Equal(t, 10, suggested)
}

func TestApply_SelectionRejectsTheRest(t *testing.T) {
	store := &mockStore{}
	store.On("ApplyStatusCorrections", mock.Anything, mock.Anything).Return(nil)

	svc := scanned(t, store, 4, &sleepRecorder{})
	res, err := svc.Apply(context.Background(), ApplyOptions{ExternalIDs: []string{"py_01"}})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Applied)
	states := map[string]domain.DiagnosticState{}
	for _, d := range res.Diagnostics {
		states[d.ExternalID] = d.State
	}
	assert.Equal(t, domain.DiagnosticApplied, states["py_01"])
	assert.Equal(t, domain.DiagnosticRejected, states["py_00"])
	assert.Equal(t, domain.DiagnosticRejected, states["py_03"])
}

func TestApply_MinConfidence(t *testing.T) {
	store := &mockStore{}
	store.On("ApplyStatusCorrections", mock.Anything, mock.Anything).Return(nil)

	svc := scanned(t, store, 4, &sleepRecorder{})
	res, err := svc.Apply(context.Background(), ApplyOptions{MinConfidence: 90})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Selected)
	assert.Equal(t, 2, res.Applied)
}

func TestApply_NothingSelected(t *testing.T) {
	store := &mockStore{}
	svc := scanned(t, store, 2, &sleepRecorder{})

	res, err := svc.Apply(context.Background(), ApplyOptions{ExternalIDs: []string{"unknown"}})
	require.NoError(t, err)
	assert.Zero(t, res.Selected)
	store.AssertNotCalled(t, "ApplyStatusCorrections", mock.Anything, mock.Anything)
}

func TestDiagnosticTransitions(t *testing.T) {
	d := domain.Diagnostic{ExternalID: "x", State: domain.DiagnosticFlagged}
	require.ErrorIs(t, d.Advance(domain.DiagnosticApplied), domain.ErrInvalidTransition)
	require.NoError(t, d.Advance(domain.DiagnosticRuleOnly))
	require.NoError(t, d.Advance(domain.DiagnosticSuggested))
	require.NoError(t, d.Advance(domain.DiagnosticRejected))
	require.ErrorIs(t, d.Advance(domain.DiagnosticApplied), domain.ErrInvalidTransition)
}

// cancelOnCall cancels the scan's context when the nth live check starts.
type cancelOnCall struct {
	n      int
	cancel context.CancelFunc
	calls  int
}

func (c *cancelOnCall) LiveStatus(ctx context.Context, _ string, _ domain.OperationSource, _ string) (string, error) {
	c.calls++
	if c.calls == c.n {
		c.cancel()
		return "", ctx.Err()
	}
	return domain.StatusPaid, nil
}

func TestScan_InterruptedKeepsComputedDiagnostics(t *testing.T) {
	store := &mockStore{}
	store.On("FindStuckCardOperations", mock.Anything, mock.Anything).Return([]domain.StoredOperation{
		stuck("py_1", 30*time.Hour),
		stuck("py_2", 30*time.Hour),
		stuck("py_3", 30*time.Hour),
		stuck("py_4", 30*time.Hour),
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	checker := &cancelOnCall{n: 3, cancel: cancel}

	svc := newService(store, checker, &sleepRecorder{})
	diags, err := svc.Scan(ctx, ScanOptions{Credential: testKey, LiveCheck: true})
	require.ErrorIs(t, err, context.Canceled)

	require.Len(t, diags, 2)
	assert.Equal(t, "py_1", diags[0].ExternalID)
	assert.Equal(t, "py_2", diags[1].ExternalID)
	assert.Len(t, svc.Pending(), 2)
	assert.Equal(t, 3, checker.calls)
}

func TestApply_DeadlineMidwayReportsCommittedBatches(t *testing.T) {
	store := &mockStore{}
	store.On("ApplyStatusCorrections", mock.Anything, mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pauses := 0
	cancelOnSecondPause := func(ctx context.Context, d time.Duration) error {
		pauses++
		if pauses == 2 {
			cancel()
		}
		return ctx.Err()
	}

	svc := scanned(t, store, 30, &sleepRecorder{}, WithSleep(cancelOnSecondPause))
	res, err := svc.Apply(ctx, ApplyOptions{})
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 20, res.Applied)
	assert.Equal(t, 10, res.Failed)
	assert.Equal(t, 2, res.Batches)
	assert.Len(t, svc.Pending(), 30, "unapplied suggestions stay pending")
}

func TestApply_UsesRealPauseByDefault(t *testing.T) {
	store := &mockStore{}
	store.On("FindStuckCardOperations", mock.Anything, mock.Anything).
		Return([]domain.StoredOperation{stuck("py_1", 50*time.Hour), stuck("py_2", 50*time.Hour)}, nil)
	store.On("ApplyStatusCorrections", mock.Anything, mock.Anything).Return(nil)

	cfg := Config{WindowDays: 30, BatchSize: 1, BatchPause: time.Hour}
	svc := NewService(store, nil, cfg, logging.Discard(), WithClock(func() time.Time { return now }))
	_, err := svc.Scan(context.Background(), ScanOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	res, err := svc.Apply(ctx, ApplyOptions{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Failed)
}

func TestApply_SameIDFromAnotherFeedStaysSuggested(t *testing.T) {
	store := &mockStore{}
	payable := stuck("shared_1", 50*time.Hour)
	order := stuck("shared_1", 50*time.Hour)
	order.Source = domain.SourceOrders
	store.On("FindStuckCardOperations", mock.Anything, mock.Anything).
		Return([]domain.StoredOperation{payable, order}, nil)
	store.On("ApplyStatusCorrections", mock.Anything, mock.MatchedBy(func(b []domain.StatusCorrection) bool {
		return b[0].Source == domain.SourceOrders
	})).Return(errors.New("deadlock detected"))
	store.On("ApplyStatusCorrections", mock.Anything, mock.Anything).Return(nil)

	cfg := DefaultConfig()
	cfg.BatchSize = 1
	svc := NewService(store, nil, cfg, logging.Discard(),
		WithClock(func() time.Time { return now }), WithSleep((&sleepRecorder{}).sleep))
	_, err := svc.Scan(context.Background(), ScanOptions{})
	require.NoError(t, err)

	res, err := svc.Apply(context.Background(), ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Failed)

	states := map[domain.OperationSource]domain.DiagnosticState{}
	for _, d := range res.Diagnostics {
		states[d.Source] = d.State
	}
	assert.Equal(t, domain.DiagnosticApplied, states[domain.SourcePayables])
	assert.Equal(t, domain.DiagnosticSuggested, states[domain.SourceOrders])
}
