package dispatcher

import (
	"context"
	"fmt"
	"testing"

	"pipeline-dashboard-go/internal/backend"
	"pipeline-dashboard-go/internal/models"
	"pipeline-dashboard-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockClient is a mock implementation of the backend.ClientInterface.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetTrades(ctx context.Context, page int) ([]models.RawTrade, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]models.RawTrade), args.Error(1)
}

func (m *MockClient) GetPipelines(ctx context.Context) ([]models.Pipeline, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Pipeline), args.Error(1)
}

func (m *MockClient) GetPositions(ctx context.Context) ([]models.Position, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Position), args.Error(1)
}

func (m *MockClient) GetPrice(ctx context.Context, symbol string) (*models.PriceResponse, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(*models.PriceResponse), args.Error(1)
}

func (m *MockClient) GetPipelinesMetrics(ctx context.Context) (models.PipelinesMetrics, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.PipelinesMetrics), args.Error(1)
}

func (m *MockClient) GetResources(ctx context.Context, names []string) (models.Resources, error) {
	args := m.Called(ctx, names)
	return args.Get(0).(models.Resources), args.Error(1)
}

func (m *MockClient) GetAccountBalance(ctx context.Context) (*models.BalanceResponse, error) {
	args := m.Called(ctx)
	return args.Get(0).(*models.BalanceResponse), args.Error(1)
}

func (m *MockClient) StartBot(ctx context.Context, params models.PipelineParams) (*models.CommandResponse, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(*models.CommandResponse), args.Error(1)
}

func (m *MockClient) EditBot(ctx context.Context, params models.PipelineParams) (*models.CommandResponse, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(*models.CommandResponse), args.Error(1)
}

func (m *MockClient) StopBot(ctx context.Context, pipelineID int64) (*models.CommandResponse, error) {
	args := m.Called(ctx, pipelineID)
	return args.Get(0).(*models.CommandResponse), args.Error(1)
}

func (m *MockClient) DeleteBot(ctx context.Context, pipelineID int64) (*models.CommandResponse, error) {
	args := m.Called(ctx, pipelineID)
	return args.Get(0).(*models.CommandResponse), args.Error(1)
}

type shown struct {
	text    string
	success bool
}

type recordingNotifier struct {
	messages []shown
}

func (n *recordingNotifier) Show(text string, success bool) models.Message {
	n.messages = append(n.messages, shown{text: text, success: success})
	return models.Message{Text: text, Success: success, Show: true}
}

func setupTest() (*Dispatcher, *MockClient, *store.Store, *recordingNotifier) {
	client := new(MockClient)
	st := store.New(zap.NewNop())
	notifier := &recordingNotifier{}
	return New(client, st, notifier, zap.NewNop()), client, st, notifier
}

func validParams() models.PipelineParams {
	return models.PipelineParams{Name: "btc bot", Symbol: "BTCUSDT", Strategy: "MovingAverage", Params: models.Params{}}
}

func ids(pipelines []models.Pipeline) []int64 {
	out := make([]int64, 0, len(pipelines))
	for _, p := range pipelines {
		out = append(out, p.ID)
	}
	return out
}

func TestStart_InsertsNewPipeline(t *testing.T) {
	d, client, st, notifier := setupTest()
	st.Dispatch(store.PipelinesReceived{Pipelines: []models.Pipeline{{ID: 1}}})

	client.On("StartBot", mock.Anything, validParams()).Return(&models.CommandResponse{
		Success:  true,
		Message:  "Pipeline started.",
		Pipeline: &models.Pipeline{ID: 2, Active: true},
	}, nil)

	resp, err := d.Start(context.Background(), validParams())

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, []int64{1, 2}, ids(st.Pipelines()))
	assert.Equal(t, []shown{{text: "Pipeline started.", success: true}}, notifier.messages)
	client.AssertExpectations(t)
}

func TestStart_ReplacesExistingPipeline(t *testing.T) {
	d, client, st, _ := setupTest()
	st.Dispatch(store.PipelinesReceived{Pipelines: []models.Pipeline{{ID: 1}, {ID: 2}}})

	client.On("StartBot", mock.Anything, mock.Anything).Return(&models.CommandResponse{
		Success:  true,
		Message:  "Pipeline restarted.",
		Pipeline: &models.Pipeline{ID: 1, Active: true},
	}, nil)

	_, err := d.Start(context.Background(), validParams())

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(st.Pipelines()))
	p, _ := st.Pipeline(1)
	assert.True(t, p.Active)
}

func TestStart_BusinessRejectionLeavesStoreUntouched(t *testing.T) {
	d, client, st, notifier := setupTest()
	st.Dispatch(store.PipelinesReceived{Pipelines: []models.Pipeline{{ID: 1}}})
	version := st.Version(store.KindPipelines)

	client.On("StartBot", mock.Anything, mock.Anything).Return(&models.CommandResponse{
		Success: false,
		Message: "BTCUSDT is already being traded.",
	}, nil)

	resp, err := d.Start(context.Background(), validParams())

	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, version, st.Version(store.KindPipelines))
	assert.Equal(t, []shown{{text: "BTCUSDT is already being traded.", success: false}}, notifier.messages)
}

func TestStart_InvalidParamsAreNotSent(t *testing.T) {
	d, client, _, notifier := setupTest()

	params := validParams()
	params.Params = models.Params{"nested": []any{1}}

	_, err := d.Start(context.Background(), params)

	assert.ErrorIs(t, err, ErrInvalidCommand)
	client.AssertNotCalled(t, "StartBot", mock.Anything, mock.Anything)
	require.Len(t, notifier.messages, 1)
	assert.False(t, notifier.messages[0].success)
}

func TestStop_ReplacesPipeline(t *testing.T) {
	d, client, st, notifier := setupTest()
	st.Dispatch(store.PipelinesReceived{Pipelines: []models.Pipeline{{ID: 1, Active: true}, {ID: 2, Active: true}}})

	client.On("StopBot", mock.Anything, int64(1)).Return(&models.CommandResponse{
		Success:  true,
		Message:  "Pipeline stopped.",
		Pipeline: &models.Pipeline{ID: 1, Active: false},
	}, nil)

	_, err := d.Stop(context.Background(), 1)

	require.NoError(t, err)
	p1, _ := st.Pipeline(1)
	p2, _ := st.Pipeline(2)
	assert.False(t, p1.Active)
	assert.True(t, p2.Active)
	assert.Equal(t, "Pipeline stopped.", notifier.messages[0].text)
}

func TestStop_SuccessWithoutPipeline(t *testing.T) {
	d, client, st, notifier := setupTest()
	st.Dispatch(store.PipelinesReceived{Pipelines: []models.Pipeline{{ID: 1, Active: true}}})

	client.On("StopBot", mock.Anything, int64(1)).Return(&models.CommandResponse{Success: true, Message: "ok"}, nil)

	_, err := d.Stop(context.Background(), 1)

	require.NoError(t, err)
	p, _ := st.Pipeline(1)
	assert.True(t, p.Active)
	assert.Len(t, notifier.messages, 1)
}

func TestDelete_CascadesPositions(t *testing.T) {
	d, client, st, notifier := setupTest()
	st.Dispatch(store.PipelinesReceived{Pipelines: []models.Pipeline{{ID: 1}, {ID: 2}}})
	st.Dispatch(store.PositionsReceived{Positions: []models.Position{
		{PipelineID: 1, Position: 1},
		{PipelineID: 2, Position: -1},
	}})

	client.On("DeleteBot", mock.Anything, int64(2)).Return(&models.CommandResponse{
		Success: true,
		Message: "Pipeline deleted.",
	}, nil)

	_, err := d.Delete(context.Background(), 2)

	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(st.Pipelines()))
	positions := st.Positions()
	require.Len(t, positions, 1)
	assert.Equal(t, int64(1), positions[0].PipelineID)
	assert.Equal(t, []shown{{text: "Pipeline deleted.", success: true}}, notifier.messages)
}

func TestDelete_PipelineNotYetPolled(t *testing.T) {
	d, client, st, _ := setupTest()
	st.Dispatch(store.PositionsReceived{Positions: []models.Position{
		{PipelineID: 5, Position: 1},
		{PipelineID: 6, Position: -1},
	}})

	client.On("DeleteBot", mock.Anything, int64(5)).Return(&models.CommandResponse{
		Success: true,
		Message: "Pipeline deleted.",
	}, nil)

	_, err := d.Delete(context.Background(), 5)

	require.NoError(t, err)
	positions := st.Positions()
	require.Len(t, positions, 1)
	assert.Equal(t, int64(6), positions[0].PipelineID)
}

func TestDelete_Rejected(t *testing.T) {
	d, client, st, notifier := setupTest()
	st.Dispatch(store.PipelinesReceived{Pipelines: []models.Pipeline{{ID: 1}}})
	st.Dispatch(store.PositionsReceived{Positions: []models.Position{{PipelineID: 1, Position: 1}}})

	client.On("DeleteBot", mock.Anything, int64(1)).Return(&models.CommandResponse{
		Success: false,
		Message: "Pipeline 1 is active.",
	}, nil)

	_, err := d.Delete(context.Background(), 1)

	require.NoError(t, err)
	assert.Len(t, st.Pipelines(), 1)
	assert.Len(t, st.Positions(), 1)
	assert.Equal(t, []shown{{text: "Pipeline 1 is active.", success: false}}, notifier.messages)
}

func TestTransportFailure(t *testing.T) {
	d, client, st, notifier := setupTest()
	st.Dispatch(store.PipelinesReceived{Pipelines: []models.Pipeline{{ID: 1, Active: true}}})
	version := st.Version(store.KindPipelines)

	transportErr := fmt.Errorf("failed to stop bot: %w", backend.ErrTransport)
	client.On("StopBot", mock.Anything, int64(1)).Return((*models.CommandResponse)(nil), transportErr)

	resp, err := d.Stop(context.Background(), 1)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, backend.ErrTransport)
	assert.Equal(t, version, st.Version(store.KindPipelines))
	assert.Equal(t, []shown{{text: UnreachableMessage, success: false}}, notifier.messages)
}

func TestEdit(t *testing.T) {
	t.Run("StoppedPipeline", func(t *testing.T) {
		d, client, st, _ := setupTest()
		st.Dispatch(store.PipelinesReceived{Pipelines: []models.Pipeline{{ID: 3, Name: "old"}}})

		expected := validParams()
		expected.PipelineID = 3
		client.On("EditBot", mock.Anything, expected).Return(&models.CommandResponse{
			Success:  true,
			Message:  "Pipeline updated.",
			Pipeline: &models.Pipeline{ID: 3, Name: "btc bot"},
		}, nil)

		_, err := d.Edit(context.Background(), 3, validParams())

		require.NoError(t, err)
		p, _ := st.Pipeline(3)
		assert.Equal(t, "btc bot", p.Name)
		client.AssertExpectations(t)
	})

	t.Run("ActivePipelineRefused", func(t *testing.T) {
		d, client, st, notifier := setupTest()
		st.Dispatch(store.PipelinesReceived{Pipelines: []models.Pipeline{{ID: 3, Active: true}}})

		_, err := d.Edit(context.Background(), 3, validParams())

		assert.ErrorIs(t, err, ErrInvalidCommand)
		client.AssertNotCalled(t, "EditBot", mock.Anything, mock.Anything)
		require.Len(t, notifier.messages, 1)
		assert.False(t, notifier.messages[0].success)
	})
}
