package cron

import (
	"context"
	"testing"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes"

	"github.com/customeros/mailforward/config"
	fwderrors "github.com/customeros/mailforward/internal/errors"
	"github.com/customeros/mailforward/internal/logger"
	"github.com/customeros/mailforward/internal/models"
)

type mockKubernetesInterface struct {
	kubernetes.Interface
	mock.Mock
}

type mockPipeline struct {
	mock.Mock
}

func (m *mockPipeline) Run(ctx context.Context) (*models.RunResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).(*models.RunResult)
	return result, args.Error(1)
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func testConfig() *config.Config {
	return &config.Config{
		AppConfig: &config.AppConfig{ForwardTo: "dest@example.com"},
		Logger:    &logger.Config{LogLevel: "info"},
	}
}

func TestNewCronManager(t *testing.T) {
	// Arrange
	cfg := testConfig()
	log := getLogger()
	k8s := &mockKubernetesInterface{}
	pipeline := &mockPipeline{}

	// Act
	cm := NewCronManager(cfg, log, k8s, pipeline)

	// Assert
	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.Equal(t, log, cm.log)
	assert.Equal(t, k8s, cm.k8s)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_RegisterJobs(t *testing.T) {
	t.Setenv("CRON_SCHEDULE_FORWARD", "0 */5 * * * *")
	t.Setenv("CRON_SCHEDULE_HEARTBEAT", "0 * * * * *")

	cm := NewCronManager(testConfig(), getLogger(), nil, &mockPipeline{})
	c := cronv3.New(cronv3.WithSeconds())

	// Act
	err := cm.registerJobs(c)

	// Assert
	require.NoError(t, err)
	assert.Len(t, cm.jobIDs, 2)
	assert.Contains(t, cm.jobIDs, "forward")
	assert.Contains(t, cm.jobIDs, "heartbeat")
	assert.Len(t, c.Entries(), 2)
}

func TestCronManager_RegisterJobs_InvalidSchedule(t *testing.T) {
	t.Setenv("CRON_SCHEDULE_FORWARD", "every five minutes")

	cm := NewCronManager(testConfig(), getLogger(), nil, &mockPipeline{})

	err := cm.registerJobs(cronv3.New(cronv3.WithSeconds()))

	assert.Error(t, err)
	assert.NotContains(t, cm.jobIDs, "forward")
}

func TestCronManager_StartLocalMode(t *testing.T) {
	cm := NewCronManager(testConfig(), getLogger(), nil, &mockPipeline{})

	// Act
	err := cm.Start("local", "default")

	// Assert
	require.NoError(t, err)
	assert.NotNil(t, cm.cron)
	assert.Contains(t, cm.jobIDs, "forward")
	cm.Stop()
}

func TestCronManager_Forward(t *testing.T) {
	pipeline := &mockPipeline{}
	pipeline.On("Run", mock.Anything).Return(&models.RunResult{RunID: "run-1", Forwarded: 2}, nil).Once()

	cm := NewCronManager(testConfig(), getLogger(), nil, pipeline)

	// Act
	cm.forward()

	// Assert
	pipeline.AssertExpectations(t)
}

func TestCronManager_ForwardAborted(t *testing.T) {
	pipeline := &mockPipeline{}
	pipeline.On("Run", mock.Anything).
		Return(&models.RunResult{RunID: "run-2", Aborted: true}, fwderrors.Auth(nil, "LOGIN rejected")).
		Once()

	cm := NewCronManager(testConfig(), getLogger(), nil, pipeline)

	assert.NotPanics(t, cm.forward)
	pipeline.AssertExpectations(t)
}

func TestCronManager_Stop(t *testing.T) {
	// Arrange
	cm := NewCronManager(testConfig(), getLogger(), &mockKubernetesInterface{}, &mockPipeline{})

	mockCron := cronv3.New()
	mockCron.Start()
	cm.cron = mockCron

	// Act
	cm.Stop()
	cm.Stop()

	// Assert
	select {
	case <-cm.stopCh:
		// Channel is closed as expected
	default:
		t.Error("Stop channel was not closed")
	}
}
