package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"railseed/internal/config"
	"railseed/internal/dbclient"
	"railseed/internal/domain"
	"railseed/internal/etl"
	"railseed/internal/seed"
	"railseed/internal/service"
	"railseed/internal/storage"
)

const (
	stationsJSON = `[{"code": "NDLS", "name": "New Delhi"}, {"station_code": "BCT"}, {"code": "NDLS"}]`
	trainsCSV    = "train_number,train_name\n12345,Rajdhani Express\n12345,Duplicate\n"
)

// fixture writes source files and a migrated SQLite database into a temp
// dir and returns a config pointing at them.
func fixture(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	stations := filepath.Join(dir, "stations.json")
	require.NoError(t, os.WriteFile(stations, []byte(stationsJSON), 0o644))
	trains := filepath.Join(dir, "trains.csv")
	require.NoError(t, os.WriteFile(trains, []byte(trainsCSV), 0o644))

	cfg := config.DefaultConfig()
	cfg.Database = domain.DatabaseConnection{Driver: domain.DatabaseDriverSQLite, Database: filepath.Join(dir, "rail.db")}
	cfg.Sources.Stations = &config.SourceConfig{Type: "json_file", Config: etl.SourceConfig{"filePath": stations}}
	cfg.Sources.Trains = &config.SourceConfig{Type: "csv_file", Config: etl.SourceConfig{"filePath": trains}}

	client, err := dbclient.Open(context.Background(), cfg.Database)
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(context.Background(), client.DB, domain.DatabaseDriverSQLite))
	require.NoError(t, client.Close())
	return cfg
}

func TestSeedService_RunOnce(t *testing.T) {
	cfg := fixture(t)
	svc := service.NewSeedService(cfg, zap.NewNop())
	assert.Nil(t, svc.LastReport())

	report, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seed.StatusSuccess, report.Status)
	assert.Equal(t, int64(2), report.Stations.Inserted)
	assert.Equal(t, "sequence", report.Stations.Shape)
	assert.Equal(t, int64(1), report.Trains.Inserted)
	assert.Equal(t, "table", report.Trains.Shape)
	assert.Same(t, report, svc.LastReport())
	assert.False(t, svc.Running())

	again, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.Stations.Inserted)
	assert.Zero(t, again.Trains.Inserted)
}

func TestSeedService_SourceErrorAbortsBeforeConnecting(t *testing.T) {
	cfg := fixture(t)
	cfg.Sources.Trains.Config["filePath"] = filepath.Join(t.TempDir(), "missing.csv")

	opened := false
	svc := service.NewSeedService(cfg, zap.NewNop(), service.WithOpener(
		func(ctx context.Context, conn domain.DatabaseConnection) (*dbclient.Client, error) {
			opened = true
			return dbclient.Open(ctx, conn)
		}))

	report, err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "read trains")
	require.NotNil(t, report)
	assert.Equal(t, seed.StatusError, report.Status)
	assert.False(t, report.RolledBack)
	assert.False(t, opened)
	assert.Same(t, report, svc.LastReport())
}

func TestSeedService_ConnectError(t *testing.T) {
	cfg := fixture(t)
	svc := service.NewSeedService(cfg, zap.NewNop(), service.WithOpener(
		func(context.Context, domain.DatabaseConnection) (*dbclient.Client, error) {
			return nil, errors.New("connection refused")
		}))

	report, err := svc.RunOnce(context.Background())
	assert.ErrorContains(t, err, "connect: connection refused")
	assert.Equal(t, seed.StatusError, report.Status)
}

// blockingOpener holds a run inside the opener until release is closed.
func blockingOpener(entered chan<- struct{}, release <-chan struct{}) service.Opener {
	return func(ctx context.Context, conn domain.DatabaseConnection) (*dbclient.Client, error) {
		close(entered)
		<-release
		return dbclient.Open(ctx, conn)
	}
}

func TestSeedService_RejectsOverlappingRuns(t *testing.T) {
	cfg := fixture(t)
	entered, release := make(chan struct{}), make(chan struct{})
	svc := service.NewSeedService(cfg, zap.NewNop(), service.WithOpener(blockingOpener(entered, release)))

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.RunOnce(context.Background())
		errCh <- err
	}()
	<-entered
	assert.True(t, svc.Running())

	_, err := svc.RunOnce(context.Background())
	assert.ErrorIs(t, err, service.ErrRunInProgress)

	close(release)
	require.NoError(t, <-errCh)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	svc.WaitRunning(ctx)
	assert.False(t, svc.Running())
}

func TestSeedService_WatchTriggersRun(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := fixture(t)
	stations := cfg.Sources.Stations.Config.String("filePath")
	cfg.Schedule.Watch = []string{stations}

	svc := service.NewSeedService(cfg, zap.NewNop())
	require.NoError(t, svc.Start(context.Background()))

	require.NoError(t, os.WriteFile(stations, []byte(`[{"code": "HWH"}]`), 0o644))
	require.Eventually(t, func() bool {
		r := svc.LastReport()
		return r != nil && r.Status == seed.StatusSuccess
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, int64(1), svc.LastReport().Stations.Inserted)

	svc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	svc.WaitRunning(ctx)
}

func TestSeedService_CronTriggersRun(t *testing.T) {
	cfg := fixture(t)
	cfg.Schedule.Cron = "@every 1s"

	svc := service.NewSeedService(cfg, zap.NewNop())
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	require.Eventually(t, func() bool { return svc.LastReport() != nil }, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, seed.StatusSuccess, svc.LastReport().Status)
}

func TestSeedService_StartErrors(t *testing.T) {
	cfg := fixture(t)
	cfg.Schedule.Cron = "every tuesday"
	svc := service.NewSeedService(cfg, zap.NewNop())
	assert.ErrorContains(t, svc.Start(context.Background()), "invalid cron expression")

	cfg.Schedule.Cron = ""
	cfg.Schedule.Watch = []string{filepath.Join(t.TempDir(), "nodir", "stations.json")}
	assert.ErrorContains(t, svc.Start(context.Background()), "watch dir")
	svc.Stop()
}

func TestSeedService_StopIdempotent(t *testing.T) {
	svc := service.NewSeedService(config.DefaultConfig(), nil)
	svc.Stop()
	svc.Stop()
}

func TestSeedService_ListSources(t *testing.T) {
	svc := service.NewSeedService(config.DefaultConfig(), nil)
	var types []string
	for _, s := range svc.ListSources() {
		types = append(types, s.Type)
	}
	assert.Equal(t, []string{"csv_file", "database", "http", "json_file", "mongodb"}, types)
}
