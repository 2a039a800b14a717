package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-merit-api/pkg/config"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:       "test",
		APIPrefix: "/api/v1",
		Timezone:  "Asia/Ho_Chi_Minh",
		Storage:   config.StorageConfig{Backend: config.StorageMemory, Timeout: time.Second},
		JWT:       config.JWTConfig{Secret: "s", Expiration: time.Hour},
		Seed:      config.SeedConfig{ProvisionOnBoot: true},
		Meals:     config.MealConfig{AbsenceKeyword: "Absent"},
		Plans:     config.PlanConfig{StatusPolicy: "always_on_time", Weeks: 20},
		Artifacts: config.ArtifactsConfig{StorageDir: t.TempDir(), SignedURLSecret: "a", SignedURLTTL: time.Minute},
	}
}

func TestSeedCommand(t *testing.T) {
	var out bytes.Buffer
	err := dispatch(context.Background(), memoryConfig(t), zap.NewNop(), []string{"seed"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "provisioned")
	assert.Contains(t, out.String(), "memory storage")
}

func TestReportRankingCSV(t *testing.T) {
	var out bytes.Buffer
	err := dispatch(context.Background(), memoryConfig(t), zap.NewNop(), []string{"report", "ranking", "--format", "csv"}, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "rank,class,net_score,events", lines[0])
	assert.Equal(t, "1,10A1,0,0", lines[1])
}

func TestReportMealsTable(t *testing.T) {
	var out bytes.Buffer
	err := dispatch(context.Background(), memoryConfig(t), zap.NewNop(), []string{"report", "meals", "--date", "2024-10-07"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Meal Count 2024-10-07")
	assert.Contains(t, out.String(), "BOARDING_TYPE")
	assert.Contains(t, out.String(), "TOTAL")
}

func TestReportRejectsBadInput(t *testing.T) {
	cfg := memoryConfig(t)
	var out bytes.Buffer

	assert.Error(t, dispatch(context.Background(), cfg, zap.NewNop(), []string{"report"}, &out))
	assert.Error(t, dispatch(context.Background(), cfg, zap.NewNop(), []string{"report", "grades"}, &out))
	assert.Error(t, dispatch(context.Background(), cfg, zap.NewNop(), []string{"report", "ranking", "--format", "xml"}, &out))
	assert.Error(t, dispatch(context.Background(), cfg, zap.NewNop(), []string{"report", "meals", "--date", "07/10/2024"}, &out))
	assert.Error(t, dispatch(context.Background(), cfg, zap.NewNop(), []string{"purge"}, &out))
}
