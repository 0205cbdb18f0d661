package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"verdant/internal/config"
	"verdant/internal/core"
)

// setTestEnv configures the minimum environment for LoadConfig in local mode.
func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("PORT", "0")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SINK_KIND", "none")
	t.Setenv("ENABLE_METRICS", "false")
	t.Setenv("RATE_LIMIT_REDIS_URL", "")
	t.Setenv("SIM_SEED", "42")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func noAWS(t *testing.T) awsLoader {
	return func(context.Context, config.AWSConfig) (awsClients, error) {
		t.Error("AWS clients should not be loaded")
		return awsClients{}, errors.New("unexpected")
	}
}

type fakeSQS struct {
	mu   sync.Mutex
	sent []*sqs.SendMessageInput
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, in)
	return &sqs.SendMessageOutput{}, nil
}

type fakeCloudWatch struct {
	mu    sync.Mutex
	count int
}

func (f *fakeCloudWatch) PutMetricData(context.Context, *cloudwatch.PutMetricDataInput, ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func buildTestServer(t *testing.T, loader awsLoader) *core.Server {
	t.Helper()

	cfg, err := config.LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	srv, err := buildServer(context.Background(), cfg, testLogger(), loader)
	if err != nil {
		t.Fatalf("buildServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func serve(srv *core.Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	setTestEnv(t)
	srv := buildTestServer(t, noAWS(t))

	rec := serve(srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health: got %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status: got %v", resp["status"])
	}
}

func TestRoutesAreMounted(t *testing.T) {
	setTestEnv(t)
	srv := buildTestServer(t, noAWS(t))

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/plant-data", "", http.StatusOK},
		{http.MethodPost, "/plant-data", `{"temperature":99}`, http.StatusOK},
		{http.MethodGet, "/v1/observations", "", http.StatusOK},
		{http.MethodGet, "/v1/observations/2024-06-08", "", http.StatusOK},
		{http.MethodPost, "/v1/health/assess", `{"temperature":22,"humidity":60,"lightIntensity":800,"soilMoisture":50,"soilPh":6.5}`, http.StatusOK},
		{http.MethodGet, "/v1/agents", "", http.StatusOK},
		{http.MethodGet, "/v1/sessions", "", http.StatusOK},
		{http.MethodPost, "/v1/sessions", `{"kind":"dialogue"}`, http.StatusCreated},
		{http.MethodGet, "/v1/sessions/missing", "", http.StatusNotFound},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := serve(srv, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("got %d, want %d; body: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestSQSSinkWiring(t *testing.T) {
	setTestEnv(t)
	t.Setenv("SINK_KIND", "sqs")
	t.Setenv("SINK_SQS_QUEUE_URL", "https://sqs.us-east-1.amazonaws.com/000000000000/readings")

	fake := &fakeSQS{}
	loads := 0
	srv := buildTestServer(t, func(context.Context, config.AWSConfig) (awsClients, error) {
		loads++
		return awsClients{SQS: fake, CloudWatch: &fakeCloudWatch{}}, nil
	})
	if loads != 1 {
		t.Errorf("expected one AWS load, got %d", loads)
	}

	rec := serve(srv, http.MethodPost, "/plant-data", `{"soilPh":6.4}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /plant-data: got %d", rec.Code)
	}
	if len(fake.sent) != 1 {
		t.Fatalf("expected one SQS message, got %d", len(fake.sent))
	}
	if body := *fake.sent[0].MessageBody; !strings.Contains(body, `"soilPh":6.4`) {
		t.Errorf("message body: %s", body)
	}
}

func TestMetricsWiring(t *testing.T) {
	setTestEnv(t)
	t.Setenv("ENABLE_METRICS", "true")

	cw := &fakeCloudWatch{}
	srv := buildTestServer(t, func(context.Context, config.AWSConfig) (awsClients, error) {
		return awsClients{CloudWatch: cw}, nil
	})
	if srv.Metrics == nil {
		t.Fatal("metrics collector should be set")
	}

	serve(srv, http.MethodPost, "/v1/health/assess", `{"temperature":22,"humidity":60,"lightIntensity":800,"soilMoisture":50,"soilPh":6.5}`)

	cw.mu.Lock()
	defer cw.mu.Unlock()
	// One health score datum plus one request datum.
	if cw.count != 2 {
		t.Errorf("expected 2 metric puts, got %d", cw.count)
	}
}

func TestRedisRateLimitWiring(t *testing.T) {
	setTestEnv(t)
	mr := miniredis.RunT(t)
	t.Setenv("RATE_LIMIT_REDIS_URL", "redis://"+mr.Addr())
	t.Setenv("RATE_LIMIT_REQUESTS", "2")

	srv := buildTestServer(t, noAWS(t))

	if _, ok := srv.RateLimitStore.(*core.RedisRateLimitStore); !ok {
		t.Fatalf("expected redis store, got %T", srv.RateLimitStore)
	}
	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, serve(srv, http.MethodGet, "/v1/agents", "").Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes: %v", codes)
	}

	rec := serve(srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "rate_limit_redis") {
		t.Errorf("health should probe redis: %d %s", rec.Code, rec.Body.String())
	}
}

func TestIsLambdaEnvironment(t *testing.T) {
	t.Setenv("AWS_LAMBDA_RUNTIME_API", "")
	os.Unsetenv("AWS_LAMBDA_RUNTIME_API")
	os.Unsetenv("_LAMBDA_SERVER_PORT")
	if isLambdaEnvironment() {
		t.Error("expected non-Lambda environment")
	}

	t.Setenv("AWS_LAMBDA_RUNTIME_API", "127.0.0.1:9001")
	if !isLambdaEnvironment() {
		t.Error("expected Lambda environment")
	}
}

func TestSecretProvider(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	if secretProvider() != nil {
		t.Error("local mode should not use SSM")
	}

	t.Setenv("APP_ENV", "prod")
	if _, ok := secretProvider().(*config.SSMProvider); !ok {
		t.Error("non-local mode should use SSM")
	}

	t.Setenv("SECRET_PROVIDER", "env")
	if _, ok := secretProvider().(*config.EnvVarProvider); !ok {
		t.Error("SECRET_PROVIDER=env should resolve from the environment")
	}
}

func TestNewLogger(t *testing.T) {
	ctx := context.Background()
	for level, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	} {
		l := newLogger(level)
		if !l.Enabled(ctx, want) {
			t.Errorf("%s: level %v should be enabled", level, want)
		}
		if want > slog.LevelDebug && l.Enabled(ctx, want-4) {
			t.Errorf("%s: level below %v should be disabled", level, want)
		}
	}
}
