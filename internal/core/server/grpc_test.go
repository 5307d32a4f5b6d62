package server

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/surveylogic/internal/core/api"
	"github.com/solatis/surveylogic/internal/core/auth"
	"github.com/solatis/surveylogic/internal/core/config"
	"github.com/solatis/surveylogic/internal/core/db"
)

const testSecretID = "0123456789abcdef0123456789abcdef"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func startTestServer(t *testing.T, logger zerolog.Logger) (*grpc.ClientConn, string) {
	t.Helper()
	ctx := context.Background()

	database, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.MigrateUp(database); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		t.Fatalf("LoadQueries() error = %v", err)
	}
	store := db.NewStore(database, queries, logger)

	key, hash, err := auth.GenerateAPIKey(testSecretID, testSecret)
	if err != nil {
		t.Fatalf("GenerateAPIKey() error = %v", err)
	}
	if _, err := store.CreateAPIKey(ctx, "test", testSecretID, hash); err != nil {
		t.Fatalf("CreateAPIKey() error = %v", err)
	}

	cfg := config.DefaultNavigationAPIConfig()
	service, err := api.NewNavigationService(store, cfg, logger)
	if err != nil {
		t.Fatalf("NewNavigationService() error = %v", err)
	}
	authenticator := auth.NewAuthenticator(map[string][]byte{testSecretID: testSecret}, queries, logger)

	srv, err := NewGRPCServer(cfg, service, authenticator, logger)
	if err != nil {
		t.Fatalf("NewGRPCServer() error = %v", err)
	}

	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, key
}

func TestNewGRPCServer_RequiresDependencies(t *testing.T) {
	cfg := config.DefaultNavigationAPIConfig()
	authenticator := auth.NewAuthenticator(nil, nil, zerolog.Nop())
	if _, err := NewGRPCServer(nil, nil, authenticator, zerolog.Nop()); err == nil {
		t.Errorf("NewGRPCServer(nil cfg) error = nil, want error")
	}
	if _, err := NewGRPCServer(cfg, nil, authenticator, zerolog.Nop()); err == nil {
		t.Errorf("NewGRPCServer(nil service) error = nil, want error")
	}
}

func TestGRPCServer_HealthIsOpen(t *testing.T) {
	conn, _ := startTestServer(t, zerolog.Nop())

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: api.ServiceName})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("Status = %s, want SERVING", resp.Status)
	}
}

func TestGRPCServer_RequiresAPIKey(t *testing.T) {
	var logs bytes.Buffer
	conn, key := startTestServer(t, zerolog.New(&logs).Level(zerolog.DebugLevel))
	client := api.NewNavigationAPIClient(conn)

	req, err := structpb.NewStruct(map[string]any{"rules": []any{}})
	if err != nil {
		t.Fatalf("NewStruct() error = %v", err)
	}

	_, err = client.EvaluateLogic(context.Background(), req)
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("EvaluateLogic(no key) code = %s, want Unauthenticated", status.Code(err))
	}

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-api-key", key)
	out, err := client.EvaluateLogic(ctx, req)
	if err != nil {
		t.Fatalf("EvaluateLogic(key) error = %v", err)
	}
	if v, ok := out.AsMap()["action"]; !ok || v != nil {
		t.Errorf("action = %v, want null", v)
	}

	_, err = client.StartResponse(ctx, mustStruct(t, map[string]any{"surveyId": "missing"}))
	if status.Code(err) != codes.NotFound {
		t.Errorf("StartResponse(missing) code = %s, want NotFound", status.Code(err))
	}

	if !strings.Contains(logs.String(), api.MethodEvaluateLogic) {
		t.Errorf("rpc log missing method: %s", logs.String())
	}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct() error = %v", err)
	}
	return s
}

func TestTimeoutInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/test/Method"}

	var deadline time.Time
	var hasDeadline bool
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		deadline, hasDeadline = ctx.Deadline()
		return nil, nil
	}

	if _, err := timeoutInterceptor(time.Second)(context.Background(), nil, info, handler); err != nil {
		t.Fatalf("interceptor error = %v", err)
	}
	if !hasDeadline || time.Until(deadline) > time.Second {
		t.Errorf("deadline = %v (set %v), want within 1s", deadline, hasDeadline)
	}

	if _, err := timeoutInterceptor(0)(context.Background(), nil, info, handler); err != nil {
		t.Fatalf("interceptor error = %v", err)
	}
	if hasDeadline {
		t.Errorf("zero timeout set a deadline")
	}
}
