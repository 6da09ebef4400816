package e2e

import (
	"io"
	"log/slog"
	"net/http/httptest"

	"vcregistry/internal/credential/audit"
	"vcregistry/internal/credential/handler"
	"vcregistry/internal/credential/service"
	"vcregistry/internal/credential/store"
	"vcregistry/internal/kvstore"
	"vcregistry/internal/platform/health"
	httptransport "vcregistry/internal/transport/http"
)

const (
	inProcessSecret = "e2e-issue-secret"
	inProcessIssuer = "Về Tương Lai"
)

// startInProcess runs the full HTTP stack over an in-memory store. Each
// scenario gets its own server, so codes never collide between scenarios.
func startInProcess() *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kv := kvstore.NewMemory()

	svc := service.New(store.New(kv),
		service.Config{IssueSecret: inProcessSecret, IssuerName: inProcessIssuer},
		service.WithLogger(logger),
		service.WithAuditor(audit.NewWriter(audit.NewKVSink(kv), audit.WithLogger(logger))),
	)
	healthHandler := health.New("e2e")
	healthHandler.RegisterCheck("kv", kv.Health)

	router := httptransport.NewRouter(httptransport.Config{MaxBodyBytes: 64 << 10}, logger,
		handler.New(svc, logger, handler.WithPublicOrigin("https://vc.example.vn")),
		healthHandler,
	)
	return httptest.NewServer(router)
}
