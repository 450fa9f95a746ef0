package modules

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestHTTPGetModule_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	}))
	defer srv.Close()

	m := NewHTTPGetModule(zerolog.Nop())
	ctx := context.Background()
	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer m.Deinitialize(ctx)

	body, err := m.Get(ctx, srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(body) != "pong" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestRPCClientModule_CallIsUnimplemented(t *testing.T) {
	m := NewRPCClientModule("http://127.0.0.1:0", zerolog.Nop())
	ctx := context.Background()
	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer m.Deinitialize(ctx)

	_, err := m.Call(ctx, "getBlock", nil)
	if err == nil {
		t.Fatal("expected unimplemented method error")
	}
}
