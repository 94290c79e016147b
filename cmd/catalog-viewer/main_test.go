package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/catalog-viewer/internal/catalog"
	"github.com/Sternrassler/catalog-viewer/internal/testutil"
	"github.com/Sternrassler/catalog-viewer/internal/view"
	"github.com/alicebob/miniredis/v2"
)

// execute runs the CLI against the mock catalog and returns its stdout.
func execute(t *testing.T, mock *testutil.MockCatalog, args ...string) (string, error) {
	t.Helper()

	t.Setenv("CATALOG_API_BASE", mock.BaseURL())
	t.Setenv("LOG_LEVEL", "error")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestSearchCommand(t *testing.T) {
	mock := testutil.NewStarterCatalog()
	defer mock.Close()

	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
	}{
		{
			name: "all",
			args: []string{"search"},
			want: []string{"bulbasaur", "eevee", "Page 1 of 1 (6 entities)"},
		},
		{
			name:    "term",
			args:    []string{"search", "CHAR"},
			want:    []string{"charmander", "charizard"},
			notWant: []string{"squirtle"},
		},
		{
			name:    "category",
			args:    []string{"search", "--category", "water"},
			want:    []string{"squirtle", "water"},
			notWant: []string{"pikachu"},
		},
		{
			name: "no match",
			args: []string{"search", "missingno"},
			want: []string{view.MsgNoResults},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, mock, tt.args...)
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(out, notWant) {
					t.Errorf("output should not contain %q:\n%s", notWant, out)
				}
			}
		})
	}
}

func TestSearchCommand_CatalogFailure(t *testing.T) {
	mock := testutil.NewStarterCatalog()
	defer mock.Close()
	mock.SetResponse(testutil.EntityPath(7), testutil.NewServerErrorResponse())

	_, err := execute(t, mock, "search")
	if err == nil {
		t.Fatal("Expected error when one entity fails to load")
	}
	if !strings.Contains(err.Error(), view.MsgCatalogError) {
		t.Errorf("Expected catalog error message, got %v", err)
	}
}

func TestShowCommand(t *testing.T) {
	mock := testutil.NewStarterCatalog()
	defer mock.Close()

	out, err := execute(t, mock, "show", "6")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}

	for _, want := range []string{"Charizard (Nº 6)", "Types: fire, flying", "- blaze", "- electric", "- water"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestShowCommand_Errors(t *testing.T) {
	mock := testutil.NewStarterCatalog()
	defer mock.Close()

	if _, err := execute(t, mock, "show", "abc"); err == nil {
		t.Error("Expected error for non-numeric id")
	}
	if _, err := execute(t, mock, "show", "9999"); err == nil {
		t.Error("Expected error for unknown id")
	}
}

func TestPrintDetail_NoWeaknesses(t *testing.T) {
	var out bytes.Buffer
	printDetail(&out, catalog.Entity{ID: 132, Name: "ditto", Traits: []string{"limber"}}, nil)

	if !strings.Contains(out.String(), view.MsgNoWeaknesses) {
		t.Errorf("Expected %q in:\n%s", view.MsgNoWeaknesses, out.String())
	}
}

func TestSearchCommand_WithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	mock := testutil.NewStarterCatalog()
	defer mock.Close()

	t.Setenv("CATALOG_REDIS_ADDR", mr.Addr())

	if _, err := execute(t, mock, "search"); err != nil {
		t.Fatalf("first search failed: %v", err)
	}
	first := mock.GetRequestCount()

	if _, err := execute(t, mock, "search"); err != nil {
		t.Fatalf("second search failed: %v", err)
	}

	if got := mock.GetRequestCount(); got != first {
		t.Errorf("Expected cached responses on second run, requests went from %d to %d", first, got)
	}
	if len(mr.Keys()) == 0 {
		t.Error("Expected cache entries in redis")
	}
}

func TestBuildDeps_RedisUnreachable(t *testing.T) {
	t.Setenv("CATALOG_REDIS_ADDR", "127.0.0.1:1")
	globalConfig, globalLogLevel = "", "error"

	_, err := buildDeps(context.Background())
	if err == nil || !strings.Contains(err.Error(), "connecting to redis") {
		t.Errorf("Expected redis connection error, got %v", err)
	}
}
