package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"stoneware/internal/catalog"
	"stoneware/internal/config"
	"stoneware/internal/testsupport"
)

const duneCommunityDescription = "Set on the desert planet Arrakis, Dune is the story of the boy Paul Atreides, heir to a noble family tasked with ruling an inhospitable world."

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	catalogServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/volumes":
			_ = json.NewEncoder(w).Encode(map[string]any{"totalItems": 1, "items": []catalog.Volume{duneVolume()}})
		case "/volumes/ID1":
			_ = json.NewEncoder(w).Encode(duneVolume())
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(catalogServer.Close)

	communityServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/isbn/9780441172719.json":
			_, _ = w.Write([]byte(`{"works":[{"key":"/works/OL893415W"}]}`))
		case "/works/OL893415W/ratings.json":
			_, _ = w.Write([]byte(`{"summary":{"average":4.26,"count":1234}}`))
		case "/works/OL893415W.json":
			_ = json.NewEncoder(w).Encode(map[string]any{"description": duneCommunityDescription})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(communityServer.Close)

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	all := append([]testsupport.ConfigOption{
		testsupport.WithCatalogURL(catalogServer.URL),
		testsupport.WithCommunityURL(communityServer.URL),
	}, opts...)
	cfg := testsupport.NewConfig(t, all...)

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func duneVolume() catalog.Volume {
	return catalog.Volume{
		ID: "ID1",
		VolumeInfo: catalog.VolumeInfo{
			Title:       "Dune",
			Authors:     []string{"Frank Herbert"},
			Description: "<p>Set on the desert planet Arrakis.</p>",
			IndustryIdentifiers: []catalog.IndustryIdentifier{
				{Type: "ISBN_13", Identifier: "9780441172719"},
				{Type: "ISBN_10", Identifier: "0441172717"},
			},
		},
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
