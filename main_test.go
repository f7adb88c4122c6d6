package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ankurkotwal/metabind/mbind"
	"github.com/ankurkotwal/metabind/mbind/common"
)

func TestParseCliArgs(t *testing.T) {
	flags, configFile := parseCliArgs([]string{"-d", "--port", "9000", "-c", "other.yaml"})
	if configFile != "other.yaml" {
		t.Errorf("config file = %s", configFile)
	}
	if debug, _ := flags.GetBool("debug"); !debug {
		t.Error("debug flag not set")
	}

	cfg, err := common.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), flags)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9000" || !cfg.DebugOutput || cfg.EnableSDL {
		t.Errorf("Unexpected config %+v", cfg)
	}
}

func TestParseCliArgs_Defaults(t *testing.T) {
	flags, configFile := parseCliArgs(nil)
	if configFile != common.DefaultConfigFile {
		t.Errorf("config file = %s", configFile)
	}
	if flags.Changed("sdl") {
		t.Error("sdl should be unset")
	}
}

func testServer(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	cfg, err := common.LoadConfig(filepath.Join(dir, "missing.yaml"), nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg.StoreFile = filepath.Join(dir, "store.yaml")
	cfg.AxisProfilesFile = "config/axis_profiles.yaml"
	cfg.CatalogFile = "config/catalog.yaml"
	cfg.ActionMapsFile = filepath.Join(dir, "actionmaps.xml")
	services, err := mbind.NewServices(cfg, common.NewLog())
	if err != nil {
		t.Fatalf("NewServices failed: %v", err)
	}
	return mbind.GetServer(services)
}

func TestServerSerial(t *testing.T) {
	router := testServer(t)
	for n := 0; n < 25; n++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/status", nil)
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	}
}

func TestServerConc(t *testing.T) {
	router := testServer(t)
	paths := []string{"/api/status", "/api/devices", "/api/bindings", "/api/axes/dev1"}

	var wg sync.WaitGroup
	for n := 0; n < 25; n++ {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, path, nil)
			router.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Errorf("%s: status = %d", path, w.Code)
			}
		}(paths[n%len(paths)])
	}
	wg.Wait()
}
