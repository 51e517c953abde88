package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jpalmerr/railpulse/internal/railwaytest"
)

// executeCmd runs the root command with args and returns captured output.
func executeCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	}()

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func fixtureAPI() *railwaytest.API {
	return railwaytest.New("secret",
		railwaytest.Project{ID: "p1", Name: "billing", Services: []railwaytest.Service{
			{ID: "s1", Name: "api", Status: "SUCCESS"},
			{ID: "s2", Name: "worker", Status: "CRASHED"},
		}},
		railwaytest.Project{ID: "p2", Name: "web", Services: []railwaytest.Service{
			{ID: "s3", Name: "frontend", Status: "DEPLOYING"},
		}},
	)
}

func TestRunStatus_PrintsSummary(t *testing.T) {
	ts := railwaytest.NewServer(fixtureAPI())
	defer ts.Close()

	configPath := writeConfig(t, fmt.Sprintf("api_url: %s\ntoken: secret\n", ts.URL))

	output, err := executeCmd(t, "", "status", "-c", configPath, "--json=false")
	if err != nil {
		t.Fatalf("status command error = %v", err)
	}

	expectedPhrases := []string{
		"3 services: 1 running, 1 errored, 1 deploying, 0 sleeping",
		"PROJECT",
		"billing",
		"crashed",
		"building",
	}
	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, output)
		}
	}
}

func TestRunStatus_JSON(t *testing.T) {
	ts := railwaytest.NewServer(fixtureAPI())
	defer ts.Close()

	configPath := writeConfig(t, fmt.Sprintf("api_url: %s\ntoken: secret\n", ts.URL))

	output, err := executeCmd(t, "", "status", "-c", configPath, "--json")
	if err != nil {
		t.Fatalf("status command error = %v", err)
	}

	var snap struct {
		Configured bool `json:"configured"`
		Projects   []struct {
			Name string `json:"name"`
		} `json:"projects"`
	}
	if err := json.Unmarshal([]byte(output), &snap); err != nil {
		t.Fatalf("output is not JSON: %v\nGot: %s", err, output)
	}
	if !snap.Configured {
		t.Error("configured = false, want true")
	}
	if len(snap.Projects) != 2 {
		t.Errorf("len(projects) = %d, want 2", len(snap.Projects))
	}
}

func TestRunStatus_BadToken(t *testing.T) {
	ts := railwaytest.NewServer(fixtureAPI())
	defer ts.Close()

	configPath := writeConfig(t, fmt.Sprintf("api_url: %s\ntoken: wrong\n", ts.URL))

	_, err := executeCmd(t, "", "status", "-c", configPath, "--json=false")
	if err == nil {
		t.Fatal("status command expected error for bad token, got nil")
	}
	if !strings.Contains(err.Error(), "fetch failed") {
		t.Errorf("error should mention 'fetch failed', got: %v", err)
	}
}

func TestRunStatus_Unconfigured(t *testing.T) {
	api := fixtureAPI()
	ts := railwaytest.NewServer(api)
	defer ts.Close()

	tokenPath := filepath.Join(t.TempDir(), "token")
	configPath := writeConfig(t, fmt.Sprintf(
		"api_url: %s\ntoken_store:\n  type: file\n  path: %s\n", ts.URL, tokenPath))

	_, err := executeCmd(t, "", "status", "-c", configPath, "--json=false")
	if err != errNotConfigured {
		t.Fatalf("status command error = %v, want errNotConfigured", err)
	}
	if n := api.Requests(); n != 0 {
		t.Errorf("requests = %d, want 0 while unconfigured", n)
	}
}

func TestRunTokenSet_FileStore(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "nested", "token")
	configPath := writeConfig(t, fmt.Sprintf("token_store:\n  type: file\n  path: %s\n", tokenPath))

	output, err := executeCmd(t, "", "token", "set", "-c", configPath, "  rw_abc  ")
	if err != nil {
		t.Fatalf("token set error = %v", err)
	}
	if !strings.Contains(output, "Token saved to file store") {
		t.Errorf("output = %q, want confirmation", output)
	}

	data, err := os.ReadFile(tokenPath)
	if err != nil {
		t.Fatalf("token file not written: %v", err)
	}
	if strings.TrimSpace(string(data)) != "rw_abc" {
		t.Errorf("token file = %q, want %q", data, "rw_abc")
	}
}

func TestRunTokenSet_FromStdin(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token")
	configPath := writeConfig(t, fmt.Sprintf("token_store:\n  type: file\n  path: %s\n", tokenPath))

	if _, err := executeCmd(t, "rw_stdin\n", "token", "set", "-c", configPath); err != nil {
		t.Fatalf("token set error = %v", err)
	}

	data, err := os.ReadFile(tokenPath)
	if err != nil {
		t.Fatalf("token file not written: %v", err)
	}
	if strings.TrimSpace(string(data)) != "rw_stdin" {
		t.Errorf("token file = %q, want %q", data, "rw_stdin")
	}
}

func TestRunTokenSet_StaticStoreRejected(t *testing.T) {
	configPath := writeConfig(t, "token: fixed\n")

	_, err := executeCmd(t, "", "token", "set", "-c", configPath, "other")
	if err == nil {
		t.Fatal("token set expected error for static store, got nil")
	}
	if !strings.Contains(err.Error(), "static") {
		t.Errorf("error should mention 'static', got: %v", err)
	}
}

func TestRunTokenSet_Empty(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token")
	configPath := writeConfig(t, fmt.Sprintf("token_store:\n  type: file\n  path: %s\n", tokenPath))

	_, err := executeCmd(t, "   \n", "token", "set", "-c", configPath)
	if err == nil {
		t.Fatal("token set expected error for empty token, got nil")
	}
}
