package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jimezsa/leadcli/internal/config"
)

func TestShowConfigRedactsDSN(t *testing.T) {
	cfg := config.Config{
		DefaultLocation: "Chicago, IL",
		BaseURL:         "https://www.yellowpages.com",
		TimeoutSeconds:  10,
		DispatchDelayMS: 1000,
		PostgresDSN:     "postgres://leads:secret@db:5432/leads",
	}

	var plain bytes.Buffer
	if err := (&ShowConfigCmd{}).Run(&Context{Out: &plain, Config: cfg}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	out := plain.String()
	if strings.Contains(out, "secret") {
		t.Fatalf("dsn credentials leaked:\n%s", out)
	}
	for _, want := range []string{"default_location   Chicago, IL", "dispatch_delay_ms  1000", "postgres_dsn       (set)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}

	var encoded bytes.Buffer
	if err := (&ShowConfigCmd{}).Run(&Context{Out: &encoded, JSONOutput: true, Config: cfg}); err != nil {
		t.Fatalf("Run() json error = %v", err)
	}
	var decoded config.Config
	if err := json.Unmarshal(encoded.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.PostgresDSN != "(set)" || decoded.TimeoutSeconds != 10 {
		t.Fatalf("unexpected json config: %+v", decoded)
	}
}

func TestVersionListsSites(t *testing.T) {
	var plain bytes.Buffer
	if err := (&VersionCmd{}).Run(&Context{Out: &plain, Version: "1.2.0"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := plain.String(); got != "leadcli 1.2.0 (sites: yellowpages)\n" {
		t.Fatalf("version output = %q", got)
	}

	var encoded bytes.Buffer
	if err := (&VersionCmd{}).Run(&Context{Out: &encoded, JSONOutput: true, Version: "1.2.0"}); err != nil {
		t.Fatalf("Run() json error = %v", err)
	}
	var info versionInfo
	if err := json.Unmarshal(encoded.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Version != "1.2.0" || len(info.Sites) != 1 || info.Sites[0] != "yellowpages" {
		t.Fatalf("unexpected version info: %+v", info)
	}
}
