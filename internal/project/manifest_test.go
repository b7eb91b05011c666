package project

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "slate.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[package]
name = "demo"

[build]
entry = "src/main.sl"

[target]
address_size = 64
default_integer_size = 32
`)
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Config.Package.Name != "demo" {
		t.Fatalf("name: %s", m.Config.Package.Name)
	}
	entry, ok := m.Entry()
	if !ok || entry != filepath.Join(dir, "src/main.sl") {
		t.Fatalf("entry: %s %v", entry, ok)
	}
	target, err := m.Target()
	if err != nil {
		t.Fatal(err)
	}
	if target.AddressSize != 64 || target.DefaultIntegerSize != 32 {
		t.Fatalf("target: %+v", target)
	}
}

func TestLoadRejectsBadSizes(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "[target]\naddress_size = 48\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for address_size 48")
	}
}

func TestTargetDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "[package]\nname = \"x\"\n")
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	target, err := m.Target()
	if err != nil {
		t.Fatal(err)
	}
	if target.AddressSize != 64 || target.DefaultIntegerSize != 64 {
		t.Fatalf("defaults: %+v", target)
	}
}

func TestFindWalksUp(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[package]\nname = \"x\"\n")
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	path, ok, err := Find(nested)
	if err != nil || !ok {
		t.Fatalf("find: %v %v", ok, err)
	}
	if path != filepath.Join(dir, "slate.toml") {
		t.Fatalf("path: %s", path)
	}
}
