package config

import "testing"

func TestDSNRoundTrip(t *testing.T) {
	conn := Connection{
		Host:     "db.example.com",
		Port:     5433,
		Database: "analytics",
		Username: "reporter",
		Password: "s3cret",
		SSLMode:  "require",
	}

	parsed, err := ParseDSN(conn.DSN())
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if parsed.Host != conn.Host || parsed.Port != conn.Port || parsed.Database != conn.Database {
		t.Errorf("parsed %+v", parsed)
	}
	if parsed.Username != "reporter" || parsed.Password != "s3cret" {
		t.Errorf("credentials lost: %+v", parsed)
	}
	if parsed.SSLMode != "require" {
		t.Errorf("sslmode lost: %q", parsed.SSLMode)
	}
}

func TestParseDSNDefaults(t *testing.T) {
	conn, err := ParseDSN("postgresql://localhost/mydb")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if conn.Port != 5432 {
		t.Errorf("default port = %d, want 5432", conn.Port)
	}
	if conn.Name == "" {
		t.Error("expected auto-generated name")
	}
}

func TestDSNWithoutCredentials(t *testing.T) {
	conn := Connection{Host: "localhost", Database: "db"}
	if got := conn.DSN(); got != "postgresql://localhost/db" {
		t.Errorf("got %q", got)
	}
}

func TestAddConnectionDeduplicates(t *testing.T) {
	cfg := &Config{}
	cfg.AddConnection(Connection{Name: "a"})
	cfg.AddConnection(Connection{Name: "a"})
	cfg.AddConnection(Connection{Name: "b"})
	if len(cfg.Connections) != 2 {
		t.Errorf("got %d connections, want 2", len(cfg.Connections))
	}
}

func TestDefaultConnection(t *testing.T) {
	cfg := &Config{
		Connections: []Connection{{Name: "first"}, {Name: "second"}},
		Preferences: Preferences{DefaultConnection: "second"},
	}
	if got := DefaultConnection(cfg); got == nil || got.Name != "second" {
		t.Errorf("got %+v", got)
	}

	cfg.Preferences.DefaultConnection = "missing"
	if got := DefaultConnection(cfg); got == nil || got.Name != "first" {
		t.Errorf("fallback: got %+v", got)
	}

	if got := DefaultConnection(&Config{}); got != nil {
		t.Errorf("empty config: got %+v", got)
	}
}
