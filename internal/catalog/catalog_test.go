package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weapons.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}
	return path
}

// TestLoad_Valid tests loading a well-formed catalog
func TestLoad_Valid(t *testing.T) {
	path := writeCatalog(t, `{"weapons": [
		{"name": "Splattershot", "class": "Shooter", "game": "Splatoon 3", "image": "S3_Splattershot.png", "range": 50},
		{"name": "Explosher", "class": "Slosher", "game": "Splatoon 2", "image": "S2_Explosher.png"},
		{"name": "Splattershot", "class": "Shooter", "game": "Splatoon", "image": "S1_Splattershot.png"}
	]}`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Expected 3 weapons, got %d", c.Len())
	}

	w, ok := c.Find(Key{Name: "Splattershot", Game: Splatoon})
	if !ok {
		t.Fatal("Expected to find Splattershot (Splatoon)")
	}
	if w.Image != "S1_Splattershot.png" {
		t.Errorf("Expected the Splatoon 1 variant, got image: %s", w.Image)
	}
	if c.At(0).Range != 50 {
		t.Errorf("Expected range 50, got: %v", c.At(0).Range)
	}
}

// TestLoad_Errors tests that every failure mode is reported as a LoadError
func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing bool
	}{
		{name: "missing file", missing: true},
		{name: "malformed json", content: `{"weapons": [`},
		{name: "empty list", content: `{"weapons": []}`},
		{name: "no weapons key", content: `{}`},
		{name: "unnamed weapon", content: `{"weapons": [{"name": " ", "game": "Splatoon"}]}`},
		{name: "unknown game", content: `{"weapons": [{"name": "Blaster", "game": "Splatoon 4"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "absent.json")
			if !tt.missing {
				path = writeCatalog(t, tt.content)
			}

			_, err := Load(path)
			if err == nil {
				t.Fatal("Expected error")
			}
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("Expected *LoadError, got: %T", err)
			}
			if loadErr.Path != path {
				t.Errorf("Expected path %s, got: %s", path, loadErr.Path)
			}
		})
	}
}

// TestNew_DeduplicatesKeys tests that repeated (name, game) pairs are collapsed
func TestNew_DeduplicatesKeys(t *testing.T) {
	c, err := New([]Weapon{
		{Name: "Explosher", Game: Splatoon2, Class: "Slosher"},
		{Name: "Explosher", Game: Splatoon2, Class: "Other"},
		{Name: "Explosher", Game: Splatoon3},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("Expected 2 weapons, got %d", c.Len())
	}
	w, _ := c.Find(Key{Name: "Explosher", Game: Splatoon2})
	if w.Class != "Slosher" {
		t.Errorf("Expected first occurrence to win, got class: %s", w.Class)
	}
}

// TestWeapon_Label tests the "Name (Game)" answer format
func TestWeapon_Label(t *testing.T) {
	w := Weapon{Name: "Splattershot", Game: Splatoon3}
	if got := w.Label(); got != "Splattershot (Splatoon 3)" {
		t.Errorf("Expected 'Splattershot (Splatoon 3)', got: %s", got)
	}
}

// TestCatalog_AllIsCopy tests that callers cannot mutate the catalog
func TestCatalog_AllIsCopy(t *testing.T) {
	c, _ := New([]Weapon{{Name: "Splattershot", Game: Splatoon3}})
	all := c.All()
	all[0].Name = "Mutated"
	if c.At(0).Name != "Splattershot" {
		t.Error("Expected catalog to be unaffected by changes to All()")
	}
}
