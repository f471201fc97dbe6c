package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"
)

// Game identifies which Splatoon release a weapon belongs to
type Game string

const (
	Splatoon  Game = "Splatoon"
	Splatoon2 Game = "Splatoon 2"
	Splatoon3 Game = "Splatoon 3"
)

// Valid reports whether g is one of the known releases
func (g Game) Valid() bool {
	switch g {
	case Splatoon, Splatoon2, Splatoon3:
		return true
	}
	return false
}

// Weapon is a single catalog entry. Field names follow the weapons.json
// produced by the wiki scraper so the list can be served to the frontend as-is.
type Weapon struct {
	Name           string  `json:"name"`
	Class          string  `json:"class"`
	Game           Game    `json:"game"`
	Image          string  `json:"image"`
	FireRate       float64 `json:"firerate"`
	Range          float64 `json:"range"`
	Damage         float64 `json:"damage"`
	Weight         string  `json:"weight,omitempty"`
	Sub            string  `json:"sub,omitempty"`
	Special        string  `json:"special,omitempty"`
	HintReleased   string  `json:"hint_released,omitempty"`
	HintBaseDamage string  `json:"hint_base_damage,omitempty"`
}

// Key identifies a weapon. Names repeat across games, so both are needed.
type Key struct {
	Name string `json:"name"`
	Game Game   `json:"game"`
}

// Key returns the identity of the weapon
func (w Weapon) Key() Key {
	return Key{Name: w.Name, Game: w.Game}
}

// Label formats the weapon the way the frontend parses answers: "Name (Game)"
func (w Weapon) Label() string {
	return w.Key().String()
}

func (k Key) String() string {
	return fmt.Sprintf("%s (%s)", k.Name, k.Game)
}

// ErrEmpty is returned when the catalog file parses but holds no weapons
var ErrEmpty = errors.New("catalog contains no weapons")

// LoadError reports a catalog that could not be loaded. It is fatal at startup.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load weapon catalog %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Catalog is the read-only weapon list
type Catalog struct {
	weapons []Weapon
	index   map[Key]int
}

type catalogFile struct {
	Weapons []Weapon `json:"weapons"`
}

// Load reads weapons.json from path
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("malformed json: %w", err)}
	}

	c, err := New(file.Weapons)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return c, nil
}

// New builds a catalog from an in-memory list. Duplicate (name, game) pairs
// keep the first occurrence.
func New(weapons []Weapon) (*Catalog, error) {
	if len(weapons) == 0 {
		return nil, ErrEmpty
	}

	c := &Catalog{
		weapons: make([]Weapon, 0, len(weapons)),
		index:   make(map[Key]int, len(weapons)),
	}
	for i, w := range weapons {
		w.Name = strings.TrimSpace(w.Name)
		if w.Name == "" {
			return nil, fmt.Errorf("weapon %d has no name", i)
		}
		if !w.Game.Valid() {
			return nil, fmt.Errorf("weapon %q has unknown game %q", w.Name, w.Game)
		}
		if _, dup := c.index[w.Key()]; dup {
			continue
		}
		c.index[w.Key()] = len(c.weapons)
		c.weapons = append(c.weapons, w)
	}
	return c, nil
}

// All returns a copy of every weapon in file order
func (c *Catalog) All() []Weapon {
	out := make([]Weapon, len(c.weapons))
	copy(out, c.weapons)
	return out
}

// Len returns the number of weapons
func (c *Catalog) Len() int {
	return len(c.weapons)
}

// At returns the weapon at position i
func (c *Catalog) At(i int) Weapon {
	return c.weapons[i]
}

// Index returns the position of the weapon with key k
func (c *Catalog) Index(k Key) (int, bool) {
	i, ok := c.index[k]
	return i, ok
}

// Find looks up a weapon by name and game
func (c *Catalog) Find(k Key) (Weapon, bool) {
	i, ok := c.index[k]
	if !ok {
		return Weapon{}, false
	}
	return c.weapons[i], true
}
