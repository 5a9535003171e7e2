package monitor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/1broseidon/screenward/internal/fsutil"
	"github.com/1broseidon/screenward/internal/logging"
)

// Monitor is a known physical display. ID never changes once assigned.
type Monitor struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Width         int           `json:"width"`
	Height        int           `json:"height"`
	X             int           `json:"x"`
	Y             int           `json:"y"`
	IsPrimary     bool          `json:"is_primary"`
	Fingerprints  *Fingerprints `json:"fingerprints"`
	FirstDetected string        `json:"first_detected"`
}

// Settings are the global user preferences stored next to the monitors.
type Settings struct {
	DefaultLayout       *string `json:"default_layout"`
	CenterMouseOnSwitch bool    `json:"center_mouse_on_switch"`
}

// SettingsPatch is a partial settings update. Nil fields are left as they
// are; an empty DefaultLayout clears the default.
type SettingsPatch struct {
	DefaultLayout       *string `json:"default_layout,omitempty"`
	CenterMouseOnSwitch *bool   `json:"center_mouse_on_switch,omitempty"`
}

type document struct {
	KnownMonitors []Monitor `json:"known_monitors"`
	Settings      Settings  `json:"settings"`
}

func defaultDocument() document {
	return document{KnownMonitors: []Monitor{}}
}

// Store persists known monitors and settings as a single JSON document and
// resolves detected displays to stable monitor ids.
type Store struct {
	mu       sync.Mutex
	path     string
	doc      document
	lastHash uint64
	log      *logging.Logger

	now   func() time.Time
	newID func() string
}

// OpenStore loads the document at path, creating it when missing. Malformed
// documents degrade to an empty default.
func OpenStore(path string, log *logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Nop()
	}
	s := &Store{
		path:  path,
		doc:   defaultDocument(),
		log:   log.With("component", "monitor_store"),
		now:   time.Now,
		newID: func() string { return "monitor_" + uuid.NewString()[:8] },
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.log.Info("monitor config not found, creating default", "path", path)
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read monitor config: %w", err)
	}

	doc, ok, err := decodeDocument(data)
	if err != nil {
		s.log.Error("error loading monitor config, using defaults", err, "path", path)
		return s, nil
	}
	if !ok {
		s.log.Warn("invalid monitor config, creating new default", "path", path)
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	}
	s.doc = doc
	s.lastHash, _ = hashDocument(s.doc)

	for _, m := range s.doc.KnownMonitors {
		if m.Fingerprints == nil {
			s.log.Error("monitor is missing fingerprints; config is from an incompatible schema, regenerate it", nil, "monitor_id", m.ID)
		}
	}
	return s, nil
}

// decodeDocument reports ok=false when the document parses but has no
// known_monitors list.
func decodeDocument(data []byte) (document, bool, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return document{}, false, err
	}
	list, present := raw["known_monitors"]
	if !present || !bytes.HasPrefix(bytes.TrimSpace(list), []byte("[")) {
		return document{}, false, nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, false, err
	}
	if doc.KnownMonitors == nil {
		doc.KnownMonitors = []Monitor{}
	}
	return doc, true, nil
}

func hashDocument(doc document) (uint64, error) {
	return hashstructure.Hash(doc, hashstructure.FormatV2, nil)
}

// save rewrites the whole document unless its content hash matches the last
// write. Callers hold s.mu.
func (s *Store) save() error {
	h, err := hashDocument(s.doc)
	if err == nil && s.lastHash != 0 && h == s.lastHash {
		return nil
	}
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode monitor config: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write monitor config: %w", err)
	}
	s.lastHash = h
	s.log.Debug("monitor config saved", "path", s.path)
	return nil
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// AddOrUpdate resolves a detected display to a monitor id, updating the
// matched record or creating a new one.
func (s *Store) AddOrUpdate(d Data) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.addOrUpdate(d, nil)
	if err != nil {
		return "", err
	}
	return id, s.save()
}

// ResolveAll resolves every display of one detection pass and saves once.
// A monitor claimed by one display is not reused for another, so identical
// monitors keep distinct ids. Displays that cannot be fingerprinted get an
// empty id and contribute to the returned error.
func (s *Store) ResolveAll(ds []Data) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	claimed := make(map[string]bool, len(ds))
	ids := make([]string, len(ds))
	var errs []error
	for i, d := range ds {
		id, err := s.addOrUpdate(d, claimed)
		if err != nil {
			errs = append(errs, fmt.Errorf("display %q: %w", d.Name, err))
			continue
		}
		ids[i] = id
	}
	if err := s.save(); err != nil {
		errs = append(errs, err)
	}
	return ids, errors.Join(errs...)
}

func (s *Store) addOrUpdate(d Data, claimed map[string]bool) (string, error) {
	fp, err := Generate(d)
	if err != nil {
		return "", err
	}

	idx := s.findMatch(fp, claimed)
	if idx >= 0 {
		m := &s.doc.KnownMonitors[idx]
		m.X, m.Y = d.X, d.Y
		m.IsPrimary = d.IsPrimary
		m.Name = d.Name
		m.Fingerprints = &fp
		if claimed != nil {
			claimed[m.ID] = true
		}
		return m.ID, nil
	}

	m := Monitor{
		ID:            s.newID(),
		Name:          d.Name,
		Width:         d.Width,
		Height:        d.Height,
		X:             d.X,
		Y:             d.Y,
		IsPrimary:     d.IsPrimary,
		Fingerprints:  &fp,
		FirstDetected: s.now().Format(time.RFC3339),
	}
	s.doc.KnownMonitors = append(s.doc.KnownMonitors, m)
	if claimed != nil {
		claimed[m.ID] = true
	}
	s.log.Info("added new monitor", "monitor_id", m.ID, "primary_fp", fp.Primary, "secondary_fp", fp.Secondary)
	return m.ID, nil
}

// findMatch prefers a primary match anywhere in the list over a resolution
// match.
func (s *Store) findMatch(fp Fingerprints, claimed map[string]bool) int {
	for _, strict := range []bool{true, false} {
		for i, m := range s.doc.KnownMonitors {
			if m.Fingerprints == nil {
				if !strict {
					s.log.Warn("monitor missing fingerprints, skipping", "monitor_id", m.ID)
				}
				continue
			}
			if claimed[m.ID] {
				continue
			}
			if ok, reason := Match(fp, *m.Fingerprints, strict); ok {
				s.log.Debug("monitor match found", "reason", string(reason), "monitor_id", m.ID)
				return i
			}
		}
	}
	return -1
}

// Monitors returns a copy of all known monitors.
func (s *Store) Monitors() []Monitor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Monitor, len(s.doc.KnownMonitors))
	copy(out, s.doc.KnownMonitors)
	return out
}

// Monitor looks up a known monitor by id.
func (s *Store) Monitor(id string) (Monitor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.doc.KnownMonitors {
		if m.ID == id {
			return m, true
		}
	}
	return Monitor{}, false
}

// Delete removes a monitor permanently. It reports false when id is unknown.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.doc.KnownMonitors {
		if m.ID != id {
			continue
		}
		s.doc.KnownMonitors = append(s.doc.KnownMonitors[:i], s.doc.KnownMonitors[i+1:]...)
		if err := s.save(); err != nil {
			return true, err
		}
		s.log.Info("deleted monitor", "monitor_id", id)
		return true, nil
	}
	return false, nil
}

// Settings returns the current settings.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.doc.Settings
	if out.DefaultLayout != nil {
		v := *out.DefaultLayout
		out.DefaultLayout = &v
	}
	return out
}

// UpdateSettings merges patch into the stored settings and saves.
func (s *Store) UpdateSettings(patch SettingsPatch) (Settings, error) {
	s.mu.Lock()
	if patch.DefaultLayout != nil {
		if *patch.DefaultLayout == "" {
			s.doc.Settings.DefaultLayout = nil
		} else {
			v := *patch.DefaultLayout
			s.doc.Settings.DefaultLayout = &v
		}
	}
	if patch.CenterMouseOnSwitch != nil {
		s.doc.Settings.CenterMouseOnSwitch = *patch.CenterMouseOnSwitch
	}
	err := s.save()
	s.mu.Unlock()
	if err != nil {
		return Settings{}, err
	}
	s.log.Info("settings updated")
	return s.Settings(), nil
}

// DefaultLayout returns the configured default layout name, or "".
func (s *Store) DefaultLayout() string {
	st := s.Settings()
	if st.DefaultLayout == nil {
		return ""
	}
	return *st.DefaultLayout
}
