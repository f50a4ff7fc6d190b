package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

// ProjectVersion is the current persisted format. Files without a version
// field predate versioning and are read as version 1.
const ProjectVersion = 1

var ErrUnsupportedVersion = errors.New("unsupported project version")

// Project is the persisted bundle of a canvas session.
type Project struct {
	Version    int      `json:"version"`
	Name       string   `json:"name"`
	Background string   `json:"backgroundImageId"`
	Labels     []Label  `json:"labels"`
	Primitives Snapshot `json:"primitivesByImage"`
	// ArrowStyle is how arrow heads render. Empty means ArrowSingle.
	ArrowStyle ArrowStyle `json:"arrowStyle,omitempty"`
}

func EncodeProject(p Project) ([]byte, error) {
	p.Version = ProjectVersion
	if p.Labels == nil {
		p.Labels = []Label{}
	}
	if p.Primitives == nil {
		p.Primitives = Snapshot{}
	}
	return json.MarshalIndent(p, "", "  ")
}

// DecodeProject parses and validates a project. It never returns a partially
// valid project.
func DecodeProject(data []byte) (Project, error) {
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return Project{}, fmt.Errorf("decode project: %w", err)
	}
	if p.Version == 0 {
		p.Version = ProjectVersion
	}
	if p.Version > ProjectVersion {
		return Project{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, p.Version)
	}
	if err := p.validate(); err != nil {
		return Project{}, err
	}
	if p.Primitives == nil {
		p.Primitives = Snapshot{}
	}
	if p.ArrowStyle == "" {
		p.ArrowStyle = ArrowSingle
	}
	return p, nil
}

func (p Project) validate() error {
	if len(p.Labels) > MaxLabels {
		return fmt.Errorf("project %q: %d labels: %w", p.Name, len(p.Labels), ErrLabelLimit)
	}
	switch p.ArrowStyle {
	case "", ArrowSingle, ArrowDouble, ArrowNone:
	default:
		return fmt.Errorf("project %q: unknown arrow style %q", p.Name, p.ArrowStyle)
	}
	for _, l := range p.Labels {
		if l.ID == "" {
			return fmt.Errorf("project %q: label without id", p.Name)
		}
		if err := l.validate(); err != nil {
			return fmt.Errorf("project %q: %w", p.Name, err)
		}
	}
	return nil
}

// Project captures the session as a persisted project.
func (s *Session) Project(name string) Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Project{
		Version:    ProjectVersion,
		Name:       name,
		Background: s.mapName,
		Labels:     s.labels.List(),
		Primitives: s.store.Snapshot(),
		ArrowStyle: s.arrowStyle,
	}
}

// LoadProject replaces the session contents with p and restarts history.
// The arrow style comes from the project; other tool parameters and zoom are
// kept. Invalid projects leave the session as is.
func (s *Session) LoadProject(p Project) error {
	if p.Version > ProjectVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, p.Version)
	}
	if err := p.validate(); err != nil {
		return err
	}
	s.update(func() bool {
		s.resetGesture()
		if p.Background != "" {
			s.mapName = p.Background
		}
		s.store.Restore(p.Primitives)
		s.labels.replace(p.Labels)
		s.arrowStyle = ArrowSingle
		if p.ArrowStyle != "" {
			s.arrowStyle = p.ArrowStyle
		}
		s.history = NewHistory(s.store.Snapshot())
		log.Printf("[BOARD] Loaded project %q: %d primitives, %d labels",
			p.Name, p.Primitives.Count(), len(p.Labels))
		return true
	})
	return nil
}
