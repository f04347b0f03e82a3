package gracenote

import "strings"

func participantNames(entries []Participant, max int, roles ...string) []string {
	seen := make(map[string]struct{}, len(entries))
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !roleMatches(entry.Role, roles) {
			continue
		}
		name := strings.TrimSpace(strings.TrimSpace(entry.FirstName) + " " + strings.TrimSpace(entry.LastName))
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
		if max > 0 && len(names) >= max {
			break
		}
	}
	return names
}

func roleMatches(role string, roles []string) bool {
	for _, want := range roles {
		if strings.EqualFold(strings.TrimSpace(role), want) {
			return true
		}
	}
	return false
}

// CastNames returns deduplicated actor names in billing order. Voice credits
// count as actors. A max of zero means unbounded.
func (p *Program) CastNames(max int) []string {
	if p == nil {
		return nil
	}
	return participantNames(p.Cast, max, "Actor", "Voice")
}

// DirectorNames returns deduplicated director names.
func (p *Program) DirectorNames() []string {
	if p == nil {
		return nil
	}
	return participantNames(p.Crew, 0, "Director")
}

// ProducerNames returns deduplicated producer and executive producer names.
func (p *Program) ProducerNames(max int) []string {
	if p == nil {
		return nil
	}
	return participantNames(p.Crew, max, "Producer", "Executive Producer")
}

// WriterNames returns deduplicated writer and screenwriter names.
func (p *Program) WriterNames() []string {
	if p == nil {
		return nil
	}
	return participantNames(p.Crew, 0, "Writer", "Screenwriter")
}
