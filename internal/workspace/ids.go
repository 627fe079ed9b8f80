package workspace

import "fmt"

// idSet hands out block ids, keeping given ones and numbering the rest
// b1, b2, ... in visit order.
type idSet struct {
	used map[string]bool
	next int
}

func newIDs() *idSet { return &idSet{used: make(map[string]bool)} }

func (s *idSet) claim(id string) (string, error) {
	if id == "" {
		for {
			s.next++
			id = fmt.Sprintf("b%d", s.next)
			if !s.used[id] {
				break
			}
		}
	} else if s.used[id] {
		return "", fmt.Errorf("duplicate block id %q", id)
	}
	s.used[id] = true
	return id, nil
}

func (s *idSet) count() int { return len(s.used) }
