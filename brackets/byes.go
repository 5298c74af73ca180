package brackets

import "github.com/Dosada05/bracket-engine/models"

// ResolveByes settles every pending match whose slots are already
// determined. Walkovers propagate through the graph, so a chain of byes
// collapses in one pass. Safe to run more than once.
func ResolveByes(g *Graph) error {
	sm := NewStateMachine(g)
	for _, m := range g.Matches() {
		if m.Status != models.MatchStatusPending {
			continue
		}
		if err := sm.settle(m); err != nil {
			return err
		}
	}
	return nil
}
