package web

import (
	"gridcrop/internal/grid"
	"gridcrop/internal/session"
)

// EditorViewModel contains data for rendering the editor page.
type EditorViewModel struct {
	State        session.Snapshot
	CountOptions []int // 1..10 for the column and row selectors
	MaxUploadMB  int64
}

func (s *Server) makeViewModel(sess *session.Session) EditorViewModel {
	opts := make([]int, 0, grid.MaxCells)
	for i := grid.MinCells; i <= grid.MaxCells; i++ {
		opts = append(opts, i)
	}
	return EditorViewModel{
		State:        sess.Snapshot(),
		CountOptions: opts,
		MaxUploadMB:  s.Config.MaxUploadBytes >> 20,
	}
}
