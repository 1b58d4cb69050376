package app

import (
	"time"

	"github.com/specialistvlad/campaigngrid/internal/dispatch"
	"github.com/specialistvlad/campaigngrid/internal/status"
)

// Progress is served on /progress.
type Progress struct {
	Campaign string          `json:"campaign"`
	Mode     string          `json:"mode"`
	Total    int             `json:"total"`
	Complete int             `json:"complete"`
	Stages   []StageProgress `json:"stages,omitempty"`
	Outcomes map[string]int  `json:"outcomes,omitempty"`
	PassID   string          `json:"pass_id,omitempty"`
	Updated  time.Time       `json:"updated"`
}

// StageProgress is the completion of one build stage.
type StageProgress struct {
	Stage    string `json:"stage"`
	Total    int    `json:"total"`
	Complete int    `json:"complete"`
}

func (a *App) setSummary(sum status.Summary) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.progress.Total = sum.Total
	a.progress.Complete = sum.Complete
	a.progress.Stages = a.progress.Stages[:0]
	for _, st := range sum.Stages {
		a.progress.Stages = append(a.progress.Stages, StageProgress{Stage: st.Stage.String(), Total: st.Total, Complete: st.Complete})
	}
	a.progress.Updated = time.Now()
}

func (a *App) setReport(r *dispatch.Report) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.progress.PassID = r.PassID
	a.progress.Outcomes = r.Counts()
	a.progress.Updated = time.Now()
}

// Progress returns a snapshot of the latest status or dispatch results.
func (a *App) Progress() Progress {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.progress
	p.Stages = append([]StageProgress(nil), a.progress.Stages...)
	if a.progress.Outcomes != nil {
		p.Outcomes = make(map[string]int, len(a.progress.Outcomes))
		for k, v := range a.progress.Outcomes {
			p.Outcomes[k] = v
		}
	}
	return p
}
