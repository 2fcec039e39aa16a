package engine

import (
	"github.com/kingrea/mtprep/internal/dataset"
)

// StageState is the on-disk completion of one stage.
type StageState struct {
	ID       string `json:"id"`
	Split    string `json:"split,omitempty"`
	Name     string `json:"name"`
	Complete bool   `json:"complete"`
	Error    string `json:"error,omitempty"`
}

// DatasetStatus summarises the completion of a dataset's stage chain.
type DatasetStatus struct {
	Dataset  string       `json:"dataset"`
	Category string       `json:"category"`
	Stages   []StageState `json:"stages"`
}

// Done counts the complete stages.
func (s DatasetStatus) Done() int {
	n := 0
	for _, st := range s.Stages {
		if st.Complete {
			n++
		}
	}
	return n
}

// Complete reports whether every stage is complete.
func (s DatasetStatus) Complete() bool {
	return len(s.Stages) > 0 && s.Done() == len(s.Stages)
}

// Status evaluates IsComplete for every stage of desc without running
// anything.
func (e *Executor) Status(desc dataset.Descriptor) (DatasetStatus, error) {
	status := DatasetStatus{Dataset: desc.Name, Category: string(desc.Category)}
	chain, err := e.build(e.registry, desc, e.sc.Config)
	if err != nil {
		return status, err
	}
	for _, st := range chain {
		info := st.Info()
		state := StageState{ID: info.ID, Split: info.Split, Name: info.Name}
		complete, err := st.IsComplete(e.sc)
		if err != nil {
			state.Error = err.Error()
		}
		state.Complete = complete
		status.Stages = append(status.Stages, state)
	}
	return status, nil
}
